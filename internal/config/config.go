package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Storage       StorageConfig
	Queue         QueueConfig
	Logging       LoggingConfig
	Metrics       MetricsConfig
	Tracing       TracingConfig
	Pipeline      PipelineConfig
	Media         MediaConfig
	Transcription TranscriptionConfig
	Generation    GenerationConfig
	Translation   TranslationConfig
	Webhook       WebhookConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	RateLimitRPS    int
	RateLimitBurst  int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	// StatusTTL bounds how long a cached status view may be served
	StatusTTL time.Duration
}

// StorageConfig holds object storage configuration for the export mirror
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// MetricsConfig holds the prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds jaeger configuration
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// PipelineConfig holds production pipeline configuration
type PipelineConfig struct {
	WorkDir                string
	DefaultLanguage        string
	TargetLanguages        []string
	Dispatcher             string // local or amqp
	TranslationConcurrency int
	DownloadConcurrency    int64
	WorkerConcurrency      int
	LeaseTTL               time.Duration
}

// MediaConfig holds ffmpeg configuration
type MediaConfig struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
}

// TranscriptionConfig holds speech-to-text service configuration
type TranscriptionConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GenerationConfig holds chat model configuration
type GenerationConfig struct {
	Provider string // openai or gemini
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// TranslationConfig holds translation service configuration.
// An empty APIKey turns every translation into an identity passthrough.
type TranslationConfig struct {
	APIKey  string
	Timeout time.Duration
}

// WebhookConfig holds status notification targets
type WebhookConfig struct {
	URLs   []string
	Secret string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("OPERASHORTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that have no sensible fallback
func (c *Config) Validate() error {
	switch c.Pipeline.Dispatcher {
	case "local":
	case "amqp":
		// API and worker processes must share project leases
		if !c.Redis.Enabled {
			return fmt.Errorf("pipeline.dispatcher amqp requires redis.enabled for shared project leases")
		}
	default:
		return fmt.Errorf("invalid pipeline.dispatcher %q (want local or amqp)", c.Pipeline.Dispatcher)
	}
	switch c.Generation.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("invalid generation.provider %q (want openai or gemini)", c.Generation.Provider)
	}
	if c.Pipeline.DefaultLanguage == "" {
		return fmt.Errorf("pipeline.defaultLanguage is required")
	}
	if c.Pipeline.DownloadConcurrency < 1 {
		return fmt.Errorf("pipeline.downloadConcurrency must be at least 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "60s")
	v.SetDefault("server.writeTimeout", "60s")
	v.SetDefault("server.shutdownTimeout", "10s")
	v.SetDefault("server.maxUploadBytes", 2*1024*1024*1024) // 2GB
	v.SetDefault("server.rateLimitRPS", 20)
	v.SetDefault("server.rateLimitBurst", 40)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "operashorts")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxConns", 10)
	v.SetDefault("database.minConns", 2)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.statusTTL", "30s")

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKeyID", "minioadmin")
	v.SetDefault("storage.secretAccessKey", "minioadmin")
	v.SetDefault("storage.bucketName", "operashorts")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.useSSL", false)

	// Queue defaults
	v.SetDefault("queue.host", "localhost")
	v.SetDefault("queue.port", 5672)
	v.SetDefault("queue.user", "guest")
	v.SetDefault("queue.password", "guest")
	v.SetDefault("queue.vhost", "/")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Observability defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "operashorts")
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")

	// Pipeline defaults
	v.SetDefault("pipeline.workDir", "/tmp/operashorts")
	v.SetDefault("pipeline.defaultLanguage", "en")
	v.SetDefault("pipeline.targetLanguages", []string{"en", "pt", "es", "de", "fr", "it", "pl"})
	v.SetDefault("pipeline.dispatcher", "local")
	v.SetDefault("pipeline.translationConcurrency", 3)
	v.SetDefault("pipeline.downloadConcurrency", 2)
	v.SetDefault("pipeline.workerConcurrency", 2)
	v.SetDefault("pipeline.leaseTTL", "15m")

	// Media defaults
	v.SetDefault("media.ffmpegPath", "ffmpeg")
	v.SetDefault("media.ffprobePath", "ffprobe")
	v.SetDefault("media.timeout", "600s")

	// External service defaults. Every key needs a default so env overrides are seen.
	v.SetDefault("transcription.baseURL", "https://api.openai.com/v1")
	v.SetDefault("transcription.apiKey", "")
	v.SetDefault("transcription.model", "whisper-1")
	v.SetDefault("transcription.timeout", "300s")
	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.baseURL", "")
	v.SetDefault("generation.apiKey", "")
	v.SetDefault("generation.model", "gpt-4o-mini")
	v.SetDefault("generation.timeout", "120s")
	v.SetDefault("translation.apiKey", "")
	v.SetDefault("translation.timeout", "30s")

	// Webhook defaults
	v.SetDefault("webhook.urls", []string{})
	v.SetDefault("webhook.secret", "")
}
