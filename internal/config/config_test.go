package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9091
  host: "127.0.0.1"

database:
  host: "testdb"
  dbname: "shorts"

pipeline:
  workDir: "/data/shorts"
  defaultLanguage: "it"
  targetLanguages: ["en", "pt"]

generation:
  provider: "gemini"
  model: "gemini-1.5-flash"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9091 {
		t.Errorf("Expected port 9091, got %d", cfg.Server.Port)
	}
	if cfg.Database.Host != "testdb" {
		t.Errorf("Expected database host testdb, got %s", cfg.Database.Host)
	}
	if cfg.Pipeline.DefaultLanguage != "it" {
		t.Errorf("Expected default language it, got %s", cfg.Pipeline.DefaultLanguage)
	}
	if len(cfg.Pipeline.TargetLanguages) != 2 {
		t.Errorf("Expected 2 target languages, got %v", cfg.Pipeline.TargetLanguages)
	}
	if cfg.Generation.Provider != "gemini" {
		t.Errorf("Expected gemini provider, got %s", cfg.Generation.Provider)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Pipeline.DownloadConcurrency != 2 {
		t.Errorf("Expected download concurrency 2, got %d", cfg.Pipeline.DownloadConcurrency)
	}
	if cfg.Pipeline.Dispatcher != "local" {
		t.Errorf("Expected local dispatcher, got %s", cfg.Pipeline.Dispatcher)
	}
	if cfg.Transcription.Timeout != 300*time.Second {
		t.Errorf("Expected transcription timeout 300s, got %v", cfg.Transcription.Timeout)
	}
	if cfg.Translation.Timeout != 30*time.Second {
		t.Errorf("Expected translation timeout 30s, got %v", cfg.Translation.Timeout)
	}
	if cfg.Media.Timeout != 600*time.Second {
		t.Errorf("Expected media timeout 600s, got %v", cfg.Media.Timeout)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OPERASHORTS_TRANSLATION_APIKEY", "secret-key")

	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Translation.APIKey != "secret-key" {
		t.Errorf("Expected API key from env, got %q", cfg.Translation.APIKey)
	}
}

func TestLoadEnvOverrideSecrets(t *testing.T) {
	t.Setenv("OPERASHORTS_TRANSCRIPTION_APIKEY", "stt-key")
	t.Setenv("OPERASHORTS_GENERATION_APIKEY", "llm-key")
	t.Setenv("OPERASHORTS_GENERATION_BASEURL", "http://llm.internal/v1")
	t.Setenv("OPERASHORTS_WEBHOOK_SECRET", "hook-secret")

	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Transcription.APIKey != "stt-key" {
		t.Errorf("Expected transcription key from env, got %q", cfg.Transcription.APIKey)
	}
	if cfg.Generation.APIKey != "llm-key" {
		t.Errorf("Expected generation key from env, got %q", cfg.Generation.APIKey)
	}
	if cfg.Generation.BaseURL != "http://llm.internal/v1" {
		t.Errorf("Expected generation base URL from env, got %q", cfg.Generation.BaseURL)
	}
	if cfg.Webhook.Secret != "hook-secret" {
		t.Errorf("Expected webhook secret from env, got %q", cfg.Webhook.Secret)
	}
}

func TestLoadRejectsQueueWithoutRedis(t *testing.T) {
	_, err := Load(writeConfig(t, "pipeline:\n  dispatcher: amqp\n"))
	if err == nil {
		t.Error("Expected error for amqp dispatcher without redis")
	}

	cfg, err := Load(writeConfig(t, "pipeline:\n  dispatcher: amqp\nredis:\n  enabled: true\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Pipeline.Dispatcher != "amqp" || !cfg.Redis.Enabled {
		t.Errorf("Expected amqp dispatcher with redis, got %q / %v", cfg.Pipeline.Dispatcher, cfg.Redis.Enabled)
	}
}

func TestLoadRejectsUnknownDispatcher(t *testing.T) {
	_, err := Load(writeConfig(t, "pipeline:\n  dispatcher: kafka\n"))
	if err == nil {
		t.Error("Expected error for unknown dispatcher")
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}
