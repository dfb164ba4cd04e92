package pipeline

import (
	"path/filepath"
	"time"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/config"
)

// Config holds the pipeline settings shared by Service and Runner
type Config struct {
	WorkDir                string
	DefaultLanguage        string
	TargetLanguages        []string
	TranslationConcurrency int
	LeaseTTL               time.Duration
	StatusTTL              time.Duration
}

// ConfigFrom maps application configuration onto pipeline settings
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		WorkDir:                cfg.Pipeline.WorkDir,
		DefaultLanguage:        cfg.Pipeline.DefaultLanguage,
		TargetLanguages:        cfg.Pipeline.TargetLanguages,
		TranslationConcurrency: cfg.Pipeline.TranslationConcurrency,
		LeaseTTL:               cfg.Pipeline.LeaseTTL,
		StatusTTL:              cfg.Redis.StatusTTL,
	}
}

func (c Config) withDefaults() Config {
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(".", "data")
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
	if c.TranslationConcurrency <= 0 {
		c.TranslationConcurrency = 3
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 15 * time.Minute
	}
	if c.StatusTTL <= 0 {
		c.StatusTTL = 30 * time.Second
	}
	return c
}

// ProjectDir is the artifact tree owned by one project
func (c Config) ProjectDir(projectID string) string {
	return filepath.Join(c.WorkDir, "projects", projectID)
}

// ExportDir holds the rendered artifacts of one project
func (c Config) ExportDir(projectID string) string {
	return filepath.Join(c.ProjectDir(projectID), "export")
}

func mirrorPrefix(projectID string) string {
	return "projects/" + projectID
}
