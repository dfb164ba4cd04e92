package pipeline

import (
	"context"
	"time"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/transcription"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// Store persists production projects
type Store interface {
	Create(ctx context.Context, p *models.ProductionProject) error
	Get(ctx context.Context, id string) (*models.ProductionProject, error)
	List(ctx context.Context, limit, offset int) ([]*models.ProductionProject, error)
	UpdateStatus(ctx context.Context, id string, status models.Status, errorMessage string) error
	UpdateTranscription(ctx context.Context, id, text string, segments models.Captions) error
	UpdateContent(ctx context.Context, id string, overlay models.Captions, post string, seo models.SEO) error
	UpdateOverlay(ctx context.Context, id string, overlay models.Captions, approved bool) error
	UpdatePost(ctx context.Context, id, post string, approved bool) error
	UpdateSEO(ctx context.Context, id string, seo models.SEO) error
	UpdateTranslations(ctx context.Context, id string, translations models.Translations) error
	UpdateOutput(ctx context.Context, id, outputPath string) error
	Delete(ctx context.Context, id string) (bool, error)
}

// MediaTool wraps the external media processor
type MediaTool interface {
	ProbeDuration(ctx context.Context, inputPath string) (float64, error)
	ExtractAudio(ctx context.Context, inputPath, outputPath string) error
	Trim(ctx context.Context, inputPath, outputPath string, start float64, end *float64) error
}

// Fetcher downloads a remote source video to a local path
type Fetcher interface {
	Download(ctx context.Context, url, destPath string) (int64, error)
}

// Transcriber turns extracted audio into text and timed segments
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (*transcription.Result, error)
}

// Generator sends one prompt to a chat model
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Translator converts one text between languages
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Locker grants per-project mutual exclusion across stage runs
type Locker interface {
	Acquire(ctx context.Context, projectID string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, projectID, token string) error
}

// Dispatcher hands a stage task to background execution
type Dispatcher interface {
	Dispatch(ctx context.Context, task *models.StageTask) error
}

// StatusCache holds polling views between store reads
type StatusCache interface {
	SetProjectStatus(ctx context.Context, status models.ProjectStatus, ttl time.Duration) error
	GetProjectStatus(ctx context.Context, projectID string) (*models.ProjectStatus, error)
	DeleteProjectStatus(ctx context.Context, projectID string) error
}

// Notifier announces stage transitions
type Notifier interface {
	Notify(ctx context.Context, event string, status models.ProjectStatus) error
}

// Mirror copies exported artifacts to object storage
type Mirror interface {
	Mirror(ctx context.Context, localDir, prefix string) (int, error)
	RemovePrefix(ctx context.Context, prefix string) error
}

// Dependencies are the collaborators shared by Service and Runner.
// Cache, Notifier, Mirror and Fetcher are optional.
type Dependencies struct {
	Store       Store
	Media       MediaTool
	Fetcher     Fetcher
	Transcriber Transcriber
	Generator   Generator
	Translator  Translator
	Locker      Locker
	Cache       StatusCache
	Notifier    Notifier
	Mirror      Mirror
}
