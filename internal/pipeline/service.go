package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/metrics"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// CreateRequest carries the user-supplied fields of a new project
type CreateRequest struct {
	Artist         string
	Song           string
	Hook           string
	Language       string
	CutStart       float64
	CutEnd         *float64
	OfficialLyrics string
}

// Validate checks the fields that do not depend on the source video
func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.Artist) == "" {
		return failure.Validation("artist is required")
	}
	if strings.TrimSpace(r.Song) == "" {
		return failure.Validation("song is required")
	}
	if r.CutStart < 0 {
		return failure.Validation("cut_start must not be negative")
	}
	if r.CutEnd != nil && *r.CutEnd <= r.CutStart {
		return failure.Validation("cut_end must be greater than cut_start")
	}
	return nil
}

// Service is the request-facing side of the pipeline
type Service struct {
	cfg        Config
	deps       Dependencies
	dispatcher Dispatcher
	logger     *logging.Logger
}

// NewService creates a pipeline service
func NewService(cfg Config, deps Dependencies, dispatcher Dispatcher, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if deps.Locker == nil {
		deps.Locker = NewMemoryLocker()
	}
	return &Service{
		cfg:        cfg.withDefaults(),
		deps:       deps,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateFromUpload stores an uploaded source video and creates its project
func (s *Service) CreateFromUpload(ctx context.Context, req CreateRequest, filename string, src io.Reader) (*models.ProductionProject, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	dest, err := s.sourcePath(id, filename)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create source file: %w", err)
	}
	size, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		s.discard(id)
		return nil, fmt.Errorf("failed to save source video: %w", err)
	}

	return s.create(ctx, id, req, dest, "upload", size)
}

// CreateFromURL downloads the source video and creates its project
func (s *Service) CreateFromURL(ctx context.Context, req CreateRequest, url string) (*models.ProductionProject, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.deps.Fetcher == nil {
		return nil, failure.Validation("creating projects from a URL is not enabled")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, failure.Validation("video_url must be an http or https URL")
	}

	id := uuid.New().String()
	dest, err := s.sourcePath(id, filepath.Base(strings.SplitN(url, "?", 2)[0]))
	if err != nil {
		return nil, err
	}

	size, err := s.deps.Fetcher.Download(ctx, url, dest)
	if err != nil {
		s.discard(id)
		return nil, err
	}

	return s.create(ctx, id, req, dest, "url", size)
}

func (s *Service) sourcePath(id, filename string) (string, error) {
	dir := s.cfg.ProjectDir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create project directory: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 6 {
		ext = ".mp4"
	}
	return filepath.Join(dir, "source"+ext), nil
}

func (s *Service) create(ctx context.Context, id string, req CreateRequest, videoPath, source string, size int64) (*models.ProductionProject, error) {
	duration, err := s.deps.Media.ProbeDuration(ctx, videoPath)
	if err != nil {
		s.discard(id)
		return nil, failure.Validation("source video is not readable: %v", err)
	}
	if duration > 0 && req.CutStart >= duration {
		s.discard(id)
		return nil, failure.Validation("cut_start %.2f is beyond the video duration %.2f", req.CutStart, duration)
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = s.cfg.DefaultLanguage
	}

	p := &models.ProductionProject{
		ID:             id,
		Artist:         strings.TrimSpace(req.Artist),
		Song:           strings.TrimSpace(req.Song),
		Hook:           strings.TrimSpace(req.Hook),
		VideoPath:      videoPath,
		Duration:       duration,
		CutStart:       req.CutStart,
		CutEnd:         req.CutEnd,
		Language:       language,
		Status:         models.StatusUploaded,
		OfficialLyrics: req.OfficialLyrics,
	}
	if err := p.ValidateCut(); err != nil {
		s.discard(id)
		return nil, failure.Validation("%v", err)
	}

	if err := s.deps.Store.Create(ctx, p); err != nil {
		s.discard(id)
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	metrics.RecordProjectCreated(source, size)
	s.logger.WithProjectID(p.ID).Infof("Created project for %s - %s (%.1fs)", p.Artist, p.Song, p.Duration)
	s.notify(ctx, models.WebhookEventProjectCreated, p)
	return p, nil
}

func (s *Service) discard(id string) {
	if err := os.RemoveAll(s.cfg.ProjectDir(id)); err != nil {
		s.logger.WithProjectID(id).Warnf("Failed to remove project directory: %v", err)
	}
}

// Get returns the full project
func (s *Service) Get(ctx context.Context, id string) (*models.ProductionProject, error) {
	return s.deps.Store.Get(ctx, id)
}

// List returns projects, newest first
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.ProductionProject, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.deps.Store.List(ctx, limit, offset)
}

// Status returns the polling view, served from cache when available
func (s *Service) Status(ctx context.Context, id string) (*models.ProjectStatus, error) {
	if s.deps.Cache != nil {
		cached, err := s.deps.Cache.GetProjectStatus(ctx, id)
		if err != nil {
			s.logger.WithProjectID(id).Warnf("Status cache read failed: %v", err)
		}
		metrics.RecordCacheAccess("status", cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	p, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := p.StatusView()

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetProjectStatus(ctx, view, s.cfg.StatusTTL); err != nil {
			s.logger.WithProjectID(id).Warnf("Status cache write failed: %v", err)
		}
	}
	return &view, nil
}

// Delete removes the project record and its artifact tree.
// It is refused while a stage holds the project's lease.
func (s *Service) Delete(ctx context.Context, id string) error {
	token, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer s.release(id, token)

	deleted, err := s.deps.Store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if !deleted {
		return models.ErrProjectNotFound
	}

	s.invalidate(ctx, id)
	if err := os.RemoveAll(s.cfg.ProjectDir(id)); err != nil {
		return fmt.Errorf("failed to remove project files: %w", err)
	}
	if s.deps.Mirror != nil {
		if err := s.deps.Mirror.RemovePrefix(ctx, mirrorPrefix(id)); err != nil {
			s.logger.WithProjectID(id).Warnf("Failed to remove mirrored artifacts: %v", err)
		}
	}

	s.logger.WithProjectID(id).Info("Deleted project")
	return nil
}

// Trigger validates and dispatches stage, returning the in-progress status
func (s *Service) Trigger(ctx context.Context, id string, stage Stage) (models.Status, error) {
	token, err := s.acquire(ctx, id)
	if err != nil {
		metrics.RecordStageRejected(stage.String(), "lease_held")
		return "", err
	}

	status, err := s.start(ctx, id, stage, token)
	if err != nil {
		s.release(id, token)
		return "", err
	}
	return status, nil
}

func (s *Service) start(ctx context.Context, id string, stage Stage, token string) (models.Status, error) {
	p, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if err := CheckTransition(stage, p); err != nil {
		metrics.RecordStageRejected(stage.String(), "illegal_transition")
		return "", err
	}

	running := stage.RunningStatus()
	if err := s.deps.Store.UpdateStatus(ctx, id, running, ""); err != nil {
		return "", fmt.Errorf("failed to update status: %w", err)
	}
	s.invalidate(ctx, id)

	task := models.NewStageTask(id, stage.String(), token)
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		msg := failure.Message(fmt.Errorf("dispatch failed: %w", err))
		if statusErr := s.deps.Store.UpdateStatus(context.Background(), id, models.StatusError, msg); statusErr != nil {
			s.logger.WithProjectID(id).ErrorWithErr("Failed to record dispatch failure", statusErr)
		}
		s.invalidate(ctx, id)
		return "", fmt.Errorf("failed to dispatch %s: %w", stage, err)
	}

	s.logger.WithProjectID(id).WithStage(stage.String()).WithTaskID(task.ID).Info("Stage dispatched")
	return running, nil
}

// UpdateOverlay replaces the overlay captions and sets its approval gate.
// Translation starts automatically once both gates are set.
func (s *Service) UpdateOverlay(ctx context.Context, id string, overlay models.Captions, approved bool) (*models.ProjectStatus, error) {
	if len(overlay) == 0 {
		return nil, failure.Validation("overlay must contain at least one caption")
	}
	for i, c := range overlay {
		if strings.TrimSpace(c.Text) == "" {
			return nil, failure.Validation("overlay caption %d has no text", i)
		}
		if c.Start < 0 || c.End < c.Start {
			return nil, failure.Validation("overlay caption %d has invalid timing", i)
		}
	}

	return s.updateGate(ctx, id, func() error {
		return s.deps.Store.UpdateOverlay(ctx, id, overlay.Clone(), approved)
	})
}

// UpdatePost replaces the post text and sets its approval gate.
// Translation starts automatically once both gates are set.
func (s *Service) UpdatePost(ctx context.Context, id, post string, approved bool) (*models.ProjectStatus, error) {
	post = strings.TrimSpace(post)
	if post == "" {
		return nil, failure.Validation("post must not be empty")
	}

	return s.updateGate(ctx, id, func() error {
		return s.deps.Store.UpdatePost(ctx, id, post, approved)
	})
}

func (s *Service) updateGate(ctx context.Context, id string, write func() error) (*models.ProjectStatus, error) {
	token, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	err = write()
	s.release(id, token)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	p, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var notice string
	if p.OverlayApproved && p.PostApproved {
		s.logger.WithProjectID(id).Info("Both approval gates set, starting translation")
		status, err := s.Trigger(ctx, id, StageTranslate)
		if err != nil {
			// the gate write is already committed, so report the current state
			s.logger.WithProjectID(id).Warnf("Approval saved but translation did not start: %v", err)
			notice = "translation not started: " + failure.Message(err)
			if fresh, getErr := s.deps.Store.Get(ctx, id); getErr == nil {
				p = fresh
			}
		} else {
			p.Status = status
		}
	}

	view := p.StatusView()
	view.Notice = notice
	return &view, nil
}

// ExportListing lists the exported artifacts of a completed project
func (s *Service) ExportListing(ctx context.Context, id string) (*ExportListing, error) {
	p, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OutputPath == "" {
		return nil, failure.Validation("project has not been exported yet")
	}
	return listExport(p.OutputPath)
}

func (s *Service) acquire(ctx context.Context, id string) (string, error) {
	token, ok, err := s.deps.Locker.Acquire(ctx, id, s.cfg.LeaseTTL)
	if err != nil {
		return "", fmt.Errorf("failed to acquire project lease: %w", err)
	}
	if !ok {
		return "", ErrStageRunning
	}
	return token, nil
}

func (s *Service) release(id, token string) {
	if err := s.deps.Locker.Release(context.Background(), id, token); err != nil {
		s.logger.WithProjectID(id).ErrorWithErr("Failed to release project lease", err)
	}
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.DeleteProjectStatus(ctx, id); err != nil {
		s.logger.WithProjectID(id).Warnf("Failed to invalidate status cache: %v", err)
	}
}

func (s *Service) notify(ctx context.Context, event string, p *models.ProductionProject) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Notify(ctx, event, p.StatusView()); err != nil {
		s.logger.WithProjectID(p.ID).Warnf("Webhook delivery failed for %s: %v", event, err)
	}
}

// IsNotFound reports whether err means the project does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrProjectNotFound)
}
