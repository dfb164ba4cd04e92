package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

const projectColumns = `
	id, artist, song, hook, video_path, duration, cut_start, cut_end, language, status,
	transcription, transcription_segments, overlay_subtitles, post_text, youtube_seo,
	overlay_approved, post_approved, translations, output_path, error_message,
	official_lyrics, version, created_at, updated_at`

// ProjectRepository persists production projects
type ProjectRepository struct {
	db     *DB
	logger *logging.Logger
}

// NewProjectRepository creates a new repository
func NewProjectRepository(db *DB, logger *logging.Logger) *ProjectRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ProjectRepository{db: db, logger: logger}
}

// Create inserts a new project and fills in its ID and timestamps
func (r *ProjectRepository) Create(ctx context.Context, p *models.ProductionProject) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = models.StatusUploaded
	}
	if p.Translations == nil {
		p.Translations = models.Translations{}
	}

	query := `
		INSERT INTO production_projects (
			id, artist, song, hook, video_path, duration, cut_start, cut_end, language, status,
			transcription, transcription_segments, overlay_subtitles, post_text, youtube_seo,
			overlay_approved, post_approved, translations, output_path, error_message, official_lyrics
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING version, created_at, updated_at
	`

	start := time.Now()
	err := r.db.Pool.QueryRow(ctx, query,
		p.ID, p.Artist, p.Song, p.Hook, p.VideoPath, p.Duration, p.CutStart, p.CutEnd, p.Language, string(p.Status),
		p.Transcription, p.TranscriptionSegments.Clone(), p.OverlaySubtitles.Clone(), p.PostText, p.YouTubeSEO.Clone(),
		p.OverlayApproved, p.PostApproved, p.Translations, p.OutputPath, p.ErrorMessage, p.OfficialLyrics,
	).Scan(&p.Version, &p.CreatedAt, &p.UpdatedAt)
	r.logger.LogDatabaseOperation("create_project", time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*models.ProductionProject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrProjectNotFound
	}

	query := `SELECT ` + projectColumns + ` FROM production_projects WHERE id = $1`

	p, err := scanProject(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return p, nil
}

// List retrieves projects newest first
func (r *ProjectRepository) List(ctx context.Context, limit, offset int) ([]*models.ProductionProject, error) {
	query := `SELECT ` + projectColumns + ` FROM production_projects ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*models.ProductionProject, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// UpdateStatus sets the status and replaces the error message
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id string, status models.Status, errorMessage string) error {
	if !status.Valid() {
		return fmt.Errorf("refusing to store unknown status %q", status)
	}
	return r.update(ctx, "update_status", id,
		`status = $2, error_message = $3`, string(status), errorMessage)
}

// UpdateTranscription stores transcription text and lyric segments
func (r *ProjectRepository) UpdateTranscription(ctx context.Context, id, text string, segments models.Captions) error {
	return r.update(ctx, "update_transcription", id,
		`transcription = $2, transcription_segments = $3`, text, segments.Clone())
}

// UpdateContent stores a full generation result and resets both approval gates
func (r *ProjectRepository) UpdateContent(ctx context.Context, id string, overlay models.Captions, post string, seo models.SEO) error {
	return r.update(ctx, "update_content", id,
		`overlay_subtitles = $2, post_text = $3, youtube_seo = $4, overlay_approved = FALSE, post_approved = FALSE`,
		overlay.Clone(), post, seo.Clone())
}

// UpdateOverlay stores overlay captions and the overlay approval gate
func (r *ProjectRepository) UpdateOverlay(ctx context.Context, id string, overlay models.Captions, approved bool) error {
	return r.update(ctx, "update_overlay", id,
		`overlay_subtitles = $2, overlay_approved = $3`, overlay.Clone(), approved)
}

// UpdatePost stores the social post and the post approval gate
func (r *ProjectRepository) UpdatePost(ctx context.Context, id, post string, approved bool) error {
	return r.update(ctx, "update_post", id,
		`post_text = $2, post_approved = $3`, post, approved)
}

// UpdateSEO stores video platform metadata
func (r *ProjectRepository) UpdateSEO(ctx context.Context, id string, seo models.SEO) error {
	return r.update(ctx, "update_seo", id, `youtube_seo = $2`, seo.Clone())
}

// UpdateTranslations replaces the language map
func (r *ProjectRepository) UpdateTranslations(ctx context.Context, id string, translations models.Translations) error {
	if translations == nil {
		translations = models.Translations{}
	}
	return r.update(ctx, "update_translations", id, `translations = $2`, translations)
}

// UpdateOutput stores the export directory
func (r *ProjectRepository) UpdateOutput(ctx context.Context, id, outputPath string) error {
	return r.update(ctx, "update_output", id, `output_path = $2`, outputPath)
}

// Delete removes a project, reporting whether it existed
func (r *ProjectRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	start := time.Now()
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM production_projects WHERE id = $1`, id)
	r.logger.LogDatabaseOperation("delete_project", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// update applies a SET clause whose placeholders start at $2; $1 is the ID.
// Every write bumps version and updated_at.
func (r *ProjectRepository) update(ctx context.Context, operation, id, set string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrProjectNotFound
	}

	query := `UPDATE production_projects SET ` + set + `, version = version + 1, updated_at = NOW() WHERE id = $1`

	start := time.Now()
	tag, err := r.db.Pool.Exec(ctx, query, append([]any{id}, args...)...)
	r.logger.LogDatabaseOperation(operation, time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to %s: %w", operation, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrProjectNotFound
	}

	return nil
}

func scanProject(row pgx.Row) (*models.ProductionProject, error) {
	var (
		p      models.ProductionProject
		status string
	)

	err := row.Scan(
		&p.ID, &p.Artist, &p.Song, &p.Hook, &p.VideoPath, &p.Duration, &p.CutStart, &p.CutEnd, &p.Language, &status,
		&p.Transcription, &p.TranscriptionSegments, &p.OverlaySubtitles, &p.PostText, &p.YouTubeSEO,
		&p.OverlayApproved, &p.PostApproved, &p.Translations, &p.OutputPath, &p.ErrorMessage,
		&p.OfficialLyrics, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.Status, err = models.ParseStatus(status); err != nil {
		return nil, err
	}
	if p.Translations == nil {
		p.Translations = models.Translations{}
	}

	return &p, nil
}
