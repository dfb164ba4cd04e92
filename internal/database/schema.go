package database

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS production_projects (
	id                     UUID PRIMARY KEY,
	artist                 TEXT NOT NULL,
	song                   TEXT NOT NULL,
	hook                   TEXT NOT NULL DEFAULT '',
	video_path             TEXT NOT NULL,
	duration               DOUBLE PRECISION NOT NULL DEFAULT 0,
	cut_start              DOUBLE PRECISION NOT NULL DEFAULT 0,
	cut_end                DOUBLE PRECISION,
	language               TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'uploaded',
	transcription          TEXT NOT NULL DEFAULT '',
	transcription_segments JSONB NOT NULL DEFAULT '[]',
	overlay_subtitles      JSONB NOT NULL DEFAULT '[]',
	post_text              TEXT NOT NULL DEFAULT '',
	youtube_seo            JSONB NOT NULL DEFAULT '{}',
	overlay_approved       BOOLEAN NOT NULL DEFAULT FALSE,
	post_approved          BOOLEAN NOT NULL DEFAULT FALSE,
	translations           JSONB NOT NULL DEFAULT '{}',
	output_path            TEXT NOT NULL DEFAULT '',
	error_message          TEXT NOT NULL DEFAULT '',
	official_lyrics        TEXT NOT NULL DEFAULT '',
	version                BIGINT NOT NULL DEFAULT 1,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT production_projects_status_check CHECK (status IN (
		'uploaded', 'transcribing', 'transcribed', 'generating', 'generated',
		'translating', 'translated', 'processing', 'completed', 'error'
	)),
	CONSTRAINT production_projects_cut_check CHECK (cut_end IS NULL OR cut_end > cut_start)
);

CREATE INDEX IF NOT EXISTS idx_production_projects_created_at ON production_projects (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_production_projects_status ON production_projects (status);
`

// Migrate creates the production schema when it does not exist yet
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
