package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/metrics"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

func (r *Runner) transcribe(ctx context.Context, p *models.ProductionProject) error {
	if _, err := os.Stat(p.VideoPath); err != nil {
		return fmt.Errorf("source video not found: %s", filepath.Base(p.VideoPath))
	}

	if err := os.MkdirAll(r.cfg.ProjectDir(p.ID), 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	audioPath := filepath.Join(r.cfg.ProjectDir(p.ID), "audio.wav")

	if err := r.deps.Media.ExtractAudio(ctx, p.VideoPath, audioPath); err != nil {
		return err
	}
	defer os.Remove(audioPath)

	language := p.Language
	if language == "" {
		language = r.cfg.DefaultLanguage
	}

	start := time.Now()
	result, err := r.deps.Transcriber.Transcribe(ctx, audioPath, language)
	metrics.RecordExternalCall("transcription", time.Since(start).Seconds(), err)
	r.logger.LogExternalCall("transcription", "transcribe", time.Since(start), err)
	if err != nil {
		return err
	}

	segments := normalizeSegments(result.Segments)
	if err := r.deps.Store.UpdateTranscription(ctx, p.ID, strings.TrimSpace(result.Text), segments); err != nil {
		return fmt.Errorf("failed to save transcription: %w", err)
	}
	return r.setStatus(ctx, p.ID, models.StatusTranscribed, "")
}

// normalizeSegments keeps start, end and trimmed text, dropping empty lines
func normalizeSegments(segments models.Captions) models.Captions {
	out := make(models.Captions, 0, len(segments))
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if s.End < s.Start {
			s.End = s.Start
		}
		out = append(out, models.Caption{Start: s.Start, End: s.End, Text: text})
	}
	return out
}
