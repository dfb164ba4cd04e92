package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/metrics"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// generate runs full generation or one regeneration, depending on part
func (r *Runner) generate(ctx context.Context, p *models.ProductionProject, part contentPart) error {
	prompt := BuildContentPrompt(p)

	start := time.Now()
	reply, err := r.deps.Generator.Complete(ctx, prompt)
	metrics.RecordExternalCall("generation", time.Since(start).Seconds(), err)
	r.logger.LogExternalCall("generation", "complete", time.Since(start), err)
	if err != nil {
		return err
	}

	content, err := parseGeneratedContent(reply, part)
	if err != nil {
		return err
	}
	overlay := NormalizeOverlay(content.Overlay, p.ClipDuration())

	switch part {
	case partOverlay:
		err = r.deps.Store.UpdateOverlay(ctx, p.ID, overlay, false)
	case partPost:
		err = r.deps.Store.UpdatePost(ctx, p.ID, content.Post, false)
		if err == nil && content.SEO.Title != "" {
			err = r.deps.Store.UpdateSEO(ctx, p.ID, content.SEO.Clone())
		}
	default:
		err = r.deps.Store.UpdateContent(ctx, p.ID, overlay, content.Post, content.SEO.Clone())
	}
	if err != nil {
		return fmt.Errorf("failed to save generated content: %w", err)
	}

	return r.setStatus(ctx, p.ID, models.StatusGenerated, "")
}
