package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/metrics"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/tracing"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/translation"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

func (r *Runner) translate(ctx context.Context, p *models.ProductionProject, logger *logging.Logger) error {
	working := p.Language
	if working == "" {
		working = r.cfg.DefaultLanguage
	}
	source := p.WorkingBundle()

	// The working language is persisted before any other language is attempted.
	if err := r.deps.Store.UpdateTranslations(ctx, p.ID, models.Translations{working: source.Clone()}); err != nil {
		return fmt.Errorf("failed to save working-language bundle: %w", err)
	}

	result := r.fanOut(ctx, source, working, targetLanguages(r.cfg.TargetLanguages, working), logger)
	result[working] = source.Clone()

	if err := r.deps.Store.UpdateTranslations(ctx, p.ID, result); err != nil {
		return fmt.Errorf("failed to save translations: %w", err)
	}
	return r.setStatus(ctx, p.ID, models.StatusTranslated, "")
}

// fanOut translates source into every target. A language that fails keeps the working-language content.
func (r *Runner) fanOut(ctx context.Context, source models.Bundle, working string, targets []string, logger *logging.Logger) models.Translations {
	var (
		mu     sync.Mutex
		result = make(models.Translations, len(targets)+1)
	)

	g := new(errgroup.Group)
	g.SetLimit(r.cfg.TranslationConcurrency)

	for _, lang := range targets {
		lang := lang
		g.Go(func() error {
			bundle := r.translateOne(ctx, source, working, lang, logger.WithLanguage(lang))
			mu.Lock()
			result[lang] = bundle
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return result
}

func (r *Runner) translateOne(ctx context.Context, source models.Bundle, working, lang string, logger *logging.Logger) (bundle models.Bundle) {
	span, ctx := tracing.StartSpan(ctx, "translate."+lang)
	defer tracing.FinishSpan(span)

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("translation panicked: %v", rec)
			tracing.LogError(span, err)
			logger.ErrorWithErr("Falling back to working-language content", err)
			metrics.RecordTranslationFallback(lang)
			bundle = source.Clone()
		}
	}()

	translated, err := translation.TranslateBundle(ctx, r.deps.Translator, source, working, lang)
	if err != nil {
		tracing.LogError(span, err)
		logger.WithError(err).Warn("Falling back to working-language content")
		metrics.RecordTranslationFallback(lang)
		return source.Clone()
	}
	return translated
}

// targetLanguages removes the working language and duplicates, keeping order
func targetLanguages(configured []string, working string) []string {
	seen := map[string]bool{working: true}
	out := make([]string, 0, len(configured))
	for _, lang := range configured {
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out
}

// sortedLanguages returns the keys of t in a stable order
func sortedLanguages(t models.Translations) []string {
	langs := make([]string, 0, len(t))
	for lang := range t {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
