package translation

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// TranslateBundle translates every text field of a working-language bundle.
// Timestamps and SEO tags are copied unchanged. A BatchTranslator receives
// all texts in one call.
func TranslateBundle(ctx context.Context, tr Translator, src models.Bundle, source, target string) (models.Bundle, error) {
	texts, labels := bundleTexts(src)

	var (
		translated []string
		err        error
	)
	if batch, ok := tr.(BatchTranslator); ok {
		translated, err = batch.TranslateBatch(ctx, texts, source, target)
		if err == nil && len(translated) != len(texts) {
			err = &failure.MalformedResponse{
				Service: serviceName,
				Err:     fmt.Errorf("got %d translations for %d texts", len(translated), len(texts)),
			}
		}
	} else {
		translated, err = translateEach(ctx, tr, texts, labels, source, target)
	}
	if err != nil {
		return models.Bundle{}, err
	}

	return assembleBundle(src, translated), nil
}

// bundleTexts flattens a bundle as overlay captions, lyric lines, post, seo title, seo description
func bundleTexts(b models.Bundle) ([]string, []string) {
	n := len(b.Overlay) + len(b.Lyrics) + 3
	texts := make([]string, 0, n)
	labels := make([]string, 0, n)

	for i, c := range b.Overlay {
		texts = append(texts, c.Text)
		labels = append(labels, fmt.Sprintf("overlay caption %d", i))
	}
	for i, c := range b.Lyrics {
		texts = append(texts, c.Text)
		labels = append(labels, fmt.Sprintf("lyrics caption %d", i))
	}
	texts = append(texts, b.Post, b.SEO.Title, b.SEO.Description)
	labels = append(labels, "post", "seo title", "seo description")
	return texts, labels
}

func assembleBundle(src models.Bundle, translated []string) models.Bundle {
	out := src.Clone()

	i := 0
	for j := range out.Overlay {
		out.Overlay[j].Text = translated[i]
		i++
	}
	for j := range out.Lyrics {
		out.Lyrics[j].Text = translated[i]
		i++
	}
	out.Post = translated[i]
	out.SEO.Title = translated[i+1]
	out.SEO.Description = translated[i+2]
	return out
}

func translateEach(ctx context.Context, tr Translator, texts, labels []string, source, target string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		translated, err := tr.Translate(ctx, text, source, target)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", labels[i], err)
		}
		out[i] = translated
	}
	return out, nil
}
