package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/metrics"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/subtitle"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// OriginalLyricsFile holds the untranslated lyric segments
const OriginalLyricsFile = "lyrics_original.srt"

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// ExportFile is one artifact in a project's export directory
type ExportFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// ExportListing lists a project's exported artifacts
type ExportListing struct {
	Files      []ExportFile `json:"files"`
	TotalFiles int          `json:"total_files"`
}

func (r *Runner) process(ctx context.Context, p *models.ProductionProject) error {
	if len(p.Translations) == 0 {
		return failure.Validation("translations are empty, run translate first")
	}

	exportDir := r.cfg.ExportDir(p.ID)
	if err := os.RemoveAll(exportDir); err != nil {
		return fmt.Errorf("failed to clear export directory: %w", err)
	}
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	written, err := writeArtifacts(exportDir, p)
	if err != nil {
		return err
	}

	if p.NeedsTrim() {
		out := filepath.Join(exportDir, OutputVideoName(p))
		if err := r.deps.Media.Trim(ctx, p.VideoPath, out, p.CutStart, p.CutEnd); err != nil {
			return err
		}
		written++
	}
	metrics.RecordExportFiles(written)

	if r.deps.Mirror != nil {
		if _, err := r.deps.Mirror.Mirror(ctx, exportDir, mirrorPrefix(p.ID)); err != nil {
			return &failure.IntegrationFailure{Service: "storage", Err: err}
		}
	}

	if err := r.deps.Store.UpdateOutput(ctx, p.ID, exportDir); err != nil {
		return fmt.Errorf("failed to save output path: %w", err)
	}
	return r.setStatus(ctx, p.ID, models.StatusCompleted, "")
}

// writeArtifacts renders every per-language file plus the original lyrics track
func writeArtifacts(dir string, p *models.ProductionProject) (int, error) {
	count := 0
	write := func(name string, data []byte) error {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		count++
		return nil
	}

	for _, lang := range sortedLanguages(p.Translations) {
		bundle := p.Translations[lang]

		seo, err := json.MarshalIndent(bundle.SEO.Clone(), "", "  ")
		if err != nil {
			return count, fmt.Errorf("failed to encode seo for %s: %w", lang, err)
		}

		files := []struct {
			name string
			data []byte
		}{
			{"overlay_" + lang + ".srt", []byte(subtitle.Render(bundle.Overlay))},
			{"lyrics_" + lang + ".srt", []byte(subtitle.Render(bundle.Lyrics))},
			{"post_" + lang + ".txt", []byte(bundle.Post)},
			{"seo_" + lang + ".json", seo},
		}
		for _, f := range files {
			if err := write(f.name, f.data); err != nil {
				return count, err
			}
		}
	}

	if err := write(OriginalLyricsFile, []byte(subtitle.Render(p.TranscriptionSegments))); err != nil {
		return count, err
	}
	return count, nil
}

// OutputVideoName is the clipped video's file name: <artist>_<song>_<id8>.mp4
func OutputVideoName(p *models.ProductionProject) string {
	id := p.ID
	if len(id) > 8 {
		id = id[:8]
	}
	parts := make([]string, 0, 3)
	for _, part := range []string{p.Artist, p.Song} {
		if clean := strings.Trim(unsafeName.ReplaceAllString(part, "_"), "_"); clean != "" {
			parts = append(parts, clean)
		}
	}
	parts = append(parts, id)
	return strings.Join(parts, "_") + ".mp4"
}

// listExport walks dir and returns relative paths with sizes
func listExport(dir string) (*ExportListing, error) {
	listing := &ExportListing{Files: []ExportFile{}}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		listing.Files = append(listing.Files, ExportFile{Path: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list export directory: %w", err)
	}

	sort.Slice(listing.Files, func(i, j int) bool {
		return listing.Files[i].Path < listing.Files[j].Path
	})
	listing.TotalFiles = len(listing.Files)
	return listing, nil
}
