package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

func TestOutputVideoName(t *testing.T) {
	p := &models.ProductionProject{ID: "3f2a9c1e-aaaa-bbbb-cccc-000000000000", Artist: "Plácido Domingo", Song: "E lucevan le stelle!"}
	assert.Equal(t, "Plácido_Domingo_E_lucevan_le_stelle_3f2a9c1e.mp4", OutputVideoName(p))

	p = &models.ProductionProject{ID: "abc", Artist: "///", Song: "Aria"}
	assert.Equal(t, "Aria_abc.mp4", OutputVideoName(p))
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	p := &models.ProductionProject{
		TranscriptionSegments: models.Captions{{Start: 65.25, End: 70, Text: "Vincerò"}},
		Translations: models.Translations{
			"en": {
				Overlay: models.Captions{{Start: 0, End: 2.5, Text: "Dawn breaks"}},
				Post:    "post",
				SEO:     models.SEO{Title: "T", Tags: []string{"opera"}},
				Lyrics:  models.Captions{{Start: 65.25, End: 70, Text: "I will win"}},
			},
			"it": {
				Overlay: models.Captions{{Start: 0, End: 2.5, Text: "Sorge l'alba"}},
				Post:    "testo",
			},
		},
	}

	count, err := writeArtifacts(dir, p)
	require.NoError(t, err)
	assert.Equal(t, 9, count)

	lyrics, err := os.ReadFile(filepath.Join(dir, OriginalLyricsFile))
	require.NoError(t, err)
	assert.Equal(t, "1\n00:01:05,250 --> 00:01:10,000\nVincerò\n\n", string(lyrics))

	raw, err := os.ReadFile(filepath.Join(dir, "seo_en.json"))
	require.NoError(t, err)
	var seo models.SEO
	require.NoError(t, json.Unmarshal(raw, &seo))
	assert.Equal(t, []string{"opera"}, seo.Tags)

	listing, err := listExport(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, listing.TotalFiles)
	assert.Equal(t, "lyrics_en.srt", listing.Files[0].Path)
}
