package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/llm"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// Prompt defaults and overlay limits
const (
	DefaultHook                = "Opera performance"
	NoTranscriptionPlaceholder = "(no transcription available)"
	MaxOverlayCaptionLength    = 70
	MinOverlayCaptions         = 4
	MaxOverlayCaptions         = 8
)

// GeneratedContent is the JSON object the chat model must return
type GeneratedContent struct {
	Overlay models.Captions `json:"overlay"`
	Post    string          `json:"post"`
	SEO     models.SEO      `json:"seo"`
}

// BuildContentPrompt renders the generation request for p
func BuildContentPrompt(p *models.ProductionProject) string {
	hook := strings.TrimSpace(p.Hook)
	if hook == "" {
		hook = DefaultHook
	}
	transcript := strings.TrimSpace(p.Transcription)
	if transcript == "" {
		transcript = NoTranscriptionPlaceholder
	}
	duration := p.ClipDuration()

	var b strings.Builder
	fmt.Fprintf(&b, "Artist: %s\n", p.Artist)
	fmt.Fprintf(&b, "Song: %s\n", p.Song)
	fmt.Fprintf(&b, "Hook: %s\n", hook)
	fmt.Fprintf(&b, "Clip duration: %.1f seconds\n", duration)
	fmt.Fprintf(&b, "Transcription:\n%s\n\n", transcript)

	b.WriteString("Return a single JSON object with exactly three keys: \"overlay\", \"post\" and \"seo\".\n\n")

	fmt.Fprintf(&b, "\"overlay\": an array of %d to %d objects {\"start\": seconds, \"end\": seconds, \"text\": string} ", MinOverlayCaptions, MaxOverlayCaptions)
	fmt.Fprintf(&b, "spanning the whole clip. The first caption starts at 0.0 and the last one ends at %.1f. ", duration)
	fmt.Fprintf(&b, "Each text is at most %d characters, paraphrased rather than quoting the lyrics, and emotionally framed.\n\n", MaxOverlayCaptionLength)

	b.WriteString("\"post\": a social caption made of six blocks separated by one blank line:\n")
	b.WriteString("1. a one-line opener\n")
	b.WriteString("2. a short narrative about the moment\n")
	b.WriteString("3. performer credit\n")
	b.WriteString("4. work credit (composer, opera, aria)\n")
	b.WriteString("5. one binary question about what the listener feels or hears\n")
	b.WriteString("6. exactly four hashtags\n\n")

	b.WriteString("\"seo\": {\"title\": string, \"description\": string, \"tags\": [string]} for a video platform.\n")
	return b.String()
}

// contentPart selects which fields a generation run must return
type contentPart int

const (
	partAll contentPart = iota
	partOverlay
	partPost
)

// parseGeneratedContent extracts and checks the model reply
func parseGeneratedContent(reply string, part contentPart) (*GeneratedContent, error) {
	var content GeneratedContent
	if err := llm.DecodeJSON(reply, &content); err != nil {
		return nil, &failure.MalformedResponse{Service: "generation", Snippet: llm.Snippet(reply), Err: err}
	}

	content.Post = strings.TrimSpace(content.Post)
	if part != partPost && len(content.Overlay) == 0 {
		return nil, &failure.MalformedResponse{Service: "generation", Snippet: llm.Snippet(reply), Err: fmt.Errorf("missing overlay")}
	}
	if part != partOverlay && content.Post == "" {
		return nil, &failure.MalformedResponse{Service: "generation", Snippet: llm.Snippet(reply), Err: fmt.Errorf("missing post")}
	}
	return &content, nil
}

// NormalizeOverlay orders captions, bounds their text and pins them to [0, clipDuration].
// A non-positive clipDuration leaves the last end untouched.
func NormalizeOverlay(captions models.Captions, clipDuration float64) models.Captions {
	out := make(models.Captions, 0, len(captions))
	for _, c := range captions {
		c.Text = truncateCaption(c.Text)
		if c.Text == "" {
			continue
		}
		if c.Start < 0 {
			c.Start = 0
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})

	if clipDuration > 0 {
		kept := out[:1]
		for _, c := range out[1:] {
			if c.Start < clipDuration {
				kept = append(kept, c)
			}
		}
		out = kept
	}

	out[0].Start = 0
	for i := range out {
		next := clipDuration
		if i+1 < len(out) {
			next = out[i+1].Start
		}
		if clipDuration > 0 && out[i].End > clipDuration {
			out[i].End = clipDuration
		}
		if out[i].End <= out[i].Start && next > out[i].Start {
			out[i].End = next
		}
	}
	if clipDuration > 0 {
		out[len(out)-1].End = clipDuration
	}
	return out
}

func truncateCaption(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= MaxOverlayCaptionLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:MaxOverlayCaptionLength]))
}
