package models

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a production project
type Status string

// Project statuses
const (
	StatusUploaded     Status = "uploaded"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusGenerating   Status = "generating"
	StatusGenerated    Status = "generated"
	StatusTranslating  Status = "translating"
	StatusTranslated   Status = "translated"
	StatusProcessing   Status = "processing"
	StatusCompleted    Status = "completed"
	StatusError        Status = "error"
)

var allStatuses = []Status{
	StatusUploaded,
	StatusTranscribing,
	StatusTranscribed,
	StatusGenerating,
	StatusGenerated,
	StatusTranslating,
	StatusTranslated,
	StatusProcessing,
	StatusCompleted,
	StatusError,
}

var inProgressStatuses = map[Status]struct{}{
	StatusTranscribing: {},
	StatusGenerating:   {},
	StatusTranslating:  {},
	StatusProcessing:   {},
}

// AllStatuses returns every defined status in pipeline order
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a stored string into a Status, rejecting unknown values
func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if !status.Valid() {
		return "", fmt.Errorf("unknown project status %q", value)
	}
	return status, nil
}

// Valid reports whether the status is one of the defined values
func (s Status) Valid() bool {
	for _, candidate := range allStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// InProgress reports whether the status marks a running stage
func (s Status) InProgress() bool {
	_, ok := inProgressStatuses[s]
	return ok
}

// Terminal reports whether no further stage is expected
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// ProductionProject is one uploaded video moving through the production pipeline
type ProductionProject struct {
	ID                    string       `json:"id" db:"id"`
	Artist                string       `json:"artist" db:"artist"`
	Song                  string       `json:"song" db:"song"`
	Hook                  string       `json:"hook,omitempty" db:"hook"`
	VideoPath             string       `json:"video_path" db:"video_path"`
	Duration              float64      `json:"duration" db:"duration"`
	CutStart              float64      `json:"cut_start" db:"cut_start"`
	CutEnd                *float64     `json:"cut_end,omitempty" db:"cut_end"`
	Language              string       `json:"language" db:"language"`
	Status                Status       `json:"status" db:"status"`
	Transcription         string       `json:"transcription,omitempty" db:"transcription"`
	TranscriptionSegments Captions     `json:"transcription_segments" db:"transcription_segments"`
	OverlaySubtitles      Captions     `json:"overlay_subtitles" db:"overlay_subtitles"`
	PostText              string       `json:"post_text,omitempty" db:"post_text"`
	YouTubeSEO            SEO          `json:"youtube_seo" db:"youtube_seo"`
	OverlayApproved       bool         `json:"overlay_approved" db:"overlay_approved"`
	PostApproved          bool         `json:"post_approved" db:"post_approved"`
	Translations          Translations `json:"translations" db:"translations"`
	OutputPath            string       `json:"output_path,omitempty" db:"output_path"`
	ErrorMessage          string       `json:"error_message,omitempty" db:"error_message"`
	OfficialLyrics        string       `json:"official_lyrics,omitempty" db:"official_lyrics"`
	Version               int64        `json:"version" db:"version"`
	CreatedAt             time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at" db:"updated_at"`
}

// ErrProjectNotFound is returned when no project has the requested ID
var ErrProjectNotFound = errors.New("project not found")

// ErrInvalidCut is returned when cut_end does not exceed cut_start
var ErrInvalidCut = errors.New("cut_end must be greater than cut_start")

// ValidateCut checks the clip bounds
func (p *ProductionProject) ValidateCut() error {
	if p.CutStart < 0 {
		return fmt.Errorf("cut_start must not be negative")
	}
	if p.CutEnd != nil && *p.CutEnd <= p.CutStart {
		return ErrInvalidCut
	}
	return nil
}

// ClipDuration returns the length of the clip in seconds.
// A missing cut_end means "to the end of the source".
func (p *ProductionProject) ClipDuration() float64 {
	if p.CutEnd != nil {
		return *p.CutEnd - p.CutStart
	}
	d := p.Duration - p.CutStart
	if d < 0 {
		return 0
	}
	return d
}

// NeedsTrim reports whether export must cut the source
func (p *ProductionProject) NeedsTrim() bool {
	return p.CutStart > 0 || p.CutEnd != nil
}

// HasOverlay reports whether overlay captions have been generated
func (p *ProductionProject) HasOverlay() bool {
	return len(p.OverlaySubtitles) > 0
}

// HasPost reports whether a social post has been generated
func (p *ProductionProject) HasPost() bool {
	return p.PostText != ""
}

// WorkingBundle returns the current working-language content as a bundle
func (p *ProductionProject) WorkingBundle() Bundle {
	return Bundle{
		Overlay: p.OverlaySubtitles.Clone(),
		Post:    p.PostText,
		SEO:     p.YouTubeSEO.Clone(),
		Lyrics:  p.TranscriptionSegments.Clone(),
	}
}

// ProjectStatus is the compact view returned to pollers
type ProjectStatus struct {
	ID              string `json:"id"`
	Status          Status `json:"status"`
	OverlayApproved bool   `json:"overlay_approved"`
	PostApproved    bool   `json:"post_approved"`
	ErrorMessage    string `json:"error_message,omitempty"`
	// Notice reports a follow-up action that did not happen, such as translation not starting after approval
	Notice string `json:"notice,omitempty"`
}

// StatusView builds the polling view of the project
func (p *ProductionProject) StatusView() ProjectStatus {
	return ProjectStatus{
		ID:              p.ID,
		Status:          p.Status,
		OverlayApproved: p.OverlayApproved,
		PostApproved:    p.PostApproved,
		ErrorMessage:    p.ErrorMessage,
	}
}
