package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Caption is one timed line of text, used both for overlay captions and lyric segments
type Caption struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Captions is an ordered list of timed lines
type Captions []Caption

// Clone returns an independent copy
func (c Captions) Clone() Captions {
	if c == nil {
		return Captions{}
	}
	out := make(Captions, len(c))
	copy(out, c)
	return out
}

// Value implements driver.Valuer for database storage
func (c Captions) Value() (driver.Value, error) {
	if c == nil {
		c = Captions{}
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for database retrieval
func (c *Captions) Scan(value interface{}) error {
	return scanJSON(value, c)
}

// SEO holds the video platform metadata
type SEO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Clone returns an independent copy
func (s SEO) Clone() SEO {
	tags := make([]string, len(s.Tags))
	copy(tags, s.Tags)
	return SEO{Title: s.Title, Description: s.Description, Tags: tags}
}

// Value implements driver.Valuer for database storage
func (s SEO) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for database retrieval
func (s *SEO) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// Bundle is the per-language content produced by translation
type Bundle struct {
	Overlay Captions `json:"overlay"`
	Post    string   `json:"post"`
	SEO     SEO      `json:"seo"`
	Lyrics  Captions `json:"lyrics"`
}

// Clone returns an independent copy
func (b Bundle) Clone() Bundle {
	return Bundle{
		Overlay: b.Overlay.Clone(),
		Post:    b.Post,
		SEO:     b.SEO.Clone(),
		Lyrics:  b.Lyrics.Clone(),
	}
}

// Translations maps a language code to its bundle
type Translations map[string]Bundle

// Value implements driver.Valuer for database storage
func (t Translations) Value() (driver.Value, error) {
	if t == nil {
		t = Translations{}
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner for database retrieval
func (t *Translations) Scan(value interface{}) error {
	return scanJSON(value, t)
}

func scanJSON(value interface{}, target interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
