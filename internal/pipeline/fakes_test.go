package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/transcription"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

type memoryStore struct {
	mu       sync.Mutex
	projects map[string]*models.ProductionProject
	// getErr is returned once by the next Get
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{projects: make(map[string]*models.ProductionProject)}
}

func cloneProject(p *models.ProductionProject) *models.ProductionProject {
	c := *p
	c.TranscriptionSegments = p.TranscriptionSegments.Clone()
	c.OverlaySubtitles = p.OverlaySubtitles.Clone()
	c.YouTubeSEO = p.YouTubeSEO.Clone()
	if p.CutEnd != nil {
		end := *p.CutEnd
		c.CutEnd = &end
	}
	c.Translations = make(models.Translations, len(p.Translations))
	for lang, b := range p.Translations {
		c.Translations[lang] = b.Clone()
	}
	return &c
}

func (s *memoryStore) put(p *models.ProductionProject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = cloneProject(p)
}

func (s *memoryStore) Create(_ context.Context, p *models.ProductionProject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	s.projects[p.ID] = cloneProject(p)
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*models.ProductionProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.getErr; err != nil {
		s.getErr = nil
		return nil, err
	}
	p, ok := s.projects[id]
	if !ok {
		return nil, models.ErrProjectNotFound
	}
	return cloneProject(p), nil
}

func (s *memoryStore) List(_ context.Context, limit, offset int) ([]*models.ProductionProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ProductionProject, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, cloneProject(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []*models.ProductionProject{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) update(id string, fn func(p *models.ProductionProject)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return models.ErrProjectNotFound
	}
	fn(p)
	p.Version++
	p.UpdatedAt = time.Now()
	return nil
}

func (s *memoryStore) UpdateStatus(_ context.Context, id string, status models.Status, errorMessage string) error {
	return s.update(id, func(p *models.ProductionProject) {
		p.Status = status
		p.ErrorMessage = errorMessage
	})
}

func (s *memoryStore) UpdateTranscription(_ context.Context, id, text string, segments models.Captions) error {
	return s.update(id, func(p *models.ProductionProject) {
		p.Transcription = text
		p.TranscriptionSegments = segments.Clone()
	})
}

func (s *memoryStore) UpdateContent(_ context.Context, id string, overlay models.Captions, post string, seo models.SEO) error {
	return s.update(id, func(p *models.ProductionProject) {
		p.OverlaySubtitles = overlay.Clone()
		p.PostText = post
		p.YouTubeSEO = seo.Clone()
		p.OverlayApproved = false
		p.PostApproved = false
	})
}

func (s *memoryStore) UpdateOverlay(_ context.Context, id string, overlay models.Captions, approved bool) error {
	return s.update(id, func(p *models.ProductionProject) {
		p.OverlaySubtitles = overlay.Clone()
		p.OverlayApproved = approved
	})
}

func (s *memoryStore) UpdatePost(_ context.Context, id, post string, approved bool) error {
	return s.update(id, func(p *models.ProductionProject) {
		p.PostText = post
		p.PostApproved = approved
	})
}

func (s *memoryStore) UpdateSEO(_ context.Context, id string, seo models.SEO) error {
	return s.update(id, func(p *models.ProductionProject) {
		p.YouTubeSEO = seo.Clone()
	})
}

func (s *memoryStore) UpdateTranslations(_ context.Context, id string, translations models.Translations) error {
	return s.update(id, func(p *models.ProductionProject) {
		p.Translations = make(models.Translations, len(translations))
		for lang, b := range translations {
			p.Translations[lang] = b.Clone()
		}
	})
}

func (s *memoryStore) UpdateOutput(_ context.Context, id, outputPath string) error {
	return s.update(id, func(p *models.ProductionProject) {
		p.OutputPath = outputPath
	})
}

func (s *memoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return false, nil
	}
	delete(s.projects, id)
	return true, nil
}

type fakeMedia struct {
	duration   float64
	extractErr error
	trimErr    error

	mu       sync.Mutex
	trimmed  []string
	trimArgs []float64
}

func (m *fakeMedia) ProbeDuration(_ context.Context, _ string) (float64, error) {
	return m.duration, nil
}

func (m *fakeMedia) ExtractAudio(_ context.Context, _, outputPath string) error {
	if m.extractErr != nil {
		return m.extractErr
	}
	return os.WriteFile(outputPath, []byte("RIFF"), 0644)
}

func (m *fakeMedia) Trim(_ context.Context, _, outputPath string, start float64, end *float64) error {
	if m.trimErr != nil {
		return m.trimErr
	}
	m.mu.Lock()
	m.trimmed = append(m.trimmed, outputPath)
	m.trimArgs = append(m.trimArgs, start)
	if end != nil {
		m.trimArgs = append(m.trimArgs, *end)
	}
	m.mu.Unlock()
	return os.WriteFile(outputPath, []byte("mp4"), 0644)
}

type fakeTranscriber struct {
	result       *transcription.Result
	err          error
	lastLanguage string
	lastAudio    string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath, language string) (*transcription.Result, error) {
	f.lastAudio = audioPath
	f.lastLanguage = language
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (f *fakeGenerator) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no reply queued")
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

// prefixTranslator tags text with the target language and fails for listed targets
type prefixTranslator struct {
	failFor map[string]bool
	panicOn map[string]bool
}

func (t *prefixTranslator) Translate(_ context.Context, text, _, target string) (string, error) {
	if t.panicOn[target] {
		panic("translator exploded")
	}
	if t.failFor[target] {
		return "", &failure.IntegrationFailure{Service: "translation", StatusCode: 403}
	}
	if text == "" {
		return "", nil
	}
	return fmt.Sprintf("[%s] %s", target, text), nil
}

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []*models.StageTask
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, task *models.StageTask) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, event string, status models.ProjectStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event+":"+string(status.Status))
	return nil
}

func (n *recordingNotifier) joined() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return strings.Join(n.events, ",")
}

const contentReply = "```json\n" + `{
  "overlay": [
    {"start": 0.4, "end": 7, "text": "She knows this is the last night"},
    {"start": 7, "end": 14, "text": "Every note is a goodbye"},
    {"start": 14, "end": 21, "text": "The orchestra holds its breath"},
    {"start": 21, "end": 28, "text": "And then the high C arrives"}
  ],
  "post": "Opener\n\nNarrative\n\nPerformer\n\nWork\n\nChills or tears?\n\n#opera #aria #soprano #classical",
  "seo": {"title": "Last Night", "description": "An aria", "tags": ["opera", "aria"]}
}` + "\n```"

func float64Ptr(v float64) *float64 {
	return &v
}
