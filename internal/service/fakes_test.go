package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"indialaw-go/internal/model"
)

type fakeGuard struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released []string
}

func newFakeGuard() *fakeGuard { return &fakeGuard{held: map[string]bool{}} }

func (g *fakeGuard) Acquire(_ context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.held[id] {
		return false, nil
	}
	g.held[id] = true
	return true, nil
}

func (g *fakeGuard) Release(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, id)
	g.released = append(g.released, id)
	return nil
}

type fakeBlacklist struct {
	mu  sync.Mutex
	ids map[string]time.Duration
}

func newFakeBlacklist() *fakeBlacklist { return &fakeBlacklist{ids: map[string]time.Duration{}} }

func (b *fakeBlacklist) Add(_ context.Context, id string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids[id] = ttl
	return nil
}

func (b *fakeBlacklist) Contains(_ context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.ids[id]
	return ok, nil
}

type fakeTranslator struct {
	language string
	err      error
	targets  []string
}

func (t *fakeTranslator) DetectLanguage(_ context.Context, _ string) string {
	if t.language == "" {
		return "en"
	}
	return t.language
}

func (t *fakeTranslator) Translate(_ context.Context, text, target string) (string, error) {
	t.targets = append(t.targets, target)
	if t.err != nil {
		return "", t.err
	}
	return "[" + target + "] " + text, nil
}

type fakeSearcher struct {
	hits []model.KnowledgeHit
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]model.KnowledgeHit, error) {
	return f.hits, f.err
}

// recordingSink 记录流式事件，可在第 failAt 个 Content 时返回错误。
type recordingSink struct {
	chunks      []string
	completed   []string
	failAt      int
	completeErr error
}

var errClientGone = errors.New("client disconnected")

func (s *recordingSink) Content(chunk string) error {
	if s.failAt > 0 && len(s.chunks)+1 == s.failAt {
		return errClientGone
	}
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *recordingSink) Complete(answer string) error {
	if s.completeErr != nil {
		return s.completeErr
	}
	s.completed = append(s.completed, answer)
	return nil
}
