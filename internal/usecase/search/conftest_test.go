package search

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kfsearch/internal/domain/candidate"
)

// --- Mocks ---

type mockDense struct {
	name     string
	results  []candidate.Candidate
	err      error
	calls    int
	captions bool
	lastK    int
}

func (m *mockDense) Name() string { return m.name }

func (m *mockDense) Search(_ context.Context, _ string, k int, captions bool) ([]candidate.Candidate, error) {
	m.calls++
	m.captions = captions
	m.lastK = k
	return m.results, m.err
}

type mockKeyword struct {
	name      string
	results   []candidate.Candidate
	err       error
	calls     int
	fuzzy     bool
	lastFuzzy bool
}

func (m *mockKeyword) Name() string       { return m.name }
func (m *mockKeyword) DefaultFuzzy() bool { return m.fuzzy }

func (m *mockKeyword) Search(_ context.Context, _ string, _ int, fuzzy bool) ([]candidate.Candidate, error) {
	m.calls++
	m.lastFuzzy = fuzzy
	return m.results, m.err
}

type mockFrames struct {
	mu    sync.Mutex
	dirs  map[string][]string
	err   error
	calls []string
}

func (m *mockFrames) ListImages(_ context.Context, dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, dir)
	if m.err != nil {
		return nil, m.err
	}
	if names, ok := m.dirs[dir]; ok {
		return names, nil
	}
	return []string{}, nil
}

func newTestService(dense *mockDense, frames *mockFrames) *Service {
	sources := &Sources{
		Dense:        map[string]DenseSource{dense.name: dense},
		CaptionModel: dense.name,
		NoCapModel:   dense.name,
	}
	return New(sources, frames, Options{}, zap.NewNop())
}
