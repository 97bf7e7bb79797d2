package portal

import (
	"context"
	"sync"
	"time"

	"gdoc/internal/client"
	"gdoc/internal/domain"
)

type recordingNotifier struct {
	mu      sync.Mutex
	results []Result
}

func (n *recordingNotifier) Notify(r Result) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, r)
}

func (n *recordingNotifier) last() Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.results) == 0 {
		return Result{}
	}
	return n.results[len(n.results)-1]
}

type answer bool

func (a answer) Confirm(string) bool { return bool(a) }

type stubUploader struct {
	mu      sync.Mutex
	uploads []client.Upload
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubUploader) CreateDocumento(_ context.Context, up client.Upload) (domain.Document, error) {
	s.mu.Lock()
	s.uploads = append(s.uploads, up)
	started, release, err := s.started, s.release, s.err
	s.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{ID: 21, Filename: up.Filename}, nil
}

func (s *stubUploader) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// manualTimer captures the scheduled callback instead of waiting for it.
type manualTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
}

func (m *manualTimer) after(d time.Duration, fn func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	m.fn = fn
	m.stopped = false
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.stopped = true
		return true
	}
}

// pending returns the callback scheduled last, as a timer that already fired holds it.
func (m *manualTimer) pending() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn
}

func (m *manualTimer) fire() {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type stubDocumentAPI struct {
	mu        sync.Mutex
	docs      []domain.Document
	listErr   error
	deleteErr error
	lists     int
	deletes   []int64
}

func (s *stubDocumentAPI) ListDocumentos(context.Context, client.ListOptions) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]domain.Document(nil), s.docs...), nil
}

func (s *stubDocumentAPI) DeleteDocumento(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, id)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	kept := s.docs[:0]
	for _, d := range s.docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	s.docs = kept
	return nil
}
