package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/editor"
	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/projection"
)

// DefaultWorkspaceTTL is how long an untouched workspace is kept.
const DefaultWorkspaceTTL = 24 * time.Hour

// Workspace is one editable document held by the server.
//
// The engine is single-threaded, so every access goes through [Workspace.Do].
type Workspace struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	mu sync.Mutex
	ed *editor.Editor
}

// IsExpired returns true if the workspace has not been used within its TTL.
func (w *Workspace) IsExpired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Now().After(w.ExpiresAt)
}

// Do runs fn with exclusive access to the workspace editor.
func (w *Workspace) Do(fn func(ed *editor.Editor) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn(w.ed)
}

func (w *Workspace) touch(ttl time.Duration) {
	w.mu.Lock()
	w.ExpiresAt = time.Now().Add(ttl)
	w.mu.Unlock()
}

func (w *Workspace) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ed.Close()
}

// Store keeps workspaces in memory. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	items   map[string]*Workspace
	ttl     time.Duration
	cfg     editor.Config
	metrics projection.Metrics
	created atomic.Int64
}

// NewStore creates an empty store. Workspaces are built with cfg and laid out
// with m. A ttl of 0 uses DefaultWorkspaceTTL.
func NewStore(cfg editor.Config, m projection.Metrics, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultWorkspaceTTL
	}
	return &Store{items: make(map[string]*Workspace), ttl: ttl, cfg: cfg, metrics: m}
}

// Create makes a workspace, loading snap when it is non-nil.
func (s *Store) Create(snap document.Snapshot) (*Workspace, error) {
	doc := document.New()
	ed := editor.New(doc, projection.NewLayout(doc, s.metrics), editor.WithConfig(s.cfg))
	if snap != nil {
		if err := ed.Import(snap, false); err != nil {
			ed.Close()
			return nil, err
		}
	}

	now := time.Now()
	w := &Workspace{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		ed:        ed,
	}

	s.mu.Lock()
	s.items[w.ID] = w
	s.mu.Unlock()
	s.created.Add(1)
	return w, nil
}

// Get returns a live workspace and extends its lifetime.
func (s *Store) Get(id string) (*Workspace, error) {
	s.mu.RLock()
	w, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "workspace %s", id)
	}
	if w.IsExpired() {
		s.Delete(id)
		return nil, errors.New(errors.ErrCodeNotFound, "workspace %s expired", id)
	}
	w.touch(s.ttl)
	return w, nil
}

// Delete removes a workspace. It reports whether the workspace existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	w, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()
	if ok {
		w.close()
	}
	return ok
}

// Len returns the number of held workspaces, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Served returns how many workspaces the store has created.
func (s *Store) Served() int {
	return int(s.created.Load())
}

// Cleanup removes expired workspaces and returns how many were dropped.
func (s *Store) Cleanup() int {
	s.mu.RLock()
	var expired []string
	for id, w := range s.items {
		if w.IsExpired() {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	n := 0
	for _, id := range expired {
		if s.Delete(id) {
			n++
		}
	}
	return n
}

// Sweep calls Cleanup every interval until ctx is done.
func (s *Store) Sweep(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Cleanup()
		}
	}
}

// Close drops every workspace.
func (s *Store) Close() {
	s.mu.Lock()
	items := s.items
	s.items = make(map[string]*Workspace)
	s.mu.Unlock()
	for _, w := range items {
		w.close()
	}
}
