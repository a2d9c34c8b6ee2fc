package document

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces node identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator yields random RFC 4122 version 4 identifiers.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Sequential yields Prefix1, Prefix2, ... It is mainly used for fixtures and
// tests where ids must be predictable. An empty Prefix defaults to "n".
type Sequential struct {
	Prefix string

	mu sync.Mutex
	n  int
}

// NewID implements IDGenerator.
func (s *Sequential) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	p := s.Prefix
	if p == "" {
		p = "n"
	}
	return p + strconv.Itoa(s.n)
}
