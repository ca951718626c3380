// Package artifact keeps transcoded outputs addressable for download
// without a remote round-trip. Artifacts live on local disk for the
// lifetime of the session window and are fetched by an opaque token, so
// storage egress cost is only paid when an account opts into durable
// history.
package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrExpired is returned when a token is unknown or its artifact aged out.
var ErrExpired = errors.New("artifact expired or unknown")

// Entry is one registered artifact.
type Entry struct {
	Token     string
	Name      string
	Path      string
	Size      int64
	CreatedAt time.Time
}

// Store is a token-addressed, disk-backed artifact registry with TTL
// expiry.
type Store struct {
	dir string
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
}

func NewStore(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		dir:     dir,
		ttl:     ttl,
		entries: make(map[string]*Entry),
		now:     time.Now,
	}, nil
}

// Dir returns the working directory artifacts are written into.
func (s *Store) Dir() string {
	return s.dir
}

// NewWorkPath reserves a unique output path for an encode in progress.
func (s *Store) NewWorkPath(ext string) string {
	return filepath.Join(s.dir, uuid.NewString()+ext)
}

// Register makes an on-disk file downloadable under a fresh token.
func (s *Store) Register(path, name string, size int64) *Entry {
	e := &Entry{
		Token:     uuid.NewString(),
		Name:      name,
		Path:      path,
		Size:      size,
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	s.entries[e.Token] = e
	s.mu.Unlock()
	return e
}

// Get resolves a token to its artifact, expiring aged entries lazily.
func (s *Store) Get(token string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok {
		return nil, ErrExpired
	}
	if s.now().Sub(e.CreatedAt) > s.ttl {
		delete(s.entries, token)
		_ = os.Remove(e.Path)
		return nil, ErrExpired
	}
	return e, nil
}

// Sweep removes expired artifacts and their files. Returns the number
// removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, e := range s.entries {
		if s.now().Sub(e.CreatedAt) > s.ttl {
			delete(s.entries, token)
			_ = os.Remove(e.Path)
			removed++
		}
	}
	return removed
}
