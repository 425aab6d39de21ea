package store

import (
	"context"
	"sync"
	"time"

	"github.com/projects-hacks/clear-clause/internal/types"
)

const sessionsSchemaVersion = 1

// SessionStore durably persists the full session collection. Load returns a
// sanitized collection; reads tolerate missing or corrupt data by falling
// back to an empty collection.
type SessionStore interface {
	Load(ctx context.Context) ([]*types.Session, error)
	Save(ctx context.Context, sessions []*types.Session) error
}

type FileSessionStore struct {
	path string
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

type sessionsFile struct {
	Version  int              `json:"version"`
	Sessions []*types.Session `json:"sessions"`
}

func NewFileSessionStore(path string, ttl time.Duration) *FileSessionStore {
	return &FileSessionStore{path: path, ttl: ttl, now: time.Now}
}

func (s *FileSessionStore) Load(ctx context.Context) ([]*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := &sessionsFile{}
	if !loadJSON(s.path, file) {
		return []*types.Session{}, nil
	}

	cleaned, changed := sanitizeSessions(file.Sessions, s.now(), s.ttl)
	if changed {
		// Re-persisting the cleaned collection is best effort: hydration must
		// succeed even when storage is briefly unwritable, and the next
		// successful save rewrites the collection anyway.
		_ = s.save(cleaned)
	}

	out := make([]*types.Session, 0, len(cleaned))
	for _, session := range cleaned {
		out = append(out, types.CloneSession(session))
	}
	return out, nil
}

func (s *FileSessionStore) Save(ctx context.Context, sessions []*types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(sessions)
}

func (s *FileSessionStore) save(sessions []*types.Session) error {
	if sessions == nil {
		sessions = []*types.Session{}
	}
	return storeJSON(s.path, &sessionsFile{
		Version:  sessionsSchemaVersion,
		Sessions: sessions,
	})
}
