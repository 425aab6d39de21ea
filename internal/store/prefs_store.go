package store

import (
	"context"
	"sync"

	"github.com/projects-hacks/clear-clause/internal/types"
)

// PrefsStore persists small user preferences (voice toggle, onboarding flag).
type PrefsStore interface {
	Load(ctx context.Context) (*types.Prefs, error)
	Save(ctx context.Context, prefs *types.Prefs) error
}

type FilePrefsStore struct {
	path string
	mu   sync.Mutex
}

func NewFilePrefsStore(path string) *FilePrefsStore {
	return &FilePrefsStore{path: path}
}

func (s *FilePrefsStore) Load(ctx context.Context) (*types.Prefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := &types.Prefs{}
	if !loadJSON(s.path, prefs) {
		return &types.Prefs{}, nil
	}
	return prefs, nil
}

func (s *FilePrefsStore) Save(ctx context.Context, prefs *types.Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prefs == nil {
		prefs = &types.Prefs{}
	}
	return storeJSON(s.path, prefs)
}
