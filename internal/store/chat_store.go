package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/projects-hacks/clear-clause/internal/types"
)

const chatSchemaVersion = 1

// ChatStore persists per-session chat histories. Messages are a dependent
// sub-resource keyed by session id.
type ChatStore interface {
	LoadMessages(ctx context.Context, sessionID string) ([]*types.ChatMessage, error)
	SaveMessages(ctx context.Context, sessionID string, messages []*types.ChatMessage) error
	DeleteMessages(ctx context.Context, sessionID string) error
}

type FileChatStore struct {
	dir string
	mu  sync.Mutex
}

type chatFile struct {
	Version  int                  `json:"version"`
	Messages []*types.ChatMessage `json:"messages"`
}

func NewFileChatStore(dir string) *FileChatStore {
	return &FileChatStore{dir: dir}
}

func (s *FileChatStore) LoadMessages(ctx context.Context, sessionID string) ([]*types.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := &chatFile{}
	if !loadJSON(s.messagesPath(sessionID), file) {
		return []*types.ChatMessage{}, nil
	}
	out := make([]*types.ChatMessage, 0, len(file.Messages))
	for _, msg := range file.Messages {
		if msg == nil {
			continue
		}
		out = append(out, types.CloneChatMessage(msg))
	}
	return out, nil
}

func (s *FileChatStore) SaveMessages(ctx context.Context, sessionID string, messages []*types.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if messages == nil {
		messages = []*types.ChatMessage{}
	}
	return storeJSON(s.messagesPath(sessionID), &chatFile{
		Version:  chatSchemaVersion,
		Messages: messages,
	})
}

func (s *FileChatStore) DeleteMessages(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.messagesPath(sessionID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileChatStore) messagesPath(sessionID string) string {
	return filepath.Join(s.dir, safeFileName(sessionID)+".json")
}

// safeFileName keeps session ids usable as file names even if the backend
// ever hands out ids with path characters in them.
func safeFileName(id string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	cleaned := replacer.Replace(strings.TrimSpace(id))
	if cleaned == "" {
		return "_"
	}
	return cleaned
}
