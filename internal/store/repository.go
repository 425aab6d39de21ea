package store

import (
	"errors"
	"strings"
	"time"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

// Repository aggregates the durable stores behind one handle.
type Repository interface {
	Sessions() SessionStore
	Chats() ChatStore
	Prefs() PrefsStore
	Backend() string
	Close() error
}

type RepositoryPaths struct {
	SessionsPath string
	ChatsDir     string
	PrefsPath    string
	DBPath       string
}

type fileRepository struct {
	sessions SessionStore
	chats    ChatStore
	prefs    PrefsStore
}

func NewFileRepository(paths RepositoryPaths, ttl time.Duration) Repository {
	return &fileRepository{
		sessions: NewFileSessionStore(paths.SessionsPath, ttl),
		chats:    NewFileChatStore(paths.ChatsDir),
		prefs:    NewFilePrefsStore(paths.PrefsPath),
	}
}

func (r *fileRepository) Sessions() SessionStore {
	return r.sessions
}

func (r *fileRepository) Chats() ChatStore {
	return r.chats
}

func (r *fileRepository) Prefs() PrefsStore {
	return r.prefs
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

func OpenRepository(paths RepositoryPaths, backend string, ttl time.Duration) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		if strings.TrimSpace(paths.DBPath) == "" {
			return nil, errors.New("db path is required for bbolt repository")
		}
		return NewBboltRepository(paths.DBPath, ttl)
	case RepositoryBackendFile:
		return NewFileRepository(paths, ttl), nil
	default:
		return nil, errors.New("unsupported repository backend: " + backend)
	}
}
