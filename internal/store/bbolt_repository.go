package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/projects-hacks/clear-clause/internal/types"
)

var (
	bucketSessions = []byte("sessions")
	bucketChats    = []byte("chat_messages")
	bucketPrefs    = []byte("prefs")
	keySessions    = []byte("collection")
	keyPrefs       = []byte("prefs")
)

type bboltRepository struct {
	db       *bolt.DB
	sessions SessionStore
	chats    ChatStore
	prefs    PrefsStore
}

func NewBboltRepository(path string, ttl time.Duration) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:       db,
		sessions: &bboltSessionStore{db: db, ttl: ttl, now: time.Now},
		chats:    &bboltChatStore{db: db},
		prefs:    &bboltPrefsStore{db: db},
	}, nil
}

func (r *bboltRepository) Sessions() SessionStore {
	return r.sessions
}

func (r *bboltRepository) Chats() ChatStore {
	return r.chats
}

func (r *bboltRepository) Prefs() PrefsStore {
	return r.prefs
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSessions); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketChats); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketPrefs); err != nil {
			return err
		}
		return nil
	})
}

// The session collection is stored as one value: writes are whole-collection
// snapshots, which keeps insertion order without key gymnastics.
type bboltSessionStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

func (s *bboltSessionStore) Load(ctx context.Context) ([]*types.Session, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b == nil {
			return nil
		}
		if v := b.Get(keySessions); v != nil {
			raw = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []*types.Session{}, nil
	}

	file := &sessionsFile{}
	if err := json.Unmarshal(raw, file); err != nil {
		return []*types.Session{}, nil
	}

	cleaned, changed := sanitizeSessions(file.Sessions, s.now(), s.ttl)
	if changed {
		// Best effort, as in the file store: a failed re-persist must not
		// abort hydration.
		_ = s.Save(ctx, cleaned)
	}

	out := make([]*types.Session, 0, len(cleaned))
	for _, session := range cleaned {
		out = append(out, types.CloneSession(session))
	}
	return out, nil
}

func (s *bboltSessionStore) Save(ctx context.Context, sessions []*types.Session) error {
	if sessions == nil {
		sessions = []*types.Session{}
	}
	data, err := json.Marshal(&sessionsFile{Version: sessionsSchemaVersion, Sessions: sessions})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Put(keySessions, data)
	})
}

type bboltChatStore struct {
	db *bolt.DB
}

func (s *bboltChatStore) LoadMessages(ctx context.Context, sessionID string) ([]*types.ChatMessage, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketChats)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(sessionID)); v != nil {
			raw = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []*types.ChatMessage{}, nil
	}

	file := &chatFile{}
	if err := json.Unmarshal(raw, file); err != nil {
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

func (s *bboltChatStore) SaveMessages(ctx context.Context, sessionID string, messages []*types.ChatMessage) error {
	if messages == nil {
		messages = []*types.ChatMessage{}
	}
	data, err := json.Marshal(&chatFile{Version: chatSchemaVersion, Messages: messages})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChats).Put([]byte(sessionID), data)
	})
}

func (s *bboltChatStore) DeleteMessages(ctx context.Context, sessionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChats).Delete([]byte(sessionID))
	})
}

type bboltPrefsStore struct {
	db *bolt.DB
}

func (s *bboltPrefsStore) Load(ctx context.Context) (*types.Prefs, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrefs)
		if b == nil {
			return nil
		}
		if v := b.Get(keyPrefs); v != nil {
			raw = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	prefs := &types.Prefs{}
	if len(raw) == 0 {
		return prefs, nil
	}
	if err := json.Unmarshal(raw, prefs); err != nil {
		return &types.Prefs{}, nil
	}
	return prefs, nil
}

func (s *bboltPrefsStore) Save(ctx context.Context, prefs *types.Prefs) error {
	if prefs == nil {
		prefs = &types.Prefs{}
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPrefs).Put(keyPrefs, data)
	})
}
