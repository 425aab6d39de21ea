package session

import (
	"context"
	"sync"
	"time"

	"github.com/projects-hacks/clear-clause/internal/logging"
	"github.com/projects-hacks/clear-clause/internal/store"
	"github.com/projects-hacks/clear-clause/internal/types"
)

// Manager owns the runtime session state. Every mutation funnels through
// Dispatch: reduce, persist the whole collection, notify subscribers.
// Persistence failures are logged and swallowed so a full disk never takes
// the client down.
type Manager struct {
	sessions store.SessionStore
	ttl      time.Duration
	log      logging.Logger
	now      func() time.Time

	mu    sync.Mutex
	state State
	subs  []chan struct{}
}

func NewManager(sessions store.SessionStore, ttl time.Duration, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		sessions: sessions,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

// Hydrate loads the persisted collection. The store already sanitizes
// (dedup, TTL coercion) on load.
func (m *Manager) Hydrate(ctx context.Context) error {
	loaded, err := m.sessions.Load(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.state = State{Sessions: loaded}
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *Manager) Dispatch(ctx context.Context, action Action) {
	m.mu.Lock()
	next, changed := Reduce(m.state, action)
	if !changed {
		m.mu.Unlock()
		return
	}
	m.state = next
	snapshot := append([]*types.Session{}, next.Sessions...)
	m.mu.Unlock()

	if err := m.sessions.Save(ctx, snapshot); err != nil {
		m.log.Warn("session persist failed", logging.F("err", err))
	}
	m.notify()
}

// State returns a read-only snapshot. The contained sessions are shared and
// must not be mutated; the reducer replaces them wholesale on change.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Sessions:        append([]*types.Session{}, m.state.Sessions...),
		ActiveSessionID: m.state.ActiveSessionID,
	}
}

func (m *Manager) Session(id string) (*types.Session, bool) {
	return m.State().Session(id)
}

func (m *Manager) HasRunning() bool {
	return m.State().HasRunning()
}

// ExpireStale coerces non-terminal sessions past the TTL to error. Intended
// to be called periodically while the client is open; the store applies the
// same rule at load time.
func (m *Manager) ExpireStale(ctx context.Context) int {
	now := m.now()
	expired := 0
	for _, session := range m.State().Sessions {
		if !session.Stale(now, m.ttl) {
			continue
		}
		status := types.StatusError
		message := store.StaleSessionMessage(m.ttl)
		m.Dispatch(ctx, UpdateSession{SessionID: session.ID, Fields: SessionFields{
			Status:  &status,
			Message: &message,
		}})
		expired++
	}
	return expired
}

// Subscribe returns a channel that receives a coalesced signal after every
// state change.
func (m *Manager) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

func (m *Manager) notify() {
	m.mu.Lock()
	subs := append([]chan struct{}{}, m.subs...)
	m.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
