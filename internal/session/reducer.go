package session

import (
	"strings"

	"github.com/projects-hacks/clear-clause/internal/types"
)

// State is the in-memory session collection. Sessions keep insertion order;
// the active id points at the session the UI is focused on.
type State struct {
	Sessions        []*types.Session
	ActiveSessionID string
}

func (s State) Session(id string) (*types.Session, bool) {
	for _, session := range s.Sessions {
		if session.ID == id {
			return session, true
		}
	}
	return nil, false
}

func (s State) Active() *types.Session {
	if s.ActiveSessionID == "" {
		return nil
	}
	session, _ := s.Session(s.ActiveSessionID)
	return session
}

// HasRunning reports whether any session is still non-terminal. Hosts use it
// to warn before teardown while work is in flight.
func (s State) HasRunning() bool {
	for _, session := range s.Sessions {
		if !session.Terminal() {
			return true
		}
	}
	return false
}

type Action interface {
	isAction()
}

type AddSession struct {
	Session *types.Session
}

// SessionFields is a partial update; nil fields are left untouched.
// ID rekeys the session once the backend-assigned id is learned.
type SessionFields struct {
	ID           *string
	DocumentName *string
	Status       *types.SessionStatus
	Progress     *int
	Message      *string
	Result       *types.AnalysisResult
}

type UpdateSession struct {
	SessionID string
	Fields    SessionFields
}

type RemoveSession struct {
	SessionID string
}

type SetActive struct {
	SessionID string
}

type ClearTerminal struct{}

func (AddSession) isAction()    {}
func (UpdateSession) isAction() {}
func (RemoveSession) isAction() {}
func (SetActive) isAction()     {}
func (ClearTerminal) isAction() {}

// Reduce is the only place the session collection shape changes. It is pure:
// untouched sessions keep their identity, touched sessions are replaced by
// fresh copies, and the input state is never mutated.
func Reduce(state State, action Action) (State, bool) {
	switch a := action.(type) {
	case AddSession:
		return reduceAdd(state, a)
	case UpdateSession:
		return reduceUpdate(state, a)
	case RemoveSession:
		return reduceRemove(state, a)
	case SetActive:
		if state.ActiveSessionID == a.SessionID {
			return state, false
		}
		state.ActiveSessionID = a.SessionID
		return state, true
	case ClearTerminal:
		return reduceClearTerminal(state)
	default:
		return state, false
	}
}

func reduceAdd(state State, a AddSession) (State, bool) {
	if a.Session == nil || strings.TrimSpace(a.Session.ID) == "" {
		return state, false
	}
	if _, exists := state.Session(a.Session.ID); exists {
		return state, false
	}
	added := types.CloneSession(a.Session)
	if len(added.MessageHistory) == 0 && added.Message != "" {
		added.MessageHistory = []string{added.Message}
	}
	next := make([]*types.Session, 0, len(state.Sessions)+1)
	next = append(next, state.Sessions...)
	next = append(next, added)
	return State{Sessions: next, ActiveSessionID: added.ID}, true
}

func reduceUpdate(state State, a UpdateSession) (State, bool) {
	at := -1
	for i, session := range state.Sessions {
		if session.ID == a.SessionID {
			at = i
			break
		}
	}
	// Late events for locally removed sessions are a silent no-op.
	if at == -1 {
		return state, false
	}

	updated := types.CloneSession(state.Sessions[at])
	if a.Fields.ID != nil && strings.TrimSpace(*a.Fields.ID) != "" {
		updated.ID = *a.Fields.ID
	}
	if a.Fields.DocumentName != nil {
		updated.DocumentName = *a.Fields.DocumentName
	}
	if a.Fields.Status != nil {
		updated.Status = *a.Fields.Status
	}
	if a.Fields.Progress != nil {
		updated.Progress = *a.Fields.Progress
	}
	if a.Fields.Message != nil && *a.Fields.Message != updated.Message {
		updated.Message = *a.Fields.Message
		updated.MessageHistory = append(updated.MessageHistory, *a.Fields.Message)
	}
	if a.Fields.Result != nil {
		updated.Result = types.CloneAnalysisResult(a.Fields.Result)
	}

	next := make([]*types.Session, len(state.Sessions))
	copy(next, state.Sessions)
	next[at] = updated

	active := state.ActiveSessionID
	if active == a.SessionID {
		active = updated.ID
	}
	return State{Sessions: next, ActiveSessionID: active}, true
}

func reduceRemove(state State, a RemoveSession) (State, bool) {
	next := make([]*types.Session, 0, len(state.Sessions))
	found := false
	for _, session := range state.Sessions {
		if session.ID == a.SessionID {
			found = true
			continue
		}
		next = append(next, session)
	}
	if !found {
		return state, false
	}
	active := state.ActiveSessionID
	if active == a.SessionID {
		active = ""
	}
	return State{Sessions: next, ActiveSessionID: active}, true
}

func reduceClearTerminal(state State) (State, bool) {
	next := make([]*types.Session, 0, len(state.Sessions))
	removed := false
	activeRemoved := false
	for _, session := range state.Sessions {
		if session.Terminal() {
			removed = true
			if session.ID == state.ActiveSessionID {
				activeRemoved = true
			}
			continue
		}
		next = append(next, session)
	}
	if !removed {
		return state, false
	}
	active := state.ActiveSessionID
	if activeRemoved {
		active = ""
	}
	return State{Sessions: next, ActiveSessionID: active}, true
}
