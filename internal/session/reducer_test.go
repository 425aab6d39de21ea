package session

import (
	"testing"
	"time"

	"github.com/projects-hacks/clear-clause/internal/types"
)

func newTestSession(id, name string) *types.Session {
	return &types.Session{
		ID:           id,
		DocumentName: name,
		Status:       types.StatusUploading,
		Progress:     10,
		Message:      "Document received",
		CreatedAt:    time.Now().UTC(),
	}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func statusPtr(s types.SessionStatus) *types.SessionStatus { return &s }

func TestAddSessionIsIdempotent(t *testing.T) {
	state, changed := Reduce(State{}, AddSession{Session: newTestSession("s1", "lease.pdf")})
	if !changed {
		t.Fatalf("first add should change state")
	}
	again, changed := Reduce(state, AddSession{Session: newTestSession("s1", "other.pdf")})
	if changed {
		t.Fatalf("duplicate add should be a no-op")
	}
	if len(again.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(again.Sessions))
	}
	if again.Sessions[0].DocumentName != "lease.pdf" {
		t.Fatalf("duplicate add must not overwrite: %+v", again.Sessions[0])
	}
}

func TestAddSessionSetsActiveAndSeedsHistory(t *testing.T) {
	state, _ := Reduce(State{}, AddSession{Session: newTestSession("s1", "lease.pdf")})
	if state.ActiveSessionID != "s1" {
		t.Fatalf("expected added session to become active, got %q", state.ActiveSessionID)
	}
	if len(state.Sessions[0].MessageHistory) != 1 || state.Sessions[0].MessageHistory[0] != "Document received" {
		t.Fatalf("message history not seeded: %+v", state.Sessions[0].MessageHistory)
	}
}

func TestUpdateSessionTouchesOnlyMatchingEntry(t *testing.T) {
	state, _ := Reduce(State{}, AddSession{Session: newTestSession("s1", "a.pdf")})
	state, _ = Reduce(state, AddSession{Session: newTestSession("s2", "b.pdf")})
	untouched := state.Sessions[0]

	next, changed := Reduce(state, UpdateSession{SessionID: "s2", Fields: SessionFields{
		Status:   statusPtr(types.StatusExtracting),
		Progress: intPtr(40),
	}})
	if !changed {
		t.Fatalf("update should change state")
	}
	if next.Sessions[0] != untouched {
		t.Fatalf("untouched session should keep its identity")
	}
	if next.Sessions[1] == state.Sessions[1] {
		t.Fatalf("touched session should be replaced, not mutated")
	}
	if next.Sessions[1].Status != types.StatusExtracting || next.Sessions[1].Progress != 40 {
		t.Fatalf("update not applied: %+v", next.Sessions[1])
	}
	// Original state must be unaffected.
	if state.Sessions[1].Status != types.StatusUploading {
		t.Fatalf("input state was mutated: %+v", state.Sessions[1])
	}
}

func TestUpdateSessionUnknownIDIsSilentNoop(t *testing.T) {
	state, _ := Reduce(State{}, AddSession{Session: newTestSession("s1", "a.pdf")})
	next, changed := Reduce(state, UpdateSession{SessionID: "ghost", Fields: SessionFields{
		Progress: intPtr(99),
	}})
	if changed {
		t.Fatalf("unknown id should be a no-op")
	}
	if len(next.Sessions) != 1 || next.Sessions[0].Progress != 10 {
		t.Fatalf("unexpected state: %+v", next.Sessions)
	}
}

func TestMessageHistoryDedupsAdjacentValues(t *testing.T) {
	state, _ := Reduce(State{}, AddSession{Session: newTestSession("s1", "a.pdf")})

	state, _ = Reduce(state, UpdateSession{SessionID: "s1", Fields: SessionFields{
		Message: strPtr("Extracting text..."),
	}})
	state, changed := Reduce(state, UpdateSession{SessionID: "s1", Fields: SessionFields{
		Message: strPtr("Extracting text..."),
	}})
	_ = changed
	got, _ := state.Session("s1")
	if len(got.MessageHistory) != 2 {
		t.Fatalf("adjacent duplicate should not append, history: %+v", got.MessageHistory)
	}

	state, _ = Reduce(state, UpdateSession{SessionID: "s1", Fields: SessionFields{
		Message: strPtr("Analyzing clauses..."),
	}})
	got, _ = state.Session("s1")
	if len(got.MessageHistory) != 3 || got.MessageHistory[2] != "Analyzing clauses..." {
		t.Fatalf("distinct message should append exactly once: %+v", got.MessageHistory)
	}
}

func TestProgressAcceptsOutOfOrderValues(t *testing.T) {
	state, _ := Reduce(State{}, AddSession{Session: newTestSession("s1", "a.pdf")})
	state, _ = Reduce(state, UpdateSession{SessionID: "s1", Fields: SessionFields{Progress: intPtr(60)}})
	state, _ = Reduce(state, UpdateSession{SessionID: "s1", Fields: SessionFields{Progress: intPtr(40)}})
	got, _ := state.Session("s1")
	if got.Progress != 40 {
		t.Fatalf("progress is a latest-value hint, got %d", got.Progress)
	}
}

func TestUpdateSessionRekeysProvisionalID(t *testing.T) {
	state, _ := Reduce(State{}, AddSession{Session: newTestSession("pending-1", "a.pdf")})
	state, _ = Reduce(state, UpdateSession{SessionID: "pending-1", Fields: SessionFields{
		ID: strPtr("backend-abc"),
	}})
	if _, ok := state.Session("backend-abc"); !ok {
		t.Fatalf("session not rekeyed: %+v", state.Sessions)
	}
	if state.ActiveSessionID != "backend-abc" {
		t.Fatalf("active pointer should follow the rekey, got %q", state.ActiveSessionID)
	}
}

func TestRemoveSessionClearsActivePointer(t *testing.T) {
	state, _ := Reduce(State{}, AddSession{Session: newTestSession("s1", "a.pdf")})
	state, _ = Reduce(state, RemoveSession{SessionID: "s1"})
	if len(state.Sessions) != 0 || state.ActiveSessionID != "" {
		t.Fatalf("unexpected state after remove: %+v", state)
	}

	_, changed := Reduce(state, RemoveSession{SessionID: "s1"})
	if changed {
		t.Fatalf("removing a missing session should be a no-op")
	}
}

func TestClearTerminalKeepsRunningSessions(t *testing.T) {
	state := State{}
	state, _ = Reduce(state, AddSession{Session: newTestSession("run", "a.pdf")})

	done := newTestSession("done", "b.pdf")
	done.Status = types.StatusComplete
	state, _ = Reduce(state, AddSession{Session: done})

	failed := newTestSession("failed", "c.pdf")
	failed.Status = types.StatusError
	state, _ = Reduce(state, AddSession{Session: failed})

	state, changed := Reduce(state, ClearTerminal{})
	if !changed {
		t.Fatalf("clear should change state")
	}
	if len(state.Sessions) != 1 || state.Sessions[0].ID != "run" {
		t.Fatalf("unexpected survivors: %+v", state.Sessions)
	}
	if state.ActiveSessionID != "" {
		t.Fatalf("active terminal session should clear the pointer, got %q", state.ActiveSessionID)
	}
}

func TestHasRunning(t *testing.T) {
	state, _ := Reduce(State{}, AddSession{Session: newTestSession("s1", "a.pdf")})
	if !state.HasRunning() {
		t.Fatalf("uploading session should count as running")
	}
	state, _ = Reduce(state, UpdateSession{SessionID: "s1", Fields: SessionFields{
		Status: statusPtr(types.StatusComplete),
	}})
	if state.HasRunning() {
		t.Fatalf("complete session should not count as running")
	}
}
