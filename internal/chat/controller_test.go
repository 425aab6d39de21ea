package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/projects-hacks/clear-clause/internal/client"
	"github.com/projects-hacks/clear-clause/internal/types"
)

type memChatStore struct {
	mu      sync.Mutex
	saved   map[string][]*types.ChatMessage
	saves   int
	loadErr error
	saveErr error
	preload map[string][]*types.ChatMessage
}

func newMemChatStore() *memChatStore {
	return &memChatStore{
		saved:   make(map[string][]*types.ChatMessage),
		preload: make(map[string][]*types.ChatMessage),
	}
}

func (s *memChatStore) LoadMessages(ctx context.Context, sessionID string) ([]*types.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	messages := s.preload[sessionID]
	out := make([]*types.ChatMessage, len(messages))
	for i, message := range messages {
		out[i] = types.CloneChatMessage(message)
	}
	return out, nil
}

func (s *memChatStore) SaveMessages(ctx context.Context, sessionID string, messages []*types.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	out := make([]*types.ChatMessage, len(messages))
	for i, message := range messages {
		out[i] = types.CloneChatMessage(message)
	}
	s.saved[sessionID] = out
	s.saves++
	return nil
}

func (s *memChatStore) DeleteMessages(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, sessionID)
	return nil
}

type askResult struct {
	answer *client.ChatAnswer
	err    error
}

type askCall struct {
	question string
	history  []types.ChatTurn
	cb       client.ChatCallbacks
	proceed  chan askResult
}

// fakeChatBackend blocks each AskQuestion until the test feeds a result or
// the turn context is canceled.
type fakeChatBackend struct {
	mu    sync.Mutex
	calls []*askCall
	came  chan *askCall

	voiceCalls []string
	voiceErr   error
	transcript string
}

func newFakeChatBackend() *fakeChatBackend {
	return &fakeChatBackend{came: make(chan *askCall, 8)}
}

func (b *fakeChatBackend) AskQuestion(ctx context.Context, sessionID, question string, history []types.ChatTurn, cb client.ChatCallbacks) (*client.ChatAnswer, error) {
	call := &askCall{question: question, history: history, cb: cb, proceed: make(chan askResult, 1)}
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
	b.came <- call

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-call.proceed:
		return result.answer, result.err
	}
}

func (b *fakeChatBackend) VoiceSummary(ctx context.Context, sessionID, text, voice string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.voiceErr != nil {
		return nil, b.voiceErr
	}
	b.voiceCalls = append(b.voiceCalls, text)
	return []byte("RIFF....WAVE"), nil
}

func (b *fakeChatBackend) Transcribe(ctx context.Context, sessionID string, audio io.Reader, fileName string) (string, error) {
	return b.transcript, nil
}

func awaitCall(t *testing.T, backend *fakeChatBackend) *askCall {
	t.Helper()
	select {
	case call := <-backend.came:
		return call
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a chat request")
		return nil
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func sealedMessage(role types.ChatRole, content string) *types.ChatMessage {
	return &types.ChatMessage{
		ID:         "m-" + content,
		Role:       role,
		Content:    content,
		IsComplete: true,
		Timestamp:  time.Now(),
	}
}

func newTestController(t *testing.T, backend Backend, chats *memChatStore) *Controller {
	t.Helper()
	controller := NewController(backend, chats, "sess-1", "aura-asteria-en", nil)
	t.Cleanup(controller.Close)
	return controller
}

func TestSubmitNewerCancelsOlder(t *testing.T) {
	backend := newFakeChatBackend()
	controller := newTestController(t, backend, newMemChatStore())
	if err := controller.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if err := controller.Submit(context.Background(), "Q1"); err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	call1 := awaitCall(t, backend)
	call1.cb.OnChunk("partial answer to Q1")

	if err := controller.Submit(context.Background(), "Q2"); err != nil {
		t.Fatalf("submit q2: %v", err)
	}
	call2 := awaitCall(t, backend)

	// Q1's stream keeps talking after it was superseded; nothing it says may
	// reach the transcript.
	call1.cb.OnChunk("late chunk from Q1")

	call2.proceed <- askResult{answer: &client.ChatAnswer{Answer: "Answer to Q2", Sources: []string{"Clause 2"}}}
	waitUntil(t, "q2 sealed", func() bool { return !controller.Busy() })

	var assistants []*types.ChatMessage
	var users []string
	for _, message := range controller.Messages() {
		switch message.Role {
		case types.RoleAssistant:
			assistants = append(assistants, message)
		case types.RoleUser:
			users = append(users, message.Content)
		}
		if strings.Contains(message.Content, "late chunk") {
			t.Fatalf("canceled turn leaked into the transcript: %q", message.Content)
		}
	}
	if len(assistants) != 1 || !assistants[0].Sealed() || assistants[0].Content != "Answer to Q2" {
		t.Fatalf("expected exactly one sealed assistant answer for Q2, got %+v", assistants)
	}
	// The superseded question itself stays visible.
	if len(users) != 2 || users[0] != "Q1" || users[1] != "Q2" {
		t.Fatalf("unexpected user messages %v", users)
	}
}

func TestRestoreDoesNotDuplicateWelcome(t *testing.T) {
	chats := newMemChatStore()
	chats.preload["sess-1"] = []*types.ChatMessage{
		{ID: types.WelcomeMessageID, Role: types.RoleAssistant, Content: "I've finished reviewing lease.pdf", IsComplete: true},
		sealedMessage(types.RoleUser, "Is clause 4 normal?"),
		sealedMessage(types.RoleAssistant, "It is unusually one-sided."),
		sealedMessage(types.RoleUser, "Can I push back?"),
		sealedMessage(types.RoleAssistant, "Yes, ask for mutual terms."),
	}
	controller := newTestController(t, newFakeChatBackend(), chats)

	if err := controller.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	controller.EnsureWelcome(context.Background(), "lease.pdf", &types.AnalysisResult{TotalClauses: 10, FlaggedClauses: 2})

	welcomes := 0
	for _, message := range controller.Messages() {
		if message.Welcome() {
			welcomes++
		}
	}
	if welcomes != 1 {
		t.Fatalf("welcome count = %d, want 1", welcomes)
	}
	if got := len(controller.Messages()); got != 5 {
		t.Fatalf("restored transcript length = %d, want 5", got)
	}
}

func TestEnsureWelcomeWaitsForRestore(t *testing.T) {
	controller := newTestController(t, newFakeChatBackend(), newMemChatStore())

	// Welcome insertion before restore completes would race a restored one.
	controller.EnsureWelcome(context.Background(), "lease.pdf", &types.AnalysisResult{TotalClauses: 3})
	if got := len(controller.Messages()); got != 0 {
		t.Fatalf("welcome inserted before restore: %d messages", got)
	}

	if err := controller.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	controller.EnsureWelcome(context.Background(), "lease.pdf", &types.AnalysisResult{TotalClauses: 3})
	messages := controller.Messages()
	if len(messages) != 1 || !messages[0].Welcome() {
		t.Fatalf("expected a single welcome after restore, got %+v", messages)
	}
}

func TestExpiredSessionGetsDistinctMessage(t *testing.T) {
	backend := newFakeChatBackend()
	controller := newTestController(t, backend, newMemChatStore())
	if err := controller.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if err := controller.Submit(context.Background(), "Is this fair?"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	call := awaitCall(t, backend)
	call.proceed <- askResult{err: &client.APIError{
		StatusCode: http.StatusNotFound,
		Code:       client.CodeSessionNotFound,
		Message:    "Analysis session not found or expired",
	}}
	waitUntil(t, "turn settled", func() bool { return !controller.Busy() })

	messages := controller.Messages()
	last := messages[len(messages)-1]
	if !last.IsError || !last.Sealed() {
		t.Fatalf("expired session must seal an error message: %+v", last)
	}
	if last.Content != expiredSessionMessage {
		t.Fatalf("expected the distinct expired-session message, got %q", last.Content)
	}
	if last.Content == genericChatMessage {
		t.Fatalf("expired session fell back to the generic failure message")
	}
}

func TestHistoryExcludesWelcomeAndErrors(t *testing.T) {
	chats := newMemChatStore()
	chats.preload["sess-1"] = []*types.ChatMessage{
		{ID: types.WelcomeMessageID, Role: types.RoleAssistant, Content: "welcome", IsComplete: true},
		sealedMessage(types.RoleUser, "Q1"),
		sealedMessage(types.RoleAssistant, "A1"),
		{ID: "err-1", Role: types.RoleAssistant, Content: "Something went wrong", IsError: true, IsComplete: true},
	}
	backend := newFakeChatBackend()
	controller := newTestController(t, backend, chats)
	if err := controller.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if err := controller.Submit(context.Background(), "Q2"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	call := awaitCall(t, backend)
	defer func() { call.proceed <- askResult{answer: &client.ChatAnswer{Answer: "A2"}} }()

	want := []types.ChatTurn{
		{Role: types.RoleUser, Content: "Q1"},
		{Role: types.RoleAssistant, Content: "A1"},
	}
	if len(call.history) != len(want) {
		t.Fatalf("history = %+v, want %+v", call.history, want)
	}
	for i := range want {
		if call.history[i] != want[i] {
			t.Fatalf("history = %+v, want %+v", call.history, want)
		}
	}
}

func TestSubmitRejectsBlankQuestion(t *testing.T) {
	backend := newFakeChatBackend()
	controller := newTestController(t, backend, newMemChatStore())
	if err := controller.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if err := controller.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
	if got := len(controller.Messages()); got != 0 {
		t.Fatalf("blank question created messages: %d", got)
	}
	if len(backend.calls) != 0 {
		t.Fatalf("blank question reached the network")
	}
}

func TestSpeakLatestGuards(t *testing.T) {
	chats := newMemChatStore()
	chats.preload["sess-1"] = []*types.ChatMessage{
		{ID: types.WelcomeMessageID, Role: types.RoleAssistant, Content: "welcome", IsComplete: true},
	}
	backend := newFakeChatBackend()
	controller := newTestController(t, backend, chats)
	if err := controller.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	// The welcome message alone gives the voice nothing to say.
	if _, err := controller.SpeakLatest(context.Background()); !errors.Is(err, ErrNothingToSpeak) {
		t.Fatalf("expected ErrNothingToSpeak for welcome-only transcript, got %v", err)
	}

	if err := controller.Submit(context.Background(), "Summarize clause 2"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	call := awaitCall(t, backend)
	call.proceed <- askResult{answer: &client.ChatAnswer{Answer: "Clause 2 caps your deposit."}}
	waitUntil(t, "turn sealed", func() bool { return !controller.Busy() })

	audio, err := controller.SpeakLatest(context.Background())
	if err != nil {
		t.Fatalf("speak latest: %v", err)
	}
	if len(audio) == 0 {
		t.Fatalf("expected audio bytes")
	}
	if len(backend.voiceCalls) != 1 || backend.voiceCalls[0] != "Clause 2 caps your deposit." {
		t.Fatalf("unexpected voiced text %v", backend.voiceCalls)
	}

	// The same answer is never replayed.
	if _, err := controller.SpeakLatest(context.Background()); !errors.Is(err, ErrNothingToSpeak) {
		t.Fatalf("expected replay guard, got %v", err)
	}
}

func TestSubmitVoiceRoutesTranscript(t *testing.T) {
	backend := newFakeChatBackend()
	backend.transcript = "what is the notice period"
	controller := newTestController(t, backend, newMemChatStore())
	if err := controller.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	transcript, err := controller.SubmitVoice(context.Background(), strings.NewReader("RIFF....WAVE"), "mic.wav")
	if err != nil {
		t.Fatalf("submit voice: %v", err)
	}
	if transcript != "what is the notice period" {
		t.Fatalf("unexpected transcript %q", transcript)
	}
	call := awaitCall(t, backend)
	if call.question != transcript {
		t.Fatalf("submitted question %q, want transcript", call.question)
	}
	call.proceed <- askResult{answer: &client.ChatAnswer{Answer: "30 days."}}
}

func TestInFlightPlaceholderStaysOutOfStorage(t *testing.T) {
	chats := newMemChatStore()
	backend := newFakeChatBackend()
	controller := newTestController(t, backend, chats)
	if err := controller.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if err := controller.Submit(context.Background(), "Q1"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	call := awaitCall(t, backend)

	// The placeholder is streaming in memory, but the durable snapshot must
	// hold only the question. A restart mid-stream would otherwise restore an
	// empty answer nothing will ever seal.
	chats.mu.Lock()
	saved := chats.saved["sess-1"]
	chats.mu.Unlock()
	if len(saved) != 1 || saved[0].Role != types.RoleUser || saved[0].Content != "Q1" {
		t.Fatalf("mid-stream snapshot = %+v, want just the question", saved)
	}

	// A controller revived from that snapshot sees only sealed messages.
	chats.mu.Lock()
	chats.preload["sess-1"] = saved
	chats.mu.Unlock()
	revived := NewController(backend, chats, "sess-1", "aura-asteria-en", nil)
	defer revived.Close()
	if err := revived.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	for _, message := range revived.Messages() {
		if !message.Sealed() {
			t.Fatalf("restored an unsealed message: %+v", message)
		}
	}

	call.proceed <- askResult{answer: &client.ChatAnswer{Answer: "A1"}}
	waitUntil(t, "turn sealed", func() bool { return !controller.Busy() })
}

func TestTurnsPersistAcrossRestores(t *testing.T) {
	chats := newMemChatStore()
	backend := newFakeChatBackend()
	controller := newTestController(t, backend, chats)
	if err := controller.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if err := controller.Submit(context.Background(), "Q1"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	call := awaitCall(t, backend)
	call.proceed <- askResult{answer: &client.ChatAnswer{Answer: "A1"}}
	waitUntil(t, "turn sealed", func() bool { return !controller.Busy() })
	controller.Close()

	chats.mu.Lock()
	chats.preload["sess-1"] = chats.saved["sess-1"]
	chats.mu.Unlock()

	revived := NewController(backend, chats, "sess-1", "aura-asteria-en", nil)
	defer revived.Close()
	if err := revived.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	messages := revived.Messages()
	if len(messages) != 2 || messages[1].Content != "A1" || !messages[1].Sealed() {
		t.Fatalf("persisted transcript mismatch: %+v", messages)
	}
}
