package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/projects-hacks/clear-clause/internal/client"
	"github.com/projects-hacks/clear-clause/internal/logging"
	"github.com/projects-hacks/clear-clause/internal/store"
	"github.com/projects-hacks/clear-clause/internal/types"
)

var (
	ErrEmptyQuestion  = errors.New("question is empty")
	ErrNothingToSpeak = errors.New("no answer to speak yet")
)

const (
	expiredSessionMessage = "This session has expired. Please upload your document again to keep chatting."
	rateLimitedMessage    = "You're sending questions too quickly. Please wait a moment and try again."
	genericChatMessage    = "Something went wrong answering that. Please try again."
)

// Backend is the slice of the API client the chat controller needs.
// *client.Client satisfies it directly.
type Backend interface {
	AskQuestion(ctx context.Context, sessionID, question string, history []types.ChatTurn, cb client.ChatCallbacks) (*client.ChatAnswer, error)
	VoiceSummary(ctx context.Context, sessionID, text, voice string) ([]byte, error)
	Transcribe(ctx context.Context, sessionID string, audio io.Reader, fileName string) (string, error)
}

// Controller manages one session's conversation: restore, welcome synthesis,
// strictly serialized question turns, and voice. A newer Submit cancels the
// one in flight; cancellation is never surfaced as a failed answer.
type Controller struct {
	backend   Backend
	store     store.ChatStore
	sessionID string
	voice     string
	log       logging.Logger

	root       context.Context
	cancelRoot context.CancelFunc

	mu         sync.Mutex
	messages   []*types.ChatMessage
	restored   bool
	inflight   context.CancelFunc
	inflightID string
	lastSpoken string
	subs       []chan struct{}
	wg         sync.WaitGroup
}

func NewController(backend Backend, chats store.ChatStore, sessionID, voice string, log logging.Logger) *Controller {
	if log == nil {
		log = logging.Nop()
	}
	root, cancel := context.WithCancel(context.Background())
	return &Controller{
		backend:    backend,
		store:      chats,
		sessionID:  sessionID,
		voice:      voice,
		log:        log,
		root:       root,
		cancelRoot: cancel,
	}
}

// Restore loads the persisted conversation. It must complete before
// EnsureWelcome runs, otherwise a restored welcome would be duplicated.
func (c *Controller) Restore(ctx context.Context) error {
	messages, err := c.store.LoadMessages(ctx, c.sessionID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.messages = messages
	c.restored = true
	c.mu.Unlock()
	c.notify()
	return nil
}

// EnsureWelcome synthesizes the opening assistant message once the analysis
// result is available. A restored conversation that already has one keeps it.
func (c *Controller) EnsureWelcome(ctx context.Context, documentName string, result *types.AnalysisResult) {
	if result == nil {
		return
	}
	c.mu.Lock()
	if !c.restored {
		c.mu.Unlock()
		return
	}
	for _, message := range c.messages {
		if message.Welcome() {
			c.mu.Unlock()
			return
		}
	}
	welcome := &types.ChatMessage{
		ID:         types.WelcomeMessageID,
		Role:       types.RoleAssistant,
		Content:    welcomeContent(documentName, result),
		IsComplete: true,
		Timestamp:  time.Now(),
	}
	c.messages = append([]*types.ChatMessage{welcome}, c.messages...)
	c.persistLocked(ctx)
	c.mu.Unlock()
	c.notify()
}

// Submit asks one question without blocking the caller. A question already
// in flight is canceled and its unsealed placeholder removed; the superseded
// user message stays in the transcript.
func (c *Controller) Submit(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}

	c.mu.Lock()
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
		c.removeLocked(c.inflightID)
		c.inflightID = ""
	}
	history := c.historyLocked()

	now := time.Now()
	c.messages = append(c.messages, &types.ChatMessage{
		ID:         uuid.NewString(),
		Role:       types.RoleUser,
		Content:    question,
		IsComplete: true,
		Timestamp:  now,
	})
	placeholder := &types.ChatMessage{
		ID:        uuid.NewString(),
		Role:      types.RoleAssistant,
		Timestamp: now,
	}
	c.messages = append(c.messages, placeholder)

	turnCtx, cancel := context.WithCancel(c.root)
	c.inflight = cancel
	c.inflightID = placeholder.ID
	c.persistLocked(ctx)
	c.mu.Unlock()
	c.notify()

	c.wg.Add(1)
	go c.runTurn(turnCtx, placeholder.ID, question, history)
	return nil
}

func (c *Controller) runTurn(ctx context.Context, placeholderID, question string, history []types.ChatTurn) {
	defer c.wg.Done()

	answer, err := c.backend.AskQuestion(ctx, c.sessionID, question, history, client.ChatCallbacks{
		OnChunk: func(total string) {
			c.mutate(placeholderID, func(m *types.ChatMessage) { m.Content = total })
		},
		OnSources: func(sources []string) {
			c.mutate(placeholderID, func(m *types.ChatMessage) { m.Sources = sources })
		},
	})

	if client.IsCanceled(err) {
		// Superseded or torn down. The placeholder is already gone; a failure
		// message here would misreport a deliberate cancel.
		return
	}

	c.mu.Lock()
	defer func() {
		c.persistLocked(context.Background())
		c.mu.Unlock()
		c.notify()
	}()
	if c.inflightID == placeholderID {
		c.inflight = nil
		c.inflightID = ""
	}
	message, ok := c.findLocked(placeholderID)
	if !ok {
		return
	}
	if err != nil {
		message.Content = chatErrorMessage(err)
		message.IsError = true
		message.IsComplete = true
		return
	}
	message.Content = answer.Answer
	message.Sources = answer.Sources
	message.IsComplete = true
}

// Messages returns a snapshot the caller may keep.
func (c *Controller) Messages() []*types.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.ChatMessage, len(c.messages))
	for i, message := range c.messages {
		out[i] = types.CloneChatMessage(message)
	}
	return out
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// SpeakLatest voices the newest sealed assistant answer. The welcome
// message, error messages, unfinished answers and already-spoken answers
// are never voiced.
func (c *Controller) SpeakLatest(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	var target *types.ChatMessage
	for i := len(c.messages) - 1; i >= 0; i-- {
		message := c.messages[i]
		if message.Role != types.RoleAssistant || message.Welcome() || message.IsError || !message.Sealed() {
			continue
		}
		target = message
		break
	}
	if target == nil || target.ID == c.lastSpoken {
		c.mu.Unlock()
		return nil, ErrNothingToSpeak
	}
	id, content := target.ID, target.Content
	c.mu.Unlock()

	audio, err := c.backend.VoiceSummary(ctx, c.sessionID, content, c.voice)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.lastSpoken = id
	c.mu.Unlock()
	return audio, nil
}

// SubmitVoice transcribes microphone audio and submits the transcript as a
// question. The transcript is returned so the caller can display it.
func (c *Controller) SubmitVoice(ctx context.Context, audio io.Reader, fileName string) (string, error) {
	transcript, err := c.backend.Transcribe(ctx, c.sessionID, audio, fileName)
	if err != nil {
		return "", err
	}
	if err := c.Submit(ctx, transcript); err != nil {
		return "", err
	}
	return transcript, nil
}

// Subscribe returns a channel receiving a coalesced signal per change.
func (c *Controller) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

// Close aborts any in-flight turn and waits for it to finish.
func (c *Controller) Close() {
	c.cancelRoot()
	c.wg.Wait()
}

// historyLocked converts the transcript into wire turns: welcome, error and
// unsealed messages never travel back to the backend.
func (c *Controller) historyLocked() []types.ChatTurn {
	var turns []types.ChatTurn
	for _, message := range c.messages {
		if message.Welcome() || message.IsError || !message.Sealed() {
			continue
		}
		turns = append(turns, types.ChatTurn{Role: message.Role, Content: message.Content})
	}
	return turns
}

func (c *Controller) findLocked(id string) (*types.ChatMessage, bool) {
	for _, message := range c.messages {
		if message.ID == id {
			return message, true
		}
	}
	return nil, false
}

func (c *Controller) removeLocked(id string) {
	for at, message := range c.messages {
		if message.ID == id {
			c.messages = append(c.messages[:at], c.messages[at+1:]...)
			return
		}
	}
}

func (c *Controller) mutate(id string, fn func(*types.ChatMessage)) {
	c.mu.Lock()
	message, ok := c.findLocked(id)
	if ok {
		fn(message)
	}
	c.mu.Unlock()
	if ok {
		c.notify()
	}
}

// persistLocked writes the durable transcript. Unsealed placeholders stay
// in memory only: a crash mid-stream must not restore an empty assistant
// message that nothing will ever seal.
func (c *Controller) persistLocked(ctx context.Context) {
	durable := make([]*types.ChatMessage, 0, len(c.messages))
	for _, message := range c.messages {
		if !message.Sealed() {
			continue
		}
		durable = append(durable, message)
	}
	if err := c.store.SaveMessages(ctx, c.sessionID, durable); err != nil {
		c.log.Warn("chat persist failed", logging.F("session", c.sessionID), logging.F("err", err))
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	subs := append([]chan struct{}{}, c.subs...)
	c.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func chatErrorMessage(err error) string {
	switch {
	case client.IsSessionGone(err):
		return expiredSessionMessage
	case client.IsRateLimited(err):
		return rateLimitedMessage
	}
	if apiErr := client.AsAPIError(err); apiErr != nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return genericChatMessage
}

func welcomeContent(documentName string, result *types.AnalysisResult) string {
	flagged := result.FlaggedClauses
	name := documentName
	if name == "" {
		name = result.DocumentName
	}
	if flagged == 0 {
		return fmt.Sprintf("I've finished reviewing %s: all %d clauses look standard. Ask me anything about the document.",
			name, result.TotalClauses)
	}
	return fmt.Sprintf("I've finished reviewing %s: %d of %d clauses deserve a closer look. Ask me about any clause and I'll explain it in plain language.",
		name, flagged, result.TotalClauses)
}
