package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/projects-hacks/clear-clause/internal/client"
	"github.com/projects-hacks/clear-clause/internal/config"
	"github.com/projects-hacks/clear-clause/internal/logging"
	"github.com/projects-hacks/clear-clause/internal/session"
	"github.com/projects-hacks/clear-clause/internal/types"
)

// Validation failures happen before any network call; no session is created.
var (
	ErrUnsupportedFile   = errors.New("only PDF files are supported")
	ErrFileTooLarge      = errors.New("file exceeds the upload size limit")
	ErrAlreadyProcessing = errors.New("this document is already being analyzed")
)

const (
	provisionalPrefix = "pending-"

	connectionLostMessage = "Connection lost. Please upload the document again."
	sessionGoneMessage    = "Session not found. Please upload the document again."

	initialBackoff = 4 * time.Second
	maxBackoff     = 32 * time.Second
	maxPollRetries = 5
)

// ProgressStream is one upload's sequence of normalized progress events.
type ProgressStream interface {
	SessionID() string
	PullEvents(ctx context.Context) ([]types.ProgressEvent, error)
	Close()
}

// Backend is the slice of the API client the controller drives.
type Backend interface {
	StartAnalysis(ctx context.Context, fileName string, file io.Reader) (ProgressStream, error)
	GetStatus(ctx context.Context, sessionID string) (*types.Session, error)
}

type clientBackend struct {
	c *client.Client
}

func (b clientBackend) StartAnalysis(ctx context.Context, fileName string, file io.Reader) (ProgressStream, error) {
	handle, err := b.c.StartAnalysis(ctx, fileName, file)
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func (b clientBackend) GetStatus(ctx context.Context, sessionID string) (*types.Session, error) {
	return b.c.GetStatus(ctx, sessionID)
}

func NewClientBackend(c *client.Client) Backend {
	return clientBackend{c: c}
}

// Options bound the controller's transport and retry behavior. Zero values
// fall back to the config defaults.
type Options struct {
	Transport      string
	PollInterval   time.Duration
	MaxUploadBytes int64
}

func (o Options) withDefaults() Options {
	if o.Transport == "" {
		o.Transport = config.TransportSSE
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 20 << 20
	}
	return o
}

// Controller drives one or more analysis sessions from upload to a terminal
// state, feeding every progress event through the session manager in arrival
// order. It owns the retry and backoff policy for the polling transport.
type Controller struct {
	backend Backend
	manager *session.Manager
	opts    Options
	log     logging.Logger

	// sleep is replaced in tests to make backoff observable.
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string

	mu      sync.Mutex
	root    context.Context
	cancel  context.CancelFunc
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewController(backend Backend, manager *session.Manager, opts Options, log logging.Logger) *Controller {
	if log == nil {
		log = logging.Nop()
	}
	root, cancel := context.WithCancel(context.Background())
	return &Controller{
		backend: backend,
		manager: manager,
		opts:    opts.withDefaults(),
		log:     log,
		sleep:   sleepCtx,
		newID:   func() string { return provisionalPrefix + uuid.NewString() },
		root:    root,
		cancel:  cancel,
		cancels: make(map[string]context.CancelFunc),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HasRunning reports whether any session is still non-terminal, for the
// "analysis in progress, really quit?" guard.
func (c *Controller) HasRunning() bool {
	return c.manager.HasRunning()
}

// Start validates and uploads the document at path, then consumes its
// progress in the background. The returned id is provisional until the
// backend confirms one; the session keeps its identity across the rekey.
func (c *Controller) Start(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return "", ErrUnsupportedFile
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > c.opts.MaxUploadBytes {
		return "", fmt.Errorf("%w (%d MB max)", ErrFileTooLarge, c.opts.MaxUploadBytes>>20)
	}
	for _, existing := range c.manager.State().Sessions {
		if existing.DocumentName == name && !existing.Status.Terminal() {
			return "", ErrAlreadyProcessing
		}
	}

	// The UI gets a session to render before the network confirms anything.
	id := c.newID()
	c.manager.Dispatch(ctx, session.AddSession{Session: &types.Session{
		ID:           id,
		DocumentName: name,
		Status:       types.StatusUploading,
		Progress:     10,
		Message:      "Uploading document",
		CreatedAt:    time.Now(),
	}})

	// The upload request runs under the controller's root, not the caller's
	// context: the stream outlives Start, and Close must be able to abort a
	// blocked read.
	loopCtx := c.track(id)

	file, err := os.Open(path)
	if err != nil {
		c.untrack(id)
		c.failSession(ctx, id, err.Error())
		return id, err
	}
	stream, err := c.backend.StartAnalysis(loopCtx, name, file)
	file.Close()
	if err != nil {
		c.untrack(id)
		c.failSession(ctx, id, uploadErrorMessage(err))
		return id, err
	}

	trackID := id
	if confirmed := stream.SessionID(); confirmed != "" && confirmed != id {
		c.rekey(ctx, id, confirmed)
		id = confirmed
	}

	c.wg.Add(1)
	go func(id string) {
		defer c.wg.Done()
		defer c.untrack(trackID)
		if c.opts.Transport == config.TransportPoll {
			// The poll transport still needs the stream long enough to learn
			// the session id when the response header was stripped.
			id, done := c.resolveID(loopCtx, id, stream)
			stream.Close()
			if done || loopCtx.Err() != nil {
				return
			}
			if strings.HasPrefix(id, provisionalPrefix) {
				c.failSession(loopCtx, id, connectionLostMessage)
				return
			}
			c.poll(loopCtx, id)
			return
		}
		c.consume(loopCtx, id, stream)
	}(id)
	return id, nil
}

// Refresh pulls one status snapshot for a restored session and reconciles
// the local state with it.
func (c *Controller) Refresh(ctx context.Context, sessionID string) error {
	snapshot, err := c.backend.GetStatus(ctx, sessionID)
	if err != nil {
		if client.IsSessionGone(err) {
			c.dropSession(ctx, sessionID)
		}
		return err
	}
	c.applySnapshot(ctx, sessionID, snapshot)
	return nil
}

// Close aborts every in-flight ingestion loop and waits for them to exit.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

// consume applies the stream's events in arrival order, one dispatch per
// event so intermediate stages stay visible even when they arrive in a
// single chunk.
func (c *Controller) consume(ctx context.Context, id string, stream ProgressStream) {
	defer stream.Close()

	terminal := false
	for {
		events, err := stream.PullEvents(ctx)
		if err != nil {
			if client.IsCanceled(err) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			c.log.Warn("progress stream failed", logging.F("session", id), logging.F("err", err))
			break
		}
		if len(events) == 0 {
			break
		}
		for _, event := range events {
			if event.SessionID != "" && event.SessionID != id && strings.HasPrefix(id, provisionalPrefix) {
				c.rekey(ctx, id, event.SessionID)
				id = event.SessionID
			}
			if event.Err != "" {
				c.failSession(ctx, id, event.Err)
				return
			}
			c.applyEvent(ctx, id, event)
			if event.Terminal() {
				terminal = true
			}
		}
		if terminal {
			return
		}
	}
	// Stream ended without a terminal stage: dropped connection, never leave
	// the session spinning.
	c.failSession(ctx, id, connectionLostMessage)
}

// poll reconciles via status snapshots. Transient failures back off
// exponentially from 4s to 32s; after 5 consecutive failures the loop stops
// and leaves the session in its last known state rather than forcing an
// error. Rate limiting backs off without counting as a failure.
func (c *Controller) poll(ctx context.Context, id string) {
	failures := 0
	backoff := initialBackoff
	for {
		snapshot, err := c.backend.GetStatus(ctx, id)
		switch {
		case err == nil:
			failures = 0
			backoff = initialBackoff
			c.applySnapshot(ctx, id, snapshot)
			if snapshot.Status.Terminal() {
				return
			}
			if c.sleep(ctx, c.opts.PollInterval) != nil {
				return
			}
		case client.IsCanceled(err):
			return
		case client.IsSessionGone(err):
			c.dropSession(ctx, id)
			return
		case client.IsRateLimited(err):
			c.log.Info("rate limited, backing off", logging.F("session", id), logging.F("delay", backoff))
			if c.sleep(ctx, backoff) != nil {
				return
			}
		default:
			failures++
			if failures >= maxPollRetries {
				c.log.Warn("giving up polling, leaving session stale",
					logging.F("session", id), logging.F("failures", failures))
				return
			}
			c.log.Warn("poll failed, retrying",
				logging.F("session", id), logging.F("err", err), logging.F("delay", backoff))
			if c.sleep(ctx, backoff) != nil {
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// resolveID waits for the first event to learn the backend-assigned id when
// the upload response carried none, applying whatever events arrive. The
// done result reports that the session already reached a terminal state.
func (c *Controller) resolveID(ctx context.Context, id string, stream ProgressStream) (string, bool) {
	for strings.HasPrefix(id, provisionalPrefix) {
		events, err := stream.PullEvents(ctx)
		if err != nil || len(events) == 0 {
			return id, false
		}
		for _, event := range events {
			if event.SessionID != "" && event.SessionID != id {
				c.rekey(ctx, id, event.SessionID)
				id = event.SessionID
			}
			if event.Err != "" {
				c.failSession(ctx, id, event.Err)
				return id, true
			}
			c.applyEvent(ctx, id, event)
			if event.Terminal() {
				return id, true
			}
		}
	}
	return id, false
}

// rekey moves a session from its provisional id to the backend-assigned one.
func (c *Controller) rekey(ctx context.Context, from, to string) {
	c.manager.Dispatch(ctx, session.UpdateSession{SessionID: from, Fields: session.SessionFields{ID: &to}})
}

func (c *Controller) applyEvent(ctx context.Context, id string, event types.ProgressEvent) {
	fields := session.SessionFields{}
	if event.Stage != "" {
		stage := event.Stage
		fields.Status = &stage
	}
	if event.Progress != client.ProgressUnknown {
		progress := event.Progress
		fields.Progress = &progress
	}
	if event.Message != "" {
		message := event.Message
		fields.Message = &message
	}
	if event.Result != nil {
		fields.Result = event.Result
	}
	c.manager.Dispatch(ctx, session.UpdateSession{SessionID: id, Fields: fields})
}

func (c *Controller) applySnapshot(ctx context.Context, id string, snapshot *types.Session) {
	status := snapshot.Status
	progress := snapshot.Progress
	fields := session.SessionFields{Status: &status, Progress: &progress}
	if snapshot.Message != "" {
		message := snapshot.Message
		fields.Message = &message
	}
	if snapshot.Result != nil {
		fields.Result = snapshot.Result
	}
	c.manager.Dispatch(ctx, session.UpdateSession{SessionID: id, Fields: fields})
}

func (c *Controller) failSession(ctx context.Context, id, message string) {
	status := types.StatusError
	c.manager.Dispatch(ctx, session.UpdateSession{SessionID: id, Fields: session.SessionFields{
		Status:  &status,
		Message: &message,
	}})
}

// dropSession handles a backend that no longer knows the session: mark the
// reason, then remove the entry so nothing keeps retrying against it.
func (c *Controller) dropSession(ctx context.Context, id string) {
	c.failSession(ctx, id, sessionGoneMessage)
	c.manager.Dispatch(ctx, session.RemoveSession{SessionID: id})
}

func (c *Controller) track(id string) context.Context {
	loopCtx, cancel := context.WithCancel(c.root)
	c.mu.Lock()
	c.cancels[id] = cancel
	c.mu.Unlock()
	return loopCtx
}

func (c *Controller) untrack(id string) {
	c.mu.Lock()
	if cancel, ok := c.cancels[id]; ok {
		cancel()
		delete(c.cancels, id)
	}
	c.mu.Unlock()
}

func uploadErrorMessage(err error) string {
	if apiErr := client.AsAPIError(err); apiErr != nil {
		return apiErr.Message
	}
	return connectionLostMessage
}
