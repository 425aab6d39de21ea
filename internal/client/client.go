package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/projects-hacks/clear-clause/internal/types"
)

const sessionIDHeader = "X-Session-ID"

// Client talks to the ClearClause analysis backend.
type Client struct {
	baseURL string
	// http carries a request timeout and serves plain JSON calls; stream has
	// no timeout because SSE responses stay open for minutes.
	http   *http.Client
	stream *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		stream: &http.Client{},
	}
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStatus is the pull-based alternative to the upload stream. Callers use
// IsSessionGone / IsRateLimited on the returned error to decide whether to
// stop, back off, or retry.
func (c *Client) GetStatus(ctx context.Context, sessionID string) (*types.Session, error) {
	var resp statusResponse
	path := fmt.Sprintf("/api/analyze/%s", sessionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return statusToSession(resp), nil
}

func (c *Client) CancelSession(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/api/session/%s", sessionID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// StartAnalysis uploads a document and returns a handle on the progress
// stream. The session id may be unknown until the first event arrives: the
// response header carrying it is optional (cross-origin policies may strip
// it), so the handle also learns the id from event payloads.
func (c *Client) StartAnalysis(ctx context.Context, fileName string, file io.Reader) (*UploadHandle, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeStreamError(resp)
	}

	return &UploadHandle{
		body:      resp.Body,
		sessionID: strings.TrimSpace(resp.Header.Get(sessionIDHeader)),
	}, nil
}

// UploadHandle exposes the lazily-resolved session id and the normalized
// event sequence of one upload's progress stream.
type UploadHandle struct {
	body      io.ReadCloser
	parser    frameParser
	sessionID string
	done      bool
}

func (h *UploadHandle) SessionID() string {
	return h.sessionID
}

// PullEvents blocks until at least one complete event is buffered and
// returns every event parsed so far, in arrival order. A nil error with zero
// events signifies the end of the stream.
func (h *UploadHandle) PullEvents(ctx context.Context) ([]types.ProgressEvent, error) {
	if h.done {
		return nil, nil
	}
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			h.Close()
			return nil, err
		}
		n, err := h.body.Read(buf)
		var events []types.ProgressEvent
		if n > 0 {
			for _, payload := range h.parser.feed(buf[:n]) {
				event, perr := normalizeProgressEvent(payload)
				if perr != nil {
					continue
				}
				if h.sessionID == "" && event.SessionID != "" {
					h.sessionID = event.SessionID
				}
				events = append(events, event)
			}
		}
		if err != nil {
			h.Close()
			if len(events) > 0 {
				return events, nil
			}
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if len(events) > 0 {
			return events, nil
		}
	}
}

func (h *UploadHandle) Close() {
	if h.done {
		return
	}
	h.done = true
	_ = h.body.Close()
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeStreamError handles failed upload responses whose error payload is
// delivered as an SSE frame rather than a plain JSON body.
func decodeStreamError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var parser frameParser
	payloads := parser.feed(data)
	if len(payloads) == 0 {
		// Not SSE-framed after all; fall back to the JSON decoder.
		resp.Body = io.NopCloser(bytes.NewReader(data))
		return decodeAPIError(resp)
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(payloads[0], &payload)
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: payload.Error, Message: payload.Message}
	if apiErr.Message == "" {
		apiErr.Message = payload.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}

func statusToSession(resp statusResponse) *types.Session {
	session := &types.Session{
		ID:           resp.SessionID,
		DocumentName: resp.DocumentName,
		Status:       types.SessionStatus(resp.Status),
		Progress:     resp.Progress,
		Message:      resp.Message,
		Result:       resp.Result,
	}
	if session.Status == types.StatusError && resp.Error != "" {
		session.Message = resp.Error
	}
	if ts, err := time.Parse(time.RFC3339, resp.CreatedAt); err == nil {
		session.CreatedAt = ts
	}
	return session
}
