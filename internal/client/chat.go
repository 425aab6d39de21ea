package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/projects-hacks/clear-clause/internal/types"
)

// AskQuestion sends one document-aware question. The backend answers either
// with a single JSON body or an SSE stream of text deltas; both are
// accumulated into one ChatAnswer. Cancellation through ctx surfaces as
// context.Canceled, never as an APIError.
func (c *Client) AskQuestion(ctx context.Context, sessionID, question string, history []types.ChatTurn, cb ChatCallbacks) (*ChatAnswer, error) {
	payload, err := json.Marshal(chatRequest{Question: question, History: history})
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/api/chat?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream, application/json")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		return c.readChatStream(ctx, resp.Body, cb)
	}

	var answer chatAnswerResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, err
	}
	if cb.OnChunk != nil {
		cb.OnChunk(answer.Answer)
	}
	if cb.OnSources != nil && answer.Sources != nil {
		cb.OnSources(answer.Sources)
	}
	return &ChatAnswer{Answer: answer.Answer, Sources: answer.Sources}, nil
}

func (c *Client) readChatStream(ctx context.Context, body io.Reader, cb ChatCallbacks) (*ChatAnswer, error) {
	var (
		parser  frameParser
		total   strings.Builder
		sources []string
	)
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := body.Read(buf)
		if n > 0 {
			for _, payload := range parser.feed(buf[:n]) {
				var chunk chatChunk
				if jerr := json.Unmarshal(payload, &chunk); jerr != nil {
					continue
				}
				if chunk.Error != "" {
					return nil, &APIError{StatusCode: http.StatusOK, Code: chunk.Error, Message: chunk.Error}
				}
				if chunk.Text != "" {
					total.WriteString(chunk.Text)
					if cb.OnChunk != nil {
						cb.OnChunk(total.String())
					}
				}
				if chunk.Sources != nil {
					sources = chunk.Sources
					if cb.OnSources != nil {
						cb.OnSources(sources)
					}
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return &ChatAnswer{Answer: total.String(), Sources: sources}, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
	}
}

// VoiceSummary converts summary text to speech, returning WAV bytes.
func (c *Client) VoiceSummary(ctx context.Context, sessionID, text, voice string) ([]byte, error) {
	payload, err := json.Marshal(voiceSummaryRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/api/voice-summary?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Transcribe sends microphone audio for speech-to-text.
func (c *Client) Transcribe(ctx context.Context, sessionID string, audio io.Reader, fileName string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/api/transcribe?session_id=%s", c.baseURL, url.QueryEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeAPIError(resp)
	}
	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Transcript, nil
}
