package types

import "time"

type SessionStatus string

const (
	StatusUploading  SessionStatus = "uploading"
	StatusExtracting SessionStatus = "extracting"
	StatusRedacting  SessionStatus = "redacting"
	StatusAnalyzing  SessionStatus = "analyzing"
	StatusComplete   SessionStatus = "complete"
	StatusError      SessionStatus = "error"
)

// Terminal reports whether no further automatic transitions occur.
func (s SessionStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusUploading, StatusExtracting, StatusRedacting, StatusAnalyzing, StatusComplete, StatusError:
		return true
	default:
		return false
	}
}

// Session is one document's end-to-end analysis job and its accumulated state.
type Session struct {
	ID             string          `json:"session_id"`
	DocumentName   string          `json:"document_name"`
	Status         SessionStatus   `json:"status"`
	Progress       int             `json:"progress"`
	Message        string          `json:"message"`
	MessageHistory []string        `json:"message_history,omitempty"`
	Result         *AnalysisResult `json:"result,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (s *Session) Terminal() bool {
	if s == nil {
		return true
	}
	return s.Status.Terminal()
}

// Stale reports whether a non-terminal session has outlived ttl.
func (s *Session) Stale(now time.Time, ttl time.Duration) bool {
	if s == nil || s.Terminal() {
		return false
	}
	return now.Sub(s.CreatedAt) > ttl
}

func CloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.MessageHistory != nil {
		out.MessageHistory = append([]string{}, s.MessageHistory...)
	}
	out.Result = CloneAnalysisResult(s.Result)
	return &out
}
