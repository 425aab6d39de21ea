package client

import "github.com/projects-hacks/clear-clause/internal/types"

type statusResponse struct {
	SessionID    string                `json:"session_id"`
	DocumentName string                `json:"document_name"`
	Status       string                `json:"status"`
	Progress     int                   `json:"progress"`
	Message      string                `json:"message"`
	Error        string                `json:"error"`
	CreatedAt    string                `json:"created_at"`
	Result       *types.AnalysisResult `json:"result"`
}

type chatRequest struct {
	Question string           `json:"question"`
	History  []types.ChatTurn `json:"history"`
}

type chatAnswerResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type chatChunk struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
	Error   string   `json:"error"`
}

type voiceSummaryRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	ActiveSessions int    `json:"active_sessions"`
	Timestamp      string `json:"timestamp"`
}

// ChatAnswer is the fully accumulated reply to one question.
type ChatAnswer struct {
	Answer  string
	Sources []string
}

// ChatCallbacks observe a streamed answer as it arrives. OnChunk always
// receives the cumulative text so far, not the delta.
type ChatCallbacks struct {
	OnChunk   func(total string)
	OnSources func(sources []string)
}
