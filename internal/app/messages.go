package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/projects-hacks/clear-clause/internal/analysis"
	"github.com/projects-hacks/clear-clause/internal/chat"
	"github.com/projects-hacks/clear-clause/internal/types"
)

type sessionsChangedMsg struct{}

func waitSessionsCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return sessionsChangedMsg{}
	}
}

type chatChangedMsg struct {
	sessionID string
}

func waitChatCmd(sessionID string, ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return chatChangedMsg{sessionID: sessionID}
	}
}

type analysisStartedMsg struct {
	id  string
	err error
}

func startAnalysisCmd(analyzer *analysis.Controller, path string) tea.Cmd {
	return func() tea.Msg {
		id, err := analyzer.Start(context.Background(), path)
		return analysisStartedMsg{id: id, err: err}
	}
}

type chatOpenedMsg struct {
	sessionID  string
	controller *chat.Controller
	err        error
}

// openChatCmd restores a session's conversation and synthesizes the welcome
// message once, in that order.
func openChatCmd(controller *chat.Controller, session *types.Session) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := controller.Restore(ctx); err != nil {
			return chatOpenedMsg{sessionID: session.ID, err: err}
		}
		controller.EnsureWelcome(ctx, session.DocumentName, session.Result)
		return chatOpenedMsg{sessionID: session.ID, controller: controller}
	}
}

type sessionRefreshedMsg struct {
	sessionID string
	err       error
}

func refreshCmd(analyzer *analysis.Controller, sessionID string) tea.Cmd {
	return func() tea.Msg {
		err := analyzer.Refresh(context.Background(), sessionID)
		return sessionRefreshedMsg{sessionID: sessionID, err: err}
	}
}

type sessionCanceledMsg struct {
	sessionID string
	err       error
}

type voiceSavedMsg struct {
	path string
	err  error
}

// speakCmd voices the latest sealed answer and drops the WAV next to the
// rest of the client state so any player can open it.
func speakCmd(controller *chat.Controller, dir, sessionID string) tea.Cmd {
	return func() tea.Msg {
		audio, err := controller.SpeakLatest(context.Background())
		if err != nil {
			return voiceSavedMsg{err: err}
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return voiceSavedMsg{err: err}
		}
		path := filepath.Join(dir, fmt.Sprintf("voice-%s.wav", sessionID))
		if err := os.WriteFile(path, audio, 0o600); err != nil {
			return voiceSavedMsg{err: err}
		}
		return voiceSavedMsg{path: path}
	}
}
