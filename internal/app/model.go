package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/projects-hacks/clear-clause/internal/analysis"
	"github.com/projects-hacks/clear-clause/internal/chat"
	"github.com/projects-hacks/clear-clause/internal/logging"
	"github.com/projects-hacks/clear-clause/internal/session"
	"github.com/projects-hacks/clear-clause/internal/store"
	"github.com/projects-hacks/clear-clause/internal/types"
	"github.com/projects-hacks/clear-clause/internal/view"
)

const (
	minContentHeight = 6
	historyTailLines = 4
)

// SessionCanceler tells the backend to abandon a session server-side.
type SessionCanceler interface {
	CancelSession(ctx context.Context, sessionID string) error
}

// Deps wires the UI to the controllers and stores built in main.
type Deps struct {
	Manager  *session.Manager
	Analyzer *analysis.Controller
	Backend  chat.Backend
	Canceler SessionCanceler
	Prefs    store.PrefsStore
	Chats    store.ChatStore
	Voice    string
	VoiceDir string
	Log      logging.Logger
}

type Model struct {
	deps Deps

	sessions []*types.Session
	cursor   int
	activeID string

	chatControllers map[string]*chat.Controller
	chatOpened      map[string]bool

	loader     spinner.Model
	bar        progress.Model
	input      textinput.Model
	transcript viewport.Model

	width, height int
	composing     bool
	confirmQuit   bool
	voiceEnabled  bool
	onboarded     bool
	status        string

	stateSub   <-chan struct{}
	uploadPath string
}

func NewModel(deps Deps, uploadPath string) Model {
	if deps.Log == nil {
		deps.Log = logging.Nop()
	}
	loader := spinner.New()
	loader.Spinner = spinner.Dot
	loader.Style = stageStyle

	input := textinput.New()
	input.Placeholder = "Ask about your document"
	input.CharLimit = 500

	vp := viewport.New(80, minContentHeight)

	voiceEnabled := false
	onboarded := false
	if deps.Prefs != nil {
		if prefs, err := deps.Prefs.Load(context.Background()); err == nil {
			voiceEnabled = prefs.VoiceEnabled
			onboarded = prefs.OnboardingSeen
		}
	}

	return Model{
		deps:            deps,
		chatControllers: map[string]*chat.Controller{},
		chatOpened:      map[string]bool{},
		loader:          loader,
		bar:             progress.New(progress.WithDefaultGradient()),
		input:           input,
		transcript:      vp,
		voiceEnabled:    voiceEnabled,
		onboarded:       onboarded,
		stateSub:        deps.Manager.Subscribe(),
		uploadPath:      uploadPath,
	}
}

// Run starts the terminal UI, optionally kicking off an upload first.
func Run(deps Deps, uploadPath string) error {
	model := NewModel(deps, uploadPath)
	program := tea.NewProgram(&model, tea.WithAltScreen())
	_, err := program.Run()
	for _, controller := range model.chatControllers {
		controller.Close()
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	m.reloadSessions()
	cmds := []tea.Cmd{m.loader.Tick, waitSessionsCmd(m.stateSub)}
	if m.uploadPath != "" {
		cmds = append(cmds, startAnalysisCmd(m.deps.Analyzer, m.uploadPath))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 8
		m.input.Width = msg.Width - 6
		m.transcript.Width = msg.Width - 2
		m.transcript.Height = m.transcriptHeight()
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionsChangedMsg:
		m.reloadSessions()
		return m, waitSessionsCmd(m.stateSub)

	case chatChangedMsg:
		cmds := []tea.Cmd{}
		if controller, ok := m.chatControllers[msg.sessionID]; ok {
			cmds = append(cmds, waitChatCmd(msg.sessionID, controller.Subscribe()))
		}
		if msg.sessionID == m.activeID {
			m.refreshTranscript()
		}
		return m, tea.Batch(cmds...)

	case analysisStartedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.activeID = msg.id
		m.status = "analysis started"
		m.markOnboarded()
		return m, nil

	case chatOpenedMsg:
		if msg.err != nil {
			m.status = "chat restore failed: " + msg.err.Error()
			return m, nil
		}
		m.chatOpened[msg.sessionID] = true
		m.refreshTranscript()
		return m, waitChatCmd(msg.sessionID, msg.controller.Subscribe())

	case sessionRefreshedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
		} else {
			m.status = "refreshed"
		}
		return m, nil

	case sessionCanceledMsg:
		if msg.err != nil {
			m.status = "cancel failed: " + msg.err.Error()
		} else {
			m.status = "session cancelled"
		}
		return m, nil

	case voiceSavedMsg:
		if msg.err != nil {
			m.status = "voice: " + msg.err.Error()
		} else {
			m.status = "voice summary saved to " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		return m, cmd
	}

	if m.composing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.composing {
		switch msg.String() {
		case "esc":
			m.composing = false
			m.input.Blur()
			return m, nil
		case "enter":
			return m.submitQuestion()
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}

	if m.confirmQuit {
		switch msg.String() {
		case "y", "Y", "q":
			return m, tea.Quit
		default:
			m.confirmQuit = false
			m.status = ""
			return m, nil
		}
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		if m.deps.Manager.HasRunning() {
			m.confirmQuit = true
			m.status = "an analysis is still running; press y to quit anyway"
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.sessions)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		return m.activateCursor()
	case "i", "/":
		if m.activePhase() == view.PhaseResults {
			m.composing = true
			return m, m.input.Focus()
		}
		return m, nil
	case "c":
		m.deps.Manager.Dispatch(context.Background(), session.ClearTerminal{})
		m.status = "cleared finished sessions"
		return m, nil
	case "x":
		return m.cancelActive()
	case "r":
		if m.activeID != "" {
			return m, refreshCmd(m.deps.Analyzer, m.activeID)
		}
		return m, nil
	case "v":
		m.toggleVoice()
		return m, nil
	case "s":
		return m.speakActive()
	case "y":
		m.copyLastAnswer()
		return m, nil
	}

	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	return m, cmd
}

func (m *Model) activateCursor() (tea.Model, tea.Cmd) {
	if m.cursor >= len(m.sessions) {
		return m, nil
	}
	selected := m.sessions[m.cursor]
	m.activeID = selected.ID
	m.deps.Manager.Dispatch(context.Background(), session.SetActive{SessionID: selected.ID})

	if view.Resolve(selected) != view.PhaseResults {
		m.refreshTranscript()
		return m, nil
	}
	controller, opened := m.ensureChatController(selected.ID)
	if opened {
		m.refreshTranscript()
		return m, nil
	}
	return m, openChatCmd(controller, selected)
}

// ensureChatController returns the session's chat controller, reporting
// whether its conversation is already restored.
func (m *Model) ensureChatController(sessionID string) (*chat.Controller, bool) {
	if controller, ok := m.chatControllers[sessionID]; ok {
		return controller, m.chatOpened[sessionID]
	}
	controller := chat.NewController(m.deps.Backend, m.deps.Chats, sessionID, m.deps.Voice, m.deps.Log)
	m.chatControllers[sessionID] = controller
	return controller, false
}

func (m *Model) submitQuestion() (tea.Model, tea.Cmd) {
	question := m.input.Value()
	controller, opened := m.ensureChatController(m.activeID)
	if !opened {
		m.status = "conversation still loading"
		return m, nil
	}
	if err := controller.Submit(context.Background(), question); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.input.Reset()
	return m, nil
}

func (m *Model) cancelActive() (tea.Model, tea.Cmd) {
	active, ok := m.activeSession()
	if !ok || m.deps.Canceler == nil {
		return m, nil
	}
	id := active.ID
	m.deps.Manager.Dispatch(context.Background(), session.RemoveSession{SessionID: id})
	return m, func() tea.Msg {
		err := m.deps.Canceler.CancelSession(context.Background(), id)
		return sessionCanceledMsg{sessionID: id, err: err}
	}
}

func (m *Model) speakActive() (tea.Model, tea.Cmd) {
	if !m.voiceEnabled {
		m.status = "voice is disabled; press v to enable"
		return m, nil
	}
	controller, opened := m.ensureChatController(m.activeID)
	if !opened {
		return m, nil
	}
	return m, speakCmd(controller, m.deps.VoiceDir, m.activeID)
}

func (m *Model) toggleVoice() {
	m.voiceEnabled = !m.voiceEnabled
	if m.deps.Prefs != nil {
		ctx := context.Background()
		prefs, err := m.deps.Prefs.Load(ctx)
		if err != nil {
			prefs = &types.Prefs{}
		}
		prefs.VoiceEnabled = m.voiceEnabled
		if err := m.deps.Prefs.Save(ctx, prefs); err != nil {
			m.deps.Log.Warn("prefs persist failed", logging.F("err", err))
		}
	}
	if m.voiceEnabled {
		m.status = "voice enabled"
	} else {
		m.status = "voice disabled"
	}
}

// markOnboarded retires the first-run hints once a document has been analyzed.
func (m *Model) markOnboarded() {
	if m.onboarded {
		return
	}
	m.onboarded = true
	if m.deps.Prefs == nil {
		return
	}
	ctx := context.Background()
	prefs, err := m.deps.Prefs.Load(ctx)
	if err != nil {
		prefs = &types.Prefs{VoiceEnabled: m.voiceEnabled}
	}
	prefs.OnboardingSeen = true
	if err := m.deps.Prefs.Save(ctx, prefs); err != nil {
		m.deps.Log.Warn("prefs persist failed", logging.F("err", err))
	}
}

func (m *Model) copyLastAnswer() {
	controller, opened := m.ensureChatController(m.activeID)
	if !opened {
		return
	}
	messages := controller.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		message := messages[i]
		if message.Role != types.RoleAssistant || message.Welcome() || message.IsError || !message.Sealed() {
			continue
		}
		if err := copyTextToClipboard(message.Content); err != nil {
			m.status = err.Error()
		} else {
			m.status = "answer copied"
		}
		return
	}
	m.status = "nothing to copy yet"
}

func (m *Model) reloadSessions() {
	state := m.deps.Manager.State()
	m.sessions = state.Sessions
	if m.activeID == "" {
		m.activeID = state.ActiveSessionID
	}
	// The active session may have been rekeyed or removed underneath us.
	if _, ok := state.Session(m.activeID); !ok {
		m.activeID = state.ActiveSessionID
	}
	if m.cursor >= len(m.sessions) {
		m.cursor = len(m.sessions) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.refreshTranscript()
}

func (m *Model) activeSession() (*types.Session, bool) {
	return m.deps.Manager.Session(m.activeID)
}

func (m *Model) activePhase() view.Phase {
	active, ok := m.activeSession()
	if !ok {
		return view.PhaseEmpty
	}
	return view.Resolve(active)
}

func (m *Model) transcriptHeight() int {
	h := m.height - len(m.sessions) - 8
	if h < minContentHeight {
		h = minContentHeight
	}
	return h
}

func (m *Model) refreshTranscript() {
	if m.activePhase() != view.PhaseResults {
		return
	}
	controller, opened := m.ensureChatController(m.activeID)
	if !opened {
		return
	}
	atBottom := m.transcript.AtBottom()
	m.transcript.SetContent(renderTranscript(controller.Messages(), m.transcript.Width))
	if atBottom {
		m.transcript.GotoBottom()
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("ClearClause"))
	b.WriteString("\n\n")
	b.WriteString(m.viewSessionList())
	b.WriteString("\n")
	b.WriteString(m.viewDetail())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.helpLine()))
	return b.String()
}

func (m *Model) viewSessionList() string {
	if len(m.sessions) == 0 {
		if !m.onboarded {
			return helpStyle.Render(strings.Join([]string{
				"Welcome to ClearClause.",
				"",
				"Upload a contract and get every clause explained in plain language:",
				"  clearclause analyze <file.pdf>",
				"",
				"Once analysis completes, press i to ask questions about the document.",
			}, "\n"))
		}
		return helpStyle.Render("No documents yet. Run: clearclause analyze <file.pdf>")
	}
	var b strings.Builder
	for i, s := range m.sessions {
		label := fmt.Sprintf("%-22s %s", view.StageLabel(s.Status), s.DocumentName)
		line := documentStyle.Render(label)
		switch s.Status {
		case types.StatusError:
			line = errorStyle.Render(label)
		case types.StatusComplete:
			line = completeStyle.Render(label)
		}
		if i == m.cursor {
			line = selectedStyle.Render("> " + label)
		} else {
			line = "  " + line
		}
		if s.ID == m.activeID {
			line += stageStyle.Render(" *")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) viewDetail() string {
	active, ok := m.activeSession()
	if !ok {
		return ""
	}
	switch view.Resolve(active) {
	case view.PhaseProcessing:
		return m.viewProcessing(active)
	case view.PhaseResults:
		return m.viewResults(active)
	case view.PhaseError:
		return errorStyle.Render("Analysis failed: " + active.Message)
	default:
		return ""
	}
}

func (m *Model) viewProcessing(active *types.Session) string {
	var b strings.Builder
	b.WriteString(m.loader.View())
	b.WriteString(stageStyle.Render(" " + view.StageLabel(active.Status)))
	if active.Message != "" {
		b.WriteString(statusStyle.Render("  " + active.Message))
	}
	b.WriteString("\n")
	if active.Progress >= 0 {
		b.WriteString(m.bar.ViewAs(float64(active.Progress) / 100))
		b.WriteString("\n")
	}
	history := active.MessageHistory
	if len(history) > historyTailLines {
		history = history[len(history)-historyTailLines:]
	}
	for _, entry := range history {
		b.WriteString(historyStyle.Render("  " + entry))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) viewResults(active *types.Session) string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	sections := []string{
		renderResult(active.Result, width-2),
		m.transcript.View(),
	}
	if m.composing {
		sections = append(sections, m.input.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) helpLine() string {
	if m.composing {
		return "enter send · esc cancel"
	}
	switch m.activePhase() {
	case view.PhaseResults:
		return "i ask · s speak · y copy · v voice · r refresh · x cancel · c clear · q quit"
	default:
		return "enter open · r refresh · x cancel · c clear · q quit"
	}
}
