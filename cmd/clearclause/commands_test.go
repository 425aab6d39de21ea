package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/projects-hacks/clear-clause/internal/client"
	"github.com/projects-hacks/clear-clause/internal/config"
	"github.com/projects-hacks/clear-clause/internal/logging"
	"github.com/projects-hacks/clear-clause/internal/session"
	"github.com/projects-hacks/clear-clause/internal/store"
	"github.com/projects-hacks/clear-clause/internal/types"
)

func failingFactory(t *testing.T) environmentFactory {
	t.Helper()
	return func(ctx context.Context) (*environment, error) {
		t.Fatal("environment should not be created before argument validation")
		return nil, errors.New("unreachable")
	}
}

func testEnvironment(t *testing.T, sessions []*types.Session) *environment {
	t.Helper()
	dir := t.TempDir()
	repo := store.NewFileRepository(store.RepositoryPaths{
		SessionsPath: filepath.Join(dir, "sessions.json"),
		ChatsDir:     filepath.Join(dir, "chats"),
		PrefsPath:    filepath.Join(dir, "prefs.json"),
	}, time.Hour)

	ctx := context.Background()
	if len(sessions) > 0 {
		if err := repo.Sessions().Save(ctx, sessions); err != nil {
			t.Fatalf("seed sessions: %v", err)
		}
	}
	manager := session.NewManager(repo.Sessions(), time.Hour, logging.Nop())
	if err := manager.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	return &environment{
		cfg:     config.Default(),
		repo:    repo,
		manager: manager,
		api:     client.New("http://127.0.0.1:0"),
		log:     logging.Nop(),
	}
}

func fixedFactory(env *environment) environmentFactory {
	return func(ctx context.Context) (*environment, error) {
		return env, nil
	}
}

func TestBuildCommandsCoversEveryVerb(t *testing.T) {
	wiring := defaultCommandWiring(&bytes.Buffer{}, &bytes.Buffer{})
	commands := buildCommands(wiring)

	for _, name := range []string{
		"analyze", "sessions", "status", "chat", "speak",
		"cancel", "clear", "health", "config", "ui",
	} {
		if _, ok := commands[name]; !ok {
			t.Fatalf("missing command %q", name)
		}
	}
	if len(commands) != 10 {
		t.Fatalf("unexpected command count: %d", len(commands))
	}
}

func TestAnalyzeCommandRequiresFile(t *testing.T) {
	cmd := NewAnalyzeCommand(&bytes.Buffer{}, &bytes.Buffer{}, failingFactory(t))
	err := cmd.Run(nil)
	if err == nil || !strings.Contains(err.Error(), "requires a PDF file") {
		t.Fatalf("expected missing-file error, got %v", err)
	}
}

func TestStatusCommandRequiresSessionID(t *testing.T) {
	cmd := NewStatusCommand(&bytes.Buffer{}, &bytes.Buffer{}, failingFactory(t))
	err := cmd.Run(nil)
	if err == nil || !strings.Contains(err.Error(), "requires a session id") {
		t.Fatalf("expected missing-id error, got %v", err)
	}
}

func TestChatCommandRequiresQuestionOrAudio(t *testing.T) {
	cmd := NewChatCommand(&bytes.Buffer{}, &bytes.Buffer{}, failingFactory(t))
	err := cmd.Run([]string{"sess-1"})
	if err == nil || !strings.Contains(err.Error(), "requires -q or --audio") {
		t.Fatalf("expected missing-question error, got %v", err)
	}
}

func TestCancelCommandRequiresSessionID(t *testing.T) {
	cmd := NewCancelCommand(&bytes.Buffer{}, &bytes.Buffer{}, failingFactory(t))
	err := cmd.Run(nil)
	if err == nil || !strings.Contains(err.Error(), "requires a session id") {
		t.Fatalf("expected missing-id error, got %v", err)
	}
}

func TestSessionsCommandPrintsTable(t *testing.T) {
	env := testEnvironment(t, []*types.Session{
		{
			ID:           "sess-1",
			DocumentName: "lease.pdf",
			Status:       types.StatusAnalyzing,
			Progress:     70,
			CreatedAt:    time.Now(),
		},
		{
			ID:           "sess-2",
			DocumentName: "nda.pdf",
			Status:       types.StatusComplete,
			Progress:     100,
		},
	})
	stdout := &bytes.Buffer{}
	cmd := NewSessionsCommand(stdout, &bytes.Buffer{}, fixedFactory(env))

	if err := cmd.Run(nil); err != nil {
		t.Fatalf("expected sessions to succeed, got err=%v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "ID") || !strings.Contains(out, "STATUS") || !strings.Contains(out, "DOCUMENT") {
		t.Fatalf("expected header in output, got %q", out)
	}
	if !strings.Contains(out, "sess-1") || !strings.Contains(out, "lease.pdf") || !strings.Contains(out, "70%") {
		t.Fatalf("expected running session row, got %q", out)
	}
	// Terminal sessions do not report a progress percentage.
	if !strings.Contains(out, "sess-2") || strings.Contains(out, "100%") {
		t.Fatalf("unexpected terminal session row, got %q", out)
	}
}

func TestSessionsCommandEmpty(t *testing.T) {
	stdout := &bytes.Buffer{}
	cmd := NewSessionsCommand(stdout, &bytes.Buffer{}, fixedFactory(testEnvironment(t, nil)))

	if err := cmd.Run(nil); err != nil {
		t.Fatalf("expected sessions to succeed, got err=%v", err)
	}
	if got := stdout.String(); got != "no sessions\n" {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestStatusCommandPrintsResult(t *testing.T) {
	env := testEnvironment(t, []*types.Session{
		{
			ID:           "sess-1",
			DocumentName: "lease.pdf",
			Status:       types.StatusComplete,
			Progress:     100,
			Message:      "Analysis complete",
			Result: &types.AnalysisResult{
				TotalClauses:   12,
				FlaggedClauses: 3,
				TopConcerns:    []string{"Unlimited liability"},
			},
		},
	})
	stdout := &bytes.Buffer{}
	cmd := NewStatusCommand(stdout, &bytes.Buffer{}, fixedFactory(env))

	if err := cmd.Run([]string{"sess-1"}); err != nil {
		t.Fatalf("expected status to succeed, got err=%v", err)
	}
	out := stdout.String()
	for _, want := range []string{"sess-1", "lease.pdf", "Complete", "12 total, 3 flagged", "Unlimited liability"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestStatusCommandUnknownSession(t *testing.T) {
	cmd := NewStatusCommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(testEnvironment(t, nil)))
	err := cmd.Run([]string{"missing"})
	if err == nil || !strings.Contains(err.Error(), "unknown session") {
		t.Fatalf("expected unknown-session error, got %v", err)
	}
}

func TestChatCommandRejectsUnfinishedSession(t *testing.T) {
	env := testEnvironment(t, []*types.Session{
		{ID: "sess-1", DocumentName: "lease.pdf", Status: types.StatusAnalyzing, Progress: 50, CreatedAt: time.Now()},
	})
	cmd := NewChatCommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(env))
	err := cmd.Run([]string{"-q", "What about fees?", "sess-1"})
	if err == nil || !strings.Contains(err.Error(), "has not completed") {
		t.Fatalf("expected incomplete-session error, got %v", err)
	}
}

func TestConfigCommandDefaultsJSON(t *testing.T) {
	stdout := &bytes.Buffer{}
	cmd := NewConfigCommand(stdout, &bytes.Buffer{})

	if err := cmd.Run([]string{"--default"}); err != nil {
		t.Fatalf("expected config to succeed, got err=%v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", stdout.String(), err)
	}
	for _, key := range []string{"config_path", "backend", "transport", "upload", "sessions", "logging", "voice", "storage"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing %q in config output: %q", key, stdout.String())
		}
	}
}

func TestConfigCommandTOML(t *testing.T) {
	stdout := &bytes.Buffer{}
	cmd := NewConfigCommand(stdout, &bytes.Buffer{})

	if err := cmd.Run([]string{"--default", "--format", "toml"}); err != nil {
		t.Fatalf("expected config to succeed, got err=%v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "[backend]") || !strings.Contains(out, "[transport]") {
		t.Fatalf("expected TOML tables, got %q", out)
	}
}

func TestResolveConfigFormat(t *testing.T) {
	if got, err := resolveConfigFormat(""); err != nil || got != configFormatJSON {
		t.Fatalf("expected json default, got %q err=%v", got, err)
	}
	if got, err := resolveConfigFormat(" TOML "); err != nil || got != configFormatTOML {
		t.Fatalf("expected toml, got %q err=%v", got, err)
	}
	if _, err := resolveConfigFormat("yaml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
