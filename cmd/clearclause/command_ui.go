package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"

	"github.com/projects-hacks/clear-clause/internal/app"
	"github.com/projects-hacks/clear-clause/internal/config"
	"github.com/projects-hacks/clear-clause/internal/logging"
)

type runUIFunc func(env *environment, uploadPath string) error

type UICommand struct {
	stderr io.Writer
	newEnv environmentFactory
	runUI  runUIFunc
}

func NewUICommand(stderr io.Writer, newEnv environmentFactory, runUI runUIFunc) *UICommand {
	return &UICommand{
		stderr: stderr,
		newEnv: newEnv,
		runUI:  runUI,
	}
}

func (c *UICommand) Run(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	uploadPath := ""
	if fs.NArg() > 0 {
		uploadPath = fs.Arg(0)
	}

	env, err := c.newEnv(context.Background())
	if err != nil {
		return err
	}
	defer env.Close()

	return c.runUI(env, uploadPath)
}

// runTerminalUI hands the terminal to bubbletea, so command logging moves
// from stderr to a file for the duration of the session.
func runTerminalUI(env *environment, uploadPath string) error {
	log, closeLog := openUILog(env.cfg.LogLevel())
	defer closeLog()

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}

	analyzer := env.analyzer()
	defer analyzer.Close()

	return app.Run(app.Deps{
		Manager:  env.manager,
		Analyzer: analyzer,
		Backend:  env.api,
		Canceler: env.api,
		Prefs:    env.repo.Prefs(),
		Chats:    env.repo.Chats(),
		Voice:    env.cfg.VoiceModel(),
		VoiceDir: filepath.Join(dataDir, "voice"),
		Log:      log,
	}, uploadPath)
}

func openUILog(level string) (logging.Logger, func()) {
	dataDir, err := config.DataDir()
	if err != nil {
		return logging.Nop(), func() {}
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return logging.Nop(), func() {}
	}
	logPath := filepath.Join(dataDir, "ui.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return logging.Nop(), func() {}
	}
	return logging.New(file, logging.ParseLevel(level)), func() { _ = file.Close() }
}
