package main

import (
	"io"
	"os"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdout  io.Writer
	stderr  io.Writer
	newEnv  environmentFactory
	runUI   runUIFunc
	version string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:  stdout,
		stderr:  stderr,
		newEnv:  newEnvironment,
		runUI:   runTerminalUI,
		version: buildVersion(),
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"analyze":  NewAnalyzeCommand(wiring.stdout, wiring.stderr, wiring.newEnv),
		"sessions": NewSessionsCommand(wiring.stdout, wiring.stderr, wiring.newEnv),
		"status":   NewStatusCommand(wiring.stdout, wiring.stderr, wiring.newEnv),
		"chat":     NewChatCommand(wiring.stdout, wiring.stderr, wiring.newEnv),
		"speak":    NewSpeakCommand(wiring.stdout, wiring.stderr, wiring.newEnv),
		"cancel":   NewCancelCommand(wiring.stdout, wiring.stderr, wiring.newEnv),
		"clear":    NewClearCommand(wiring.stdout, wiring.stderr, wiring.newEnv),
		"health":   NewHealthCommand(wiring.stdout, wiring.stderr, wiring.newEnv),
		"config":   NewConfigCommand(wiring.stdout, wiring.stderr),
		"ui":       NewUICommand(wiring.stderr, wiring.newEnv, wiring.runUI),
	}
}
