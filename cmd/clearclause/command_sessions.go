package main

import (
	"context"
	"flag"
	"fmt"
	"io"
)

type SessionsCommand struct {
	stdout io.Writer
	stderr io.Writer
	newEnv environmentFactory
}

func NewSessionsCommand(stdout, stderr io.Writer, newEnv environmentFactory) *SessionsCommand {
	return &SessionsCommand{
		stdout: stdout,
		stderr: stderr,
		newEnv: newEnv,
	}
}

func (c *SessionsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	env, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	sessions := env.manager.State().Sessions
	if len(sessions) == 0 {
		fmt.Fprintln(c.stdout, "no sessions")
		return nil
	}
	printSessions(c.stdout, sessions)
	return nil
}
