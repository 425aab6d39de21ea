package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/projects-hacks/clear-clause/internal/session"
)

type ClearCommand struct {
	stdout io.Writer
	stderr io.Writer
	newEnv environmentFactory
}

func NewClearCommand(stdout, stderr io.Writer, newEnv environmentFactory) *ClearCommand {
	return &ClearCommand{
		stdout: stdout,
		stderr: stderr,
		newEnv: newEnv,
	}
}

func (c *ClearCommand) Run(args []string) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
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

	before := env.manager.State().Sessions
	env.manager.Dispatch(ctx, session.ClearTerminal{})
	after := env.manager.State()

	removed := 0
	for _, candidate := range before {
		if _, ok := after.Session(candidate.ID); ok {
			continue
		}
		removed++
		if err := env.repo.Chats().DeleteMessages(ctx, candidate.ID); err != nil {
			env.log.Warn("chat cleanup failed")
		}
	}
	fmt.Fprintf(c.stdout, "removed %d finished sessions\n", removed)
	return nil
}
