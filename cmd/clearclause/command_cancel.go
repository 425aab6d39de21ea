package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/projects-hacks/clear-clause/internal/client"
	"github.com/projects-hacks/clear-clause/internal/session"
)

type CancelCommand struct {
	stdout io.Writer
	stderr io.Writer
	newEnv environmentFactory
}

func NewCancelCommand(stdout, stderr io.Writer, newEnv environmentFactory) *CancelCommand {
	return &CancelCommand{
		stdout: stdout,
		stderr: stderr,
		newEnv: newEnv,
	}
}

func (c *CancelCommand) Run(args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("cancel requires a session id")
	}
	id := fs.Arg(0)

	ctx := context.Background()
	env, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	// A session the backend already forgot is still worth dropping locally.
	if err := env.api.CancelSession(ctx, id); err != nil && !client.IsSessionGone(err) {
		return err
	}
	env.manager.Dispatch(ctx, session.RemoveSession{SessionID: id})
	if err := env.repo.Chats().DeleteMessages(ctx, id); err != nil {
		env.log.Warn("chat cleanup failed")
	}
	fmt.Fprintln(c.stdout, "ok")
	return nil
}
