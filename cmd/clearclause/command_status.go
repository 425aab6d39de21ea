package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/projects-hacks/clear-clause/internal/view"
)

type StatusCommand struct {
	stdout io.Writer
	stderr io.Writer
	newEnv environmentFactory
}

func NewStatusCommand(stdout, stderr io.Writer, newEnv environmentFactory) *StatusCommand {
	return &StatusCommand{
		stdout: stdout,
		stderr: stderr,
		newEnv: newEnv,
	}
}

func (c *StatusCommand) Run(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	remote := fs.Bool("remote", false, "reconcile with the backend before printing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("status requires a session id")
	}
	id := fs.Arg(0)

	ctx := context.Background()
	env, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if *remote {
		analyzer := env.analyzer()
		defer analyzer.Close()
		if err := analyzer.Refresh(ctx, id); err != nil {
			return err
		}
	}

	current, ok := env.manager.Session(id)
	if !ok {
		return fmt.Errorf("unknown session: %s", id)
	}

	fmt.Fprintf(c.stdout, "id:       %s\n", current.ID)
	fmt.Fprintf(c.stdout, "document: %s\n", current.DocumentName)
	fmt.Fprintf(c.stdout, "status:   %s\n", view.StageLabel(current.Status))
	if !current.Terminal() && current.Progress >= 0 {
		fmt.Fprintf(c.stdout, "progress: %d%%\n", current.Progress)
	}
	if current.Message != "" {
		fmt.Fprintf(c.stdout, "message:  %s\n", current.Message)
	}
	if current.Result != nil {
		fmt.Fprintf(c.stdout, "clauses:  %d total, %d flagged\n",
			current.Result.TotalClauses, current.Result.FlaggedClauses)
		if len(current.Result.TopConcerns) > 0 {
			fmt.Fprintf(c.stdout, "concerns: %s\n", strings.Join(current.Result.TopConcerns, "; "))
		}
	}
	return nil
}
