package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/projects-hacks/clear-clause/internal/session"
	"github.com/projects-hacks/clear-clause/internal/types"
	"github.com/projects-hacks/clear-clause/internal/view"
)

type AnalyzeCommand struct {
	stdout io.Writer
	stderr io.Writer
	newEnv environmentFactory
}

func NewAnalyzeCommand(stdout, stderr io.Writer, newEnv environmentFactory) *AnalyzeCommand {
	return &AnalyzeCommand{
		stdout: stdout,
		stderr: stderr,
		newEnv: newEnv,
	}
}

func (c *AnalyzeCommand) Run(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("analyze requires a PDF file")
	}
	path := fs.Arg(0)

	ctx := context.Background()
	env, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	analyzer := env.analyzer()
	defer analyzer.Close()

	changes := env.manager.Subscribe()
	id, err := analyzer.Start(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, id)

	final, err := c.follow(env, changes, id)
	if err != nil {
		return err
	}
	if final.Status == types.StatusError {
		return errors.New(final.Message)
	}
	if final.Result != nil {
		fmt.Fprintf(c.stdout, "complete: %d clauses, %d flagged\n",
			final.Result.TotalClauses, final.Result.FlaggedClauses)
	}
	return nil
}

// follow prints progress lines until the session reaches a terminal state.
// The session may be rekeyed mid-flight, so lookup falls back to the
// document name when the provisional id disappears.
func (c *AnalyzeCommand) follow(env *environment, changes <-chan struct{}, id string) (*types.Session, error) {
	var doc string
	seen := 0
	for {
		current, ok := findSession(env.manager.State(), id, doc)
		if ok {
			id = current.ID
			doc = current.DocumentName
			for ; seen < len(current.MessageHistory); seen++ {
				fmt.Fprintf(c.stdout, "%-24s %s\n", view.StageLabel(current.Status), current.MessageHistory[seen])
			}
			if current.Terminal() {
				return current, nil
			}
		} else if doc != "" {
			return nil, errors.New("session disappeared before finishing")
		}
		<-changes
	}
}

func findSession(state session.State, id, doc string) (*types.Session, bool) {
	if found, ok := state.Session(id); ok {
		return found, true
	}
	for at := len(state.Sessions) - 1; at >= 0; at-- {
		if state.Sessions[at].DocumentName == doc && doc != "" {
			return state.Sessions[at], true
		}
	}
	return nil, false
}
