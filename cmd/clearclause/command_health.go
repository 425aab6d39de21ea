package main

import (
	"context"
	"flag"
	"fmt"
	"io"
)

type HealthCommand struct {
	stdout io.Writer
	stderr io.Writer
	newEnv environmentFactory
}

func NewHealthCommand(stdout, stderr io.Writer, newEnv environmentFactory) *HealthCommand {
	return &HealthCommand{
		stdout: stdout,
		stderr: stderr,
		newEnv: newEnv,
	}
}

func (c *HealthCommand) Run(args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
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

	health, err := env.api.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "status: %s\n", health.Status)
	if health.Version != "" {
		fmt.Fprintf(c.stdout, "version: %s\n", health.Version)
	}
	fmt.Fprintf(c.stdout, "active sessions: %d\n", health.ActiveSessions)
	return nil
}
