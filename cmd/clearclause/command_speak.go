package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/projects-hacks/clear-clause/internal/chat"
)

type SpeakCommand struct {
	stdout io.Writer
	stderr io.Writer
	newEnv environmentFactory
}

func NewSpeakCommand(stdout, stderr io.Writer, newEnv environmentFactory) *SpeakCommand {
	return &SpeakCommand{
		stdout: stdout,
		stderr: stderr,
		newEnv: newEnv,
	}
}

func (c *SpeakCommand) Run(args []string) error {
	fs := flag.NewFlagSet("speak", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	out := fs.String("out", "summary.wav", "output WAV path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("speak requires a session id")
	}
	id := fs.Arg(0)

	ctx := context.Background()
	env, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	current, ok := env.manager.Session(id)
	if !ok {
		return fmt.Errorf("unknown session: %s", id)
	}

	controller := chat.NewController(env.api, env.repo.Chats(), id, env.cfg.VoiceModel(), env.log)
	defer controller.Close()
	if err := controller.Restore(ctx); err != nil {
		return err
	}
	controller.EnsureWelcome(ctx, current.DocumentName, current.Result)

	audio, err := controller.SpeakLatest(ctx)
	if errors.Is(err, chat.ErrNothingToSpeak) && current.Result != nil && current.Result.Summary != "" {
		// No conversation yet; voice the analysis summary instead.
		audio, err = env.api.VoiceSummary(ctx, id, current.Result.Summary, env.cfg.VoiceModel())
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, audio, 0o600); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, *out)
	return nil
}
