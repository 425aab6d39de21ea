package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/projects-hacks/clear-clause/internal/chat"
	"github.com/projects-hacks/clear-clause/internal/types"
)

const chatTimeout = 2 * time.Minute

type ChatCommand struct {
	stdout io.Writer
	stderr io.Writer
	newEnv environmentFactory
}

func NewChatCommand(stdout, stderr io.Writer, newEnv environmentFactory) *ChatCommand {
	return &ChatCommand{
		stdout: stdout,
		stderr: stderr,
		newEnv: newEnv,
	}
}

func (c *ChatCommand) Run(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	question := fs.String("q", "", "question to ask")
	audio := fs.String("audio", "", "audio file to transcribe instead of -q")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("chat requires a session id")
	}
	if *question == "" && *audio == "" {
		return errors.New("chat requires -q or --audio")
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
	if current.Status != types.StatusComplete {
		return errors.New("analysis has not completed yet")
	}

	controller := chat.NewController(env.api, env.repo.Chats(), id, env.cfg.VoiceModel(), env.log)
	defer controller.Close()
	if err := controller.Restore(ctx); err != nil {
		return err
	}
	controller.EnsureWelcome(ctx, current.DocumentName, current.Result)

	if *audio != "" {
		file, err := os.Open(*audio)
		if err != nil {
			return err
		}
		transcript, err := controller.SubmitVoice(ctx, file, filepath.Base(*audio))
		file.Close()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "you: %s\n", transcript)
	} else if err := controller.Submit(ctx, *question); err != nil {
		return err
	}

	if err := awaitAnswer(controller); err != nil {
		return err
	}
	return c.printAnswer(controller)
}

func awaitAnswer(controller *chat.Controller) error {
	deadline := time.Now().Add(chatTimeout)
	for controller.Busy() {
		if time.Now().After(deadline) {
			return errors.New("timed out waiting for an answer")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}

func (c *ChatCommand) printAnswer(controller *chat.Controller) error {
	messages := controller.Messages()
	for at := len(messages) - 1; at >= 0; at-- {
		message := messages[at]
		if message.Role != types.RoleAssistant || message.Welcome() {
			continue
		}
		if message.IsError {
			return errors.New(message.Content)
		}
		fmt.Fprintln(c.stdout, message.Content)
		if len(message.Sources) > 0 {
			fmt.Fprintf(c.stdout, "sources: %s\n", strings.Join(message.Sources, ", "))
		}
		return nil
	}
	return errors.New("no answer received")
}
