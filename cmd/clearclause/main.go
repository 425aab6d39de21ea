package main

import (
	"fmt"
	"os"
)

const usageText = `clearclause analyzes legal documents with a remote backend.

Usage:
  clearclause <command> [flags]

Commands:
  analyze    upload a PDF and follow the analysis to completion
  sessions   list stored analysis sessions
  status     show one session (use --remote to reconcile with the backend)
  chat       ask a question about an analyzed document
  speak      save a spoken summary of the latest answer
  cancel     cancel a session on the backend and drop it locally
  clear      remove finished sessions
  health     check the backend
  config     print configuration (effective or defaults)
  ui         run the terminal UI
  help       show help

Flags:
  -h, --help   show help

Examples:
  clearclause analyze lease.pdf
  clearclause status --remote 4f8a21
  clearclause chat -q "What does clause 3 mean?" 4f8a21
  clearclause ui
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
