package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tunerlab/ecutool/pkg/app"
	"github.com/tunerlab/ecutool/pkg/cli"
	"github.com/tunerlab/ecutool/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogging(cfg.Log.Level)

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	c := cli.New(a, os.Stdout)
	if err := c.RegisterAll(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// one-shot mode: run the command line as a single command and let the
	// exit status reflect its outcome
	if len(os.Args) > 1 {
		if err := c.ProcessOnce(os.Args[1:]); err != nil {
			// handler failures are already rendered by the dispatcher
			if errors.Is(err, cli.ErrInvalidCommand) {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(1)
		}
		return
	}

	repl(c)
}

// repl reads one command per line until EOF. A failed command never
// terminates the loop; only dispatch errors (unknown keyword) are shown
// here, handler errors are rendered by the dispatcher itself.
func repl(c *cli.CLI) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		if tokens[0] == "quit" || tokens[0] == "exit" {
			return
		}
		if err := c.Process(tokens); err != nil {
			if errors.Is(err, cli.ErrInvalidCommand) {
				fmt.Printf("%v, try 'help'\n", err)
				continue
			}
			fmt.Println(err)
		}
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
