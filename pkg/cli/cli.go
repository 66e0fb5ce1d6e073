// Package cli implements the interactive command registry and dispatcher.
//
// Commands are registered in a fixed order (which also fixes the help
// listing), looked up by their first token and handed the remaining tokens
// as an argument cursor. A command's own failure is rendered to the user
// but never propagated: once a command was found and run, dispatch reports
// success so a driving read loop keeps going.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/tunerlab/ecutool/pkg/app"
)

// ErrInvalidCommand is returned for an empty token stream or an unknown
// command keyword.
var ErrInvalidCommand = errors.New("invalid command")

// Handler executes one command. The application context is borrowed
// exclusively for the duration of the call.
type Handler func(a *app.App, out io.Writer, args *Args) error

// Command is a named unit of work.
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         Handler
}

// CLI dispatches commands against one application context.
type CLI struct {
	app      *app.App
	out      io.Writer
	commands []*Command
}

func New(a *app.App, out io.Writer) *CLI {
	return &CLI{app: a, out: out}
}

// Register appends a command. Duplicate keywords are rejected instead of
// silently shadowing the earlier registration.
func (c *CLI) Register(cmd *Command) error {
	for _, existing := range c.commands {
		if existing.Name == cmd.Name {
			return fmt.Errorf("command %q already registered", cmd.Name)
		}
	}
	c.commands = append(c.commands, cmd)
	return nil
}

// Commands returns the registered commands in registration order.
func (c *CLI) Commands() []*Command {
	return c.commands
}

// Process dispatches one token vector. It fails with ErrInvalidCommand when
// the vector is empty or no keyword matches; a matched command's own error
// is rendered and absorbed.
func (c *CLI) Process(tokens []string) error {
	_, err := c.dispatch(tokens)
	return err
}

// ProcessOnce dispatches like Process but also surfaces the executed
// command's own failure. Single-command invocations use it to derive an
// exit status; the interactive read loop sticks with Process so one failed
// command never ends the session.
func (c *CLI) ProcessOnce(tokens []string) error {
	handlerErr, err := c.dispatch(tokens)
	if err != nil {
		return err
	}
	return handlerErr
}

// dispatch looks up and runs the command. The handler's failure is rendered
// to the output writer and returned separately from dispatch failures.
func (c *CLI) dispatch(tokens []string) (handlerErr, dispatchErr error) {
	if len(tokens) == 0 {
		return nil, ErrInvalidCommand
	}
	cmd := c.find(tokens[0])
	if cmd == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, tokens[0])
	}

	if err := cmd.Run(c.app, c.out, newArgs(tokens[1:], cmd.Usage)); err != nil {
		var usage *UsageError
		if errors.As(err, &usage) {
			fmt.Fprintln(c.out, usage.Error())
		} else {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		return err, nil
	}
	return nil, nil
}

func (c *CLI) find(name string) *Command {
	for _, cmd := range c.commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}
