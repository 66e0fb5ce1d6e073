package cli

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tunerlab/ecutool/pkg/app"
	"github.com/tunerlab/ecutool/pkg/definition"
	"github.com/tunerlab/ecutool/pkg/link"
	"github.com/tunerlab/ecutool/pkg/rom"
	"github.com/tunerlab/ecutool/pkg/tune"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	return &app.App{
		Links:       &link.Catalog{},
		Definitions: &definition.Catalog{},
		Roms:        rom.NewManager(t.TempDir()),
		Tunes:       tune.NewManager(t.TempDir()),
	}
}

func TestProcessEmptyAndUnknown(t *testing.T) {
	c := New(newTestApp(t), io.Discard)
	require.NoError(t, c.RegisterAll())

	require.ErrorIs(t, c.Process(nil), ErrInvalidCommand)
	require.ErrorIs(t, c.Process([]string{}), ErrInvalidCommand)
	require.ErrorIs(t, c.Process([]string{"unknown"}), ErrInvalidCommand)
}

func TestProcessRunsOnlySelectedCommand(t *testing.T) {
	c := New(newTestApp(t), io.Discard)
	var ran []string
	for _, name := range []string{"a", "b"} {
		name := name
		require.NoError(t, c.Register(&Command{
			Name:  name,
			Usage: name,
			Run: func(*app.App, io.Writer, *Args) error {
				ran = append(ran, name)
				return nil
			},
		}))
	}

	require.NoError(t, c.Process([]string{"a"}))
	require.Equal(t, []string{"a"}, ran)
}

func TestDuplicateKeywordRejected(t *testing.T) {
	c := New(newTestApp(t), io.Discard)
	nop := func(*app.App, io.Writer, *Args) error { return nil }
	require.NoError(t, c.Register(&Command{Name: "x", Run: nop}))
	require.Error(t, c.Register(&Command{Name: "x", Run: nop}))
}

func TestHelpListsEveryCommandOnceInOrder(t *testing.T) {
	var out bytes.Buffer
	c := New(newTestApp(t), &out)
	require.NoError(t, c.RegisterAll())

	require.NoError(t, c.Process([]string{"help"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(c.Commands()))
	for i, cmd := range c.Commands() {
		require.True(t, strings.HasPrefix(lines[i], cmd.Name), "line %d = %q, want prefix %q", i, lines[i], cmd.Name)
	}
}

func TestHandlerFailureIsRenderedNotPropagated(t *testing.T) {
	var out bytes.Buffer
	c := New(newTestApp(t), &out)
	require.NoError(t, c.Register(&Command{
		Name:  "boom",
		Usage: "boom",
		Run: func(*app.App, io.Writer, *Args) error {
			return errors.New("it broke")
		},
	}))

	require.NoError(t, c.Process([]string{"boom"}))
	require.Contains(t, out.String(), "error: it broke")
}

func TestProcessOnceSurfacesHandlerFailure(t *testing.T) {
	a := newTestApp(t)
	var out bytes.Buffer
	c := New(a, &out)
	require.NoError(t, c.RegisterAll())

	// a single-command invocation must be able to turn this into a
	// non-zero exit status
	err := c.ProcessOnce([]string{"create_tune", "missingRom", "t1"})
	require.ErrorIs(t, err, app.ErrInvalidRom)
	require.Contains(t, out.String(), "error: invalid ROM: missingRom")

	// the read loop keeps absorbing the same failure
	out.Reset()
	require.NoError(t, c.Process([]string{"create_tune", "missingRom", "t1"}))
	require.Contains(t, out.String(), "error: invalid ROM: missingRom")
}

func TestProcessOnceSuccessAndDispatchFailure(t *testing.T) {
	a := newTestApp(t)
	_, err := a.Roms.New("rom1", "Rom", "P", "M", nil)
	require.NoError(t, err)

	c := New(a, io.Discard)
	require.NoError(t, c.RegisterAll())

	require.NoError(t, c.ProcessOnce([]string{"create_tune", "rom1", "t1"}))
	require.ErrorIs(t, c.ProcessOnce([]string{"unknown"}), ErrInvalidCommand)
	require.ErrorIs(t, c.ProcessOnce(nil), ErrInvalidCommand)
}

func TestUsageErrorRendered(t *testing.T) {
	var out bytes.Buffer
	c := New(newTestApp(t), &out)
	require.NoError(t, c.RegisterAll())

	// download with no arguments is malformed, not fatal
	require.NoError(t, c.Process([]string{"download"}))
	require.Contains(t, out.String(), "usage: download <datalink> <platformId> <id> [name]")
}

func TestArgsCursor(t *testing.T) {
	a := newArgs([]string{"one", "two"}, "cmd <x> <y> [z]")

	x, err := a.Next()
	require.NoError(t, err)
	require.Equal(t, "one", x)

	y, err := a.Next()
	require.NoError(t, err)
	require.Equal(t, "two", y)

	_, ok := a.Optional()
	require.False(t, ok)

	_, err = a.Next()
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	require.Equal(t, "usage: cmd <x> <y> [z]", usage.Error())
}

func TestCreateTuneCommand(t *testing.T) {
	a := newTestApp(t)
	_, err := a.Roms.New("rom1", "Rom", "P", "M", nil)
	require.NoError(t, err)

	var out bytes.Buffer
	c := New(a, &out)
	require.NoError(t, c.RegisterAll())

	require.NoError(t, c.Process([]string{"create_tune", "rom1", "t1", "T1"}))
	tn, ok := a.Tunes.Find("t1")
	require.True(t, ok)
	require.Equal(t, "rom1", tn.Rom)

	out.Reset()
	require.NoError(t, c.Process([]string{"create_tune", "missingRom", "t2"}))
	require.Contains(t, out.String(), "invalid ROM")
}

func TestLinksCommand(t *testing.T) {
	a := newTestApp(t)
	a.Links.Add(&link.Entry{Type: "fake", Description: "fake link"})

	var out bytes.Buffer
	c := New(a, &out)
	require.NoError(t, c.RegisterAll())

	require.NoError(t, c.Process([]string{"links"}))
	require.Contains(t, out.String(), "0: fake link")
}
