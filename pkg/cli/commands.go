package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/tunerlab/ecutool/pkg/app"
	"github.com/tunerlab/ecutool/pkg/link"
)

// RegisterAll wires up the standard command set. Registration order is the
// help listing order.
func (c *CLI) RegisterAll() error {
	cmds := []*Command{
		{
			Name:        "help",
			Description: "This command",
			Usage:       "help",
			Run:         cmdHelp(c),
		},
		{
			Name:        "links",
			Description: "List available datalinks",
			Usage:       "links",
			Run:         cmdLinks,
		},
		{
			Name:        "add_link",
			Description: "Add a datalink by adapter type and port",
			Usage:       "add_link <adapter> <port> [baudrate]",
			Run:         cmdAddLink,
		},
		{
			Name:        "platforms",
			Description: "List available platform definitions",
			Usage:       "platforms",
			Run:         cmdPlatforms,
		},
		{
			Name:        "download",
			Description: "Download firmware from an ECU and store it as a ROM",
			Usage:       "download <datalink> <platformId> <id> [name]",
			Run:         cmdDownload,
		},
		{
			Name:        "pids",
			Description: "List the PIDs of a platform",
			Usage:       "pids <platformId>",
			Run:         cmdPids,
		},
		{
			Name:        "roms",
			Description: "List stored ROMs",
			Usage:       "roms",
			Run:         cmdRoms,
		},
		{
			Name:        "tunes",
			Description: "List stored tunes",
			Usage:       "tunes",
			Run:         cmdTunes,
		},
		{
			Name:        "create_tune",
			Description: "Create a tune referencing a stored ROM",
			Usage:       "create_tune <romId> <id> [name]",
			Run:         cmdCreateTune,
		},
		{
			Name:        "scan",
			Description: "Read diagnostic trouble codes",
			Usage:       "scan <datalink> <platformId>",
			Run:         cmdScan,
		},
		{
			Name:        "clear_dtc",
			Description: "Clear stored diagnostic trouble codes",
			Usage:       "clear_dtc <datalink> <platformId>",
			Run:         cmdClearDTC,
		},
	}
	for _, cmd := range cmds {
		if err := c.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func cmdHelp(c *CLI) Handler {
	return func(_ *app.App, out io.Writer, _ *Args) error {
		for _, cmd := range c.Commands() {
			fmt.Fprintf(out, "%-12s %s\n", cmd.Name, cmd.Description)
		}
		return nil
	}
}

func cmdLinks(a *app.App, out io.Writer, _ *Args) error {
	if a.Links.Len() == 0 {
		fmt.Fprintln(out, "no datalinks found")
		return nil
	}
	for i, e := range a.Links.All() {
		fmt.Fprintf(out, "%d: %s [%s] (%s)\n", i, e.Description, e.Type, e.ID)
	}
	return nil
}

func cmdAddLink(a *app.App, out io.Writer, args *Args) error {
	adapterName, err := args.Next()
	if err != nil {
		return err
	}
	port, err := args.Next()
	if err != nil {
		return err
	}
	settings := link.AdapterSettings{}
	if s, ok := args.Optional(); ok {
		baud, err := strconv.Atoi(s)
		if err != nil {
			return &UsageError{Usage: "add_link <adapter> <port> [baudrate]"}
		}
		settings.Baudrate = baud
	}
	entry := link.NewCANEntry(adapterName, port, settings)
	a.Links.Add(entry)
	fmt.Fprintf(out, "added %s as %d (%s)\n", entry.Description, a.Links.Len()-1, entry.ID)
	return nil
}

func cmdPlatforms(a *app.App, out io.Writer, _ *Args) error {
	for _, p := range a.Definitions.All() {
		fmt.Fprintf(out, "%s - %s\n", p.ID, p.Name)
	}
	return nil
}

func cmdDownload(a *app.App, out io.Writer, args *Args) error {
	linkToken, err := args.Next()
	if err != nil {
		return err
	}
	platformID, err := args.Next()
	if err != nil {
		return err
	}
	id, err := args.Next()
	if err != nil {
		return err
	}
	name, ok := args.Optional()
	if !ok {
		name = id
	}

	bound, err := a.Bind(linkToken, platformID)
	if err != nil {
		return err
	}
	defer bound.Close()

	r, err := a.Download(context.Background(), bound, id, name, func(fraction float64) {
		fmt.Fprintf(out, "\rdownloading... %3.0f%%", fraction*100)
	})
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "stored ROM %s (%s, model %s, %d bytes)\n", r.ID, r.Name, r.Model, r.Size())
	return nil
}

func cmdPids(a *app.App, out io.Writer, args *Args) error {
	platformID, err := args.Next()
	if err != nil {
		return err
	}
	p, ok := a.Definitions.Find(platformID)
	if !ok {
		return fmt.Errorf("%w: %s", app.ErrInvalidPlatform, platformID)
	}
	for _, pid := range p.PIDs {
		fmt.Fprintf(out, "0x%04X %-24s %s", pid.ID, pid.Name, pid.Description)
		if pid.Unit != "" {
			fmt.Fprintf(out, " [%s]", pid.Unit)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func cmdRoms(a *app.App, out io.Writer, _ *Args) error {
	for _, r := range a.Roms.All() {
		fmt.Fprintf(out, "%s - %s (platform %s, model %s, %d bytes)\n", r.ID, r.Name, r.Platform, r.Model, r.Size())
	}
	return nil
}

func cmdTunes(a *app.App, out io.Writer, _ *Args) error {
	for _, t := range a.Tunes.All() {
		fmt.Fprintf(out, "%s - %s (rom %s)\n", t.ID, t.Name, t.Rom)
	}
	return nil
}

func cmdCreateTune(a *app.App, out io.Writer, args *Args) error {
	romID, err := args.Next()
	if err != nil {
		return err
	}
	id, err := args.Next()
	if err != nil {
		return err
	}
	name, _ := args.Optional()

	t, err := a.CreateTune(romID, id, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created tune %s (%s) referencing rom %s\n", t.ID, t.Name, t.Rom)
	return nil
}

func cmdScan(a *app.App, out io.Writer, args *Args) error {
	linkToken, err := args.Next()
	if err != nil {
		return err
	}
	platformID, err := args.Next()
	if err != nil {
		return err
	}

	bound, err := a.Bind(linkToken, platformID)
	if err != nil {
		return err
	}
	defer bound.Close()

	codes, err := a.Scan(context.Background(), bound)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		fmt.Fprintln(out, "no stored trouble codes")
		return nil
	}
	for _, code := range codes {
		fmt.Fprintf(out, "%s: %s\n", code, code.StatusString())
	}
	return nil
}

func cmdClearDTC(a *app.App, out io.Writer, args *Args) error {
	linkToken, err := args.Next()
	if err != nil {
		return err
	}
	platformID, err := args.Next()
	if err != nil {
		return err
	}

	bound, err := a.Bind(linkToken, platformID)
	if err != nil {
		return err
	}
	defer bound.Close()

	if err := a.ClearDTC(context.Background(), bound); err != nil {
		return err
	}
	fmt.Fprintln(out, "trouble codes cleared")
	return nil
}
