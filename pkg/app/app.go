// Package app owns the application context: configuration directories, the
// link catalog, the platform definition catalog and the ROM and tune
// managers. One App exists per process and is borrowed exclusively by the
// command currently executing; nothing here is safe for concurrent use.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tunerlab/ecutool/pkg/config"
	"github.com/tunerlab/ecutool/pkg/definition"
	"github.com/tunerlab/ecutool/pkg/link"
	"github.com/tunerlab/ecutool/pkg/rom"
	"github.com/tunerlab/ecutool/pkg/tune"
)

var (
	ErrInvalidPlatform     = errors.New("invalid platform")
	ErrDownloadUnsupported = errors.New("downloading unsupported for this datalink or platform")
	ErrScanUnsupported     = errors.New("diagnostics unsupported for this datalink or platform")
	ErrUnknownModel        = errors.New("unknown model")
	ErrInvalidRom          = errors.New("invalid ROM")
)

// App is the application context.
type App struct {
	ConfigDir string
	DataDir   string

	Links       *link.Catalog
	Definitions *definition.Catalog
	Roms        *rom.Manager
	Tunes       *tune.Manager
}

// New creates any missing config/data directories, loads platform
// definitions, ROM and tune indexes, and discovers the available links.
func New(cfg config.Config) (*App, error) {
	for _, dir := range []string{cfg.ConfigDir, cfg.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	defs, err := definition.Load(filepath.Join(cfg.ConfigDir, "definitions"))
	if err != nil {
		return nil, err
	}

	romDir := filepath.Join(cfg.DataDir, "roms")
	if err := os.MkdirAll(romDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", romDir, err)
	}
	roms := rom.NewManager(romDir)
	if err := roms.Load(); err != nil {
		return nil, err
	}

	tuneDir := filepath.Join(cfg.DataDir, "tunes")
	if err := os.MkdirAll(tuneDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", tuneDir, err)
	}
	tunes := tune.NewManager(tuneDir)
	if err := tunes.Load(); err != nil {
		return nil, err
	}

	links := link.Discover(link.AdapterSettings{
		Baudrate: cfg.Adapter.Baudrate,
		CANRate:  cfg.Adapter.CANRate,
	})

	slog.Info("loaded application state",
		"platforms", len(defs.All()),
		"roms", len(roms.All()),
		"tunes", len(tunes.All()),
		"links", links.Len())

	return &App{
		ConfigDir:   cfg.ConfigDir,
		DataDir:     cfg.DataDir,
		Links:       links,
		Definitions: defs,
		Roms:        roms,
		Tunes:       tunes,
	}, nil
}

// GetLink opens the link identified by token, which is either a catalog
// index or a stable link id.
func (a *App) GetLink(token string) (link.Link, error) {
	var entry *link.Entry
	var err error
	if index, convErr := strconv.Atoi(token); convErr == nil {
		entry, err = a.Links.Get(index)
	} else {
		entry, err = a.Links.Lookup(token)
	}
	if err != nil {
		return nil, err
	}
	l, err := entry.Create()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", entry.Description, err)
	}
	return l, nil
}

// Bind opens a link and pairs it with a platform definition. When the
// platform does not resolve the freshly opened link is closed again;
// reopening a link is cheap, so nothing is kept around.
func (a *App) Bind(linkToken, platformID string) (*link.BoundLink, error) {
	l, err := a.GetLink(linkToken)
	if err != nil {
		return nil, err
	}
	def, ok := a.Definitions.Find(platformID)
	if !ok {
		l.Close()
		return nil, fmt.Errorf("%w: %s", ErrInvalidPlatform, platformID)
	}
	return link.NewBound(l, def), nil
}

// CreateTune records a new tune referencing an existing ROM. The name
// defaults to the id when omitted.
func (a *App) CreateTune(romID, id, name string) (*tune.Tune, error) {
	if _, ok := a.Roms.Find(romID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRom, romID)
	}
	if name == "" {
		name = id
	}
	t, err := a.Tunes.Add(id, name, romID)
	if err != nil {
		return nil, err
	}
	slog.Info("created tune", "id", t.ID, "rom", t.Rom)
	return t, nil
}
