// Package rom manages downloaded firmware images and their metadata index.
//
// Payloads live as <id>.bin next to index.json in the rom directory. A new
// ROM becomes visible to lookups only after both the payload and the index
// have been written; any write failure rolls the record back.
package rom

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrExists is returned when a ROM id is already taken.
var ErrExists = errors.New("rom id already exists")

const indexFile = "index.json"

// Rom is one persisted firmware record.
type Rom struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Model    string `json:"model"`

	dir  string
	data []byte
}

// Data returns the raw image, reading it from disk if needed.
func (r *Rom) Data() ([]byte, error) {
	if r.data != nil {
		return r.data, nil
	}
	data, err := os.ReadFile(r.path())
	if err != nil {
		return nil, fmt.Errorf("read rom %s: %w", r.ID, err)
	}
	r.data = data
	return data, nil
}

// Size returns the payload size in bytes, 0 when unknown.
func (r *Rom) Size() int {
	if r.data != nil {
		return len(r.data)
	}
	if fi, err := os.Stat(r.path()); err == nil {
		return int(fi.Size())
	}
	return 0
}

func (r *Rom) path() string {
	return filepath.Join(r.dir, r.ID+".bin")
}

// Manager owns the ROM directory. Not safe for concurrent use; the
// application context serializes access.
type Manager struct {
	dir  string
	roms []*Rom
}

func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Load reads the metadata index. A missing index is an empty manager.
func (m *Manager) Load() error {
	data, err := os.ReadFile(filepath.Join(m.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read rom index: %w", err)
	}
	var roms []*Rom
	if err := json.Unmarshal(data, &roms); err != nil {
		return fmt.Errorf("parse rom index: %w", err)
	}
	for _, r := range roms {
		r.dir = m.dir
	}
	m.roms = roms
	return nil
}

// New persists a fresh ROM record. The payload is written first, then the
// index; the record is only registered once both writes succeeded, so a
// failed download pipeline never grows the catalog.
func (m *Manager) New(id, name, platform, model string, data []byte) (*Rom, error) {
	if _, ok := m.Find(id); ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, id)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create rom dir: %w", err)
	}

	r := &Rom{
		ID:       id,
		Name:     name,
		Platform: platform,
		Model:    model,
		dir:      m.dir,
		data:     data,
	}

	if err := os.WriteFile(r.path(), data, 0o644); err != nil {
		return nil, fmt.Errorf("write rom payload: %w", err)
	}

	m.roms = append(m.roms, r)
	if err := m.saveIndex(); err != nil {
		// roll back: drop the provisional record and its payload
		m.roms = m.roms[:len(m.roms)-1]
		os.Remove(r.path())
		return nil, err
	}
	return r, nil
}

// Find returns the ROM with the given id.
func (m *Manager) Find(id string) (*Rom, bool) {
	for _, r := range m.roms {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// All returns the ROMs in index order.
func (m *Manager) All() []*Rom {
	return m.roms
}

func (m *Manager) saveIndex() error {
	data, err := json.MarshalIndent(m.roms, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rom index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, indexFile), data, 0o644); err != nil {
		return fmt.Errorf("write rom index: %w", err)
	}
	return nil
}
