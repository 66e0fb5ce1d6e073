// Package tune manages calibration records layered on top of ROMs.
package tune

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrExists is returned when a tune id is already taken.
var ErrExists = errors.New("tune id already exists")

const indexFile = "tunes.json"

// Tune references a parent ROM by id. The reference is validated when the
// tune is created, not afterwards.
type Tune struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rom  string `json:"rom"`
}

// Manager owns the tune directory. Not safe for concurrent use.
type Manager struct {
	dir   string
	tunes []*Tune
}

func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Load reads the tune index. A missing index is an empty manager.
func (m *Manager) Load() error {
	data, err := os.ReadFile(filepath.Join(m.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read tune index: %w", err)
	}
	var tunes []*Tune
	if err := json.Unmarshal(data, &tunes); err != nil {
		return fmt.Errorf("parse tune index: %w", err)
	}
	m.tunes = tunes
	return nil
}

// Add registers and persists a new tune. The record becomes visible only
// after the index write succeeded.
func (m *Manager) Add(id, name, romID string) (*Tune, error) {
	if _, ok := m.Find(id); ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, id)
	}
	t := &Tune{ID: id, Name: name, Rom: romID}
	m.tunes = append(m.tunes, t)
	if err := m.Save(); err != nil {
		m.tunes = m.tunes[:len(m.tunes)-1]
		return nil, err
	}
	return t, nil
}

// Find returns the tune with the given id.
func (m *Manager) Find(id string) (*Tune, bool) {
	for _, t := range m.tunes {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// All returns the tunes in index order.
func (m *Manager) All() []*Tune {
	return m.tunes
}

// Save writes the tune index.
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create tune dir: %w", err)
	}
	data, err := json.MarshalIndent(m.tunes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tune index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, indexFile), data, 0o644); err != nil {
		return fmt.Errorf("write tune index: %w", err)
	}
	return nil
}
