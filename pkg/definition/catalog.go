package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog holds the loaded platform definitions. Platforms are shared by
// reference and must not be mutated after loading.
type Catalog struct {
	platforms []*Platform
}

// Load reads every *.yaml file in dir. A missing directory yields an empty
// catalog; a malformed file is an error.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read definitions dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read definition %s: %w", e.Name(), err)
		}
		var p Platform
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse definition %s: %w", e.Name(), err)
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("definition %s: %w", e.Name(), err)
		}
		c.platforms = append(c.platforms, &p)
	}
	return c, nil
}

// Add registers a platform. Used by tests and embedded defaults.
func (c *Catalog) Add(p *Platform) {
	c.platforms = append(c.platforms, p)
}

// Find returns the platform with the given id.
func (c *Catalog) Find(id string) (*Platform, bool) {
	for _, p := range c.platforms {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// All returns the platforms in load order.
func (c *Catalog) All() []*Platform {
	return c.platforms
}
