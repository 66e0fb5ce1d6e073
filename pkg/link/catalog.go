package link

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/roffe/gocan/adapter"
	"go.bug.st/serial/enumerator"
)

// Catalog is the ordered set of available link descriptors. Entries are
// only ever appended during a session, so positional indexes stay stable,
// but the Entry.ID token is the durable way to refer to one.
type Catalog struct {
	entries []*Entry
}

// Discover enumerates the host's CAN adapters into a catalog. Adapters
// that need a serial port produce one entry per detected USB port; an
// empty catalog is a valid result, not an error.
func Discover(cfg AdapterSettings) *Catalog {
	c := &Catalog{}
	ports := listPorts()
	for _, name := range adapter.List() {
		info, found := adapter.GetAdapterMap()[name]
		if !found {
			continue
		}
		if info.RequiresSerialPort {
			for _, port := range ports {
				c.Add(NewCANEntry(name, port, cfg))
			}
			continue
		}
		c.Add(NewCANEntry(name, "", cfg))
	}
	return c
}

// Add appends a descriptor, assigning it a stable id if it has none.
func (c *Catalog) Add(e *Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	c.entries = append(c.entries, e)
}

// Get returns the descriptor at index or ErrInvalidDatalink when out of
// bounds.
func (c *Catalog) Get(index int) (*Entry, error) {
	if index < 0 || index >= len(c.entries) {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidDatalink, index)
	}
	return c.entries[index], nil
}

// Lookup resolves a descriptor by its stable id.
func (c *Catalog) Lookup(id string) (*Entry, error) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: id %s", ErrInvalidDatalink, id)
}

// All returns the descriptors in catalog order.
func (c *Catalog) All() []*Entry {
	return c.entries
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	return len(c.entries)
}

func listPorts() []string {
	var portsList []string
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil
	}
	for _, port := range ports {
		if port.IsUSB {
			portsList = append(portsList, port.Name)
		}
	}
	return portsList
}
