// Package link manages communication links to vehicle interfaces: the
// catalog of available link descriptors and the capability surface a live
// link exposes once bound to a platform definition.
package link

import (
	"context"
	"errors"

	"github.com/tunerlab/ecutool/pkg/definition"
	"github.com/tunerlab/ecutool/pkg/uds"
)

// ErrInvalidDatalink is returned when a catalog index or id does not
// resolve to a known link descriptor.
var ErrInvalidDatalink = errors.New("invalid datalink")

// Link is an open communication channel to a vehicle interface. It is
// exclusively owned by whoever created it and must be closed when the
// owning workflow completes or errors.
//
// Protocol support varies per link and platform, so capabilities are
// queried: the accessor either hands out a concrete client or reports the
// pairing unsupported.
type Link interface {
	Close() error
	// Downloader returns a firmware download client for the platform, or
	// false when the link/platform pairing does not support downloading.
	Downloader(def *definition.Platform) (Downloader, bool)
	// Diagnostics returns a diagnostic session for the platform, or false
	// when the pairing has none.
	Diagnostics(def *definition.Platform) (uds.Client, bool)
}

// Downloader reads a full firmware image off the ECU. Download blocks until
// the image is complete, reporting progress as a fraction in [0, 1].
type Downloader interface {
	Download(ctx context.Context, onProgress func(float64)) ([]byte, error)
}

// Entry describes one way to open a link. ID is a stable opaque identifier
// assigned when the entry enters the catalog; it stays valid for the whole
// session regardless of catalog position.
type Entry struct {
	ID          string
	Type        string
	Description string
	Create      func() (Link, error)
}

// BoundLink pairs one owned live link with a shared, read only platform
// definition.
type BoundLink struct {
	link Link
	def  *definition.Platform
}

// NewBound binds an open link to a platform definition. The bound link
// takes over ownership of the link.
func NewBound(l Link, def *definition.Platform) *BoundLink {
	return &BoundLink{link: l, def: def}
}

func (b *BoundLink) Platform() *definition.Platform { return b.def }

func (b *BoundLink) Close() error { return b.link.Close() }

// Downloader queries the download capability for the bound platform.
func (b *BoundLink) Downloader() (Downloader, bool) {
	return b.link.Downloader(b.def)
}

// Diagnostics queries the diagnostic capability for the bound platform.
func (b *BoundLink) Diagnostics() (uds.Client, bool) {
	return b.link.Diagnostics(b.def)
}

// Identify matches a downloaded image against the platform's models.
func (b *BoundLink) Identify(data []byte) (*definition.Model, bool) {
	return b.def.Identify(data)
}
