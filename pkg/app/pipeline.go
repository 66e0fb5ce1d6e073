package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tunerlab/ecutool/pkg/dtc"
	"github.com/tunerlab/ecutool/pkg/link"
	"github.com/tunerlab/ecutool/pkg/rom"
	"github.com/tunerlab/ecutool/pkg/uds"
)

// Download runs the download pipeline against a bound link: pull the image,
// identify it against the platform's models and persist it as a new ROM.
// Nothing is persisted unless every step succeeds; unidentifiable bytes are
// discarded entirely.
func (a *App) Download(ctx context.Context, bound *link.BoundLink, id, name string, onProgress func(float64)) (*rom.Rom, error) {
	dl, ok := bound.Downloader()
	if !ok {
		return nil, ErrDownloadUnsupported
	}
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	data, err := dl.Download(ctx, onProgress)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	model, ok := bound.Identify(data)
	if !ok {
		return nil, fmt.Errorf("%w: image does not match any model of platform %s", ErrUnknownModel, bound.Platform().ID)
	}

	r, err := a.Roms.New(id, name, bound.Platform().ID, model.ID, data)
	if err != nil {
		return nil, err
	}
	slog.Info("downloaded rom", "id", r.ID, "platform", r.Platform, "model", r.Model, "bytes", len(data))
	return r, nil
}

// Scan reads the stored diagnostic trouble codes through a bound link.
func (a *App) Scan(ctx context.Context, bound *link.BoundLink) ([]dtc.DTC, error) {
	cl, ok := bound.Diagnostics()
	if !ok {
		return nil, ErrScanUnsupported
	}
	return uds.NewScanner(cl).Scan(ctx)
}

// ClearDTC erases the stored trouble codes through a bound link.
func (a *App) ClearDTC(ctx context.Context, bound *link.BoundLink) error {
	cl, ok := bound.Diagnostics()
	if !ok {
		return ErrScanUnsupported
	}
	return uds.NewScanner(cl).Clear(ctx)
}
