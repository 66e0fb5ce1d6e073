package link

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/roffe/gocan"
	"github.com/roffe/gocan/adapter"

	"github.com/tunerlab/ecutool/pkg/definition"
	"github.com/tunerlab/ecutool/pkg/kwp"
	"github.com/tunerlab/ecutool/pkg/uds"
)

// AdapterSettings carries the host side adapter parameters applied when a
// descriptor is turned into a live link.
type AdapterSettings struct {
	Baudrate int
	CANRate  float64
}

// NewCANEntry builds a descriptor for a gocan adapter. port may be empty
// for adapters that do not use a serial port.
func NewCANEntry(name, port string, cfg AdapterSettings) *Entry {
	desc := name
	if port != "" {
		desc = fmt.Sprintf("%s on %s", name, port)
	}
	return &Entry{
		Type:        name,
		Description: desc,
		Create: func() (Link, error) {
			return openCAN(name, port, cfg)
		},
	}
}

type canLink struct {
	dev gocan.Adapter
	cl  *gocan.Client
}

func openCAN(name, port string, cfg AdapterSettings) (Link, error) {
	canRate := cfg.CANRate
	if canRate == 0 {
		canRate = 500
	}
	dev, err := adapter.New(name, &gocan.AdapterConfig{
		Port:         port,
		PortBaudrate: cfg.Baudrate,
		CANRate:      canRate,
		OnMessage: func(s string) {
			slog.Debug("adapter", "msg", s)
		},
		OnError: func(err error) {
			slog.Error("adapter", "err", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create adapter %s: %w", name, err)
	}

	// adapters are often still settling right after a replug, give the
	// open a couple of chances before reporting failure
	var cl *gocan.Client
	err = retry.Do(
		func() error {
			var err error
			cl, err = gocan.NewClient(context.Background(), dev)
			return err
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("open adapter %s: %w", name, err)
	}

	return &canLink{dev: dev, cl: cl}, nil
}

func (l *canLink) Close() error {
	l.cl.Close()
	return nil
}

func (l *canLink) Downloader(def *definition.Platform) (Downloader, bool) {
	if def.Transfer.Size == 0 {
		return nil, false
	}
	return &kwpDownloader{
		k:   kwp.New(l.cl, def.CAN.RequestID, def.CAN.ResponseID, def.CAN.ConfirmID),
		def: def,
	}, true
}

func (l *canLink) Diagnostics(def *definition.Platform) (uds.Client, bool) {
	if def.CAN.RequestID == 0 || def.CAN.ResponseID == 0 {
		return nil, false
	}
	return &kwpDiag{k: kwp.New(l.cl, def.CAN.RequestID, def.CAN.ResponseID, def.CAN.ConfirmID)}, true
}

// kwpDownloader reads the platform's flash window chunk by chunk.
type kwpDownloader struct {
	k   *kwp.Client
	def *definition.Platform
}

func (d *kwpDownloader) Download(ctx context.Context, onProgress func(float64)) ([]byte, error) {
	if err := d.k.StartSession(ctx); err != nil {
		return nil, err
	}
	defer d.k.StopSession(ctx)

	tr := d.def.Transfer
	chunk := tr.Chunk
	if chunk <= 0 || chunk > 0xF0 {
		chunk = 0xF0
	}

	out := make([]byte, 0, tr.Size)
	onProgress(0)
	for offset := 0; offset < tr.Size; {
		n := tr.Size - offset
		if n > chunk {
			n = chunk
		}
		data, err := d.k.ReadMemoryByAddress(ctx, tr.Start+offset, n)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		offset += n
		onProgress(float64(offset) / float64(tr.Size))
	}
	return out, nil
}

// kwpDiag runs one diagnostic session per operation, mirroring how the
// trouble code readers drive KWP sessions.
type kwpDiag struct {
	k *kwp.Client
}

func (d *kwpDiag) ReadTroubleCodes(ctx context.Context, statusMask byte) ([][3]byte, error) {
	if err := d.k.StartSession(ctx); err != nil {
		return nil, err
	}
	defer func() {
		d.k.StopSession(ctx)
		time.Sleep(75 * time.Millisecond)
	}()
	return d.k.ReadDTCByStatus(ctx, statusMask)
}

func (d *kwpDiag) ClearTroubleCodes(ctx context.Context) error {
	if err := d.k.StartSession(ctx); err != nil {
		return err
	}
	defer func() {
		d.k.StopSession(ctx)
		time.Sleep(75 * time.Millisecond)
	}()
	return d.k.ClearDiagnosticInformation(ctx)
}
