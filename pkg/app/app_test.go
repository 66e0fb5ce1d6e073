package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tunerlab/ecutool/pkg/app"
	"github.com/tunerlab/ecutool/pkg/definition"
	"github.com/tunerlab/ecutool/pkg/link"
	"github.com/tunerlab/ecutool/pkg/rom"
	"github.com/tunerlab/ecutool/pkg/tune"
	"github.com/tunerlab/ecutool/pkg/uds"
)

// testPlatform identifies model M1 by the ASCII prefix "M1".
func testPlatform() *definition.Platform {
	return &definition.Platform{
		ID:   "P",
		Name: "Test Platform",
		CAN:  definition.CANIDs{RequestID: 0x220, ResponseID: 0x258},
		Models: []definition.Model{
			{ID: "M1", Name: "Model One", Signatures: []definition.Signature{{Offset: 0, Hex: "4D31"}}},
		},
	}
}

type fakeDownloader struct {
	data []byte
	err  error
}

func (f *fakeDownloader) Download(_ context.Context, onProgress func(float64)) ([]byte, error) {
	onProgress(0.5)
	onProgress(1)
	return f.data, f.err
}

type fakeDiag struct {
	codes [][3]byte
	err   error
}

func (f *fakeDiag) ReadTroubleCodes(context.Context, byte) ([][3]byte, error) {
	return f.codes, f.err
}

func (f *fakeDiag) ClearTroubleCodes(context.Context) error {
	return f.err
}

type fakeLink struct {
	closed bool
	dl     link.Downloader
	diag   uds.Client
}

func (f *fakeLink) Close() error {
	f.closed = true
	return nil
}

func (f *fakeLink) Downloader(*definition.Platform) (link.Downloader, bool) {
	if f.dl == nil {
		return nil, false
	}
	return f.dl, true
}

func (f *fakeLink) Diagnostics(*definition.Platform) (uds.Client, bool) {
	if f.diag == nil {
		return nil, false
	}
	return f.diag, true
}

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	defs := &definition.Catalog{}
	defs.Add(testPlatform())
	return &app.App{
		Links:       &link.Catalog{},
		Definitions: defs,
		Roms:        rom.NewManager(t.TempDir()),
		Tunes:       tune.NewManager(t.TempDir()),
	}
}

func TestDownloadSuccess(t *testing.T) {
	a := newTestApp(t)
	payload := []byte("M1-firmware-image")
	bound := link.NewBound(&fakeLink{dl: &fakeDownloader{data: payload}}, testPlatform())

	var fractions []float64
	r, err := a.Download(context.Background(), bound, "id1", "Name1", func(f float64) {
		fractions = append(fractions, f)
	})
	require.NoError(t, err)
	require.Equal(t, "id1", r.ID)

	got, ok := a.Roms.Find("id1")
	require.True(t, ok)
	require.Equal(t, "Name1", got.Name)
	require.Equal(t, "P", got.Platform)
	require.Equal(t, "M1", got.Model)
	data, err := got.Data()
	require.NoError(t, err)
	require.Equal(t, payload, data)

	require.NotEmpty(t, fractions)
	for _, f := range fractions {
		require.GreaterOrEqual(t, f, 0.0)
		require.LessOrEqual(t, f, 1.0)
	}
	require.Equal(t, 1.0, fractions[len(fractions)-1])
}

func TestDownloadUnknownModel(t *testing.T) {
	a := newTestApp(t)
	bound := link.NewBound(&fakeLink{dl: &fakeDownloader{data: []byte("garbage")}}, testPlatform())

	for i := 0; i < 3; i++ {
		_, err := a.Download(context.Background(), bound, "id1", "Name1", nil)
		require.ErrorIs(t, err, app.ErrUnknownModel)
	}
	_, ok := a.Roms.Find("id1")
	require.False(t, ok)
	require.Empty(t, a.Roms.All(), "failed downloads must not grow the catalog")
}

func TestDownloadUnsupported(t *testing.T) {
	a := newTestApp(t)
	bound := link.NewBound(&fakeLink{}, testPlatform())
	_, err := a.Download(context.Background(), bound, "id1", "Name1", nil)
	require.ErrorIs(t, err, app.ErrDownloadUnsupported)
}

func TestDownloadPersistFailurePropagates(t *testing.T) {
	a := newTestApp(t)
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "index.json"), 0o755))
	a.Roms = rom.NewManager(dir)

	bound := link.NewBound(&fakeLink{dl: &fakeDownloader{data: []byte("M1-image")}}, testPlatform())
	_, err := a.Download(context.Background(), bound, "id1", "Name1", nil)
	require.Error(t, err)
	_, ok := a.Roms.Find("id1")
	require.False(t, ok)
}

func TestBindInvalidPlatformClosesLink(t *testing.T) {
	a := newTestApp(t)
	fl := &fakeLink{}
	a.Links.Add(&link.Entry{
		Type:   "fake",
		Create: func() (link.Link, error) { return fl, nil },
	})

	_, err := a.Bind("0", "missing")
	require.ErrorIs(t, err, app.ErrInvalidPlatform)
	require.True(t, fl.closed, "link opened before platform lookup must be released")
}

func TestBindInvalidDatalink(t *testing.T) {
	a := newTestApp(t)
	_, err := a.Bind("7", "P")
	require.ErrorIs(t, err, link.ErrInvalidDatalink)
	_, err = a.Bind("no-such-id", "P")
	require.ErrorIs(t, err, link.ErrInvalidDatalink)
}

func TestBindByStableID(t *testing.T) {
	a := newTestApp(t)
	fl := &fakeLink{}
	entry := &link.Entry{
		Type:   "fake",
		Create: func() (link.Link, error) { return fl, nil },
	}
	a.Links.Add(entry)

	bound, err := a.Bind(entry.ID, "P")
	require.NoError(t, err)
	require.Equal(t, "P", bound.Platform().ID)
}

func TestBindCreateFailurePropagates(t *testing.T) {
	a := newTestApp(t)
	a.Links.Add(&link.Entry{
		Type:   "fake",
		Create: func() (link.Link, error) { return nil, errors.New("device busy") },
	})
	_, err := a.Bind("0", "P")
	require.ErrorContains(t, err, "device busy")
}

func TestCreateTune(t *testing.T) {
	a := newTestApp(t)

	_, err := a.CreateTune("missingRom", "t1", "T1")
	require.ErrorIs(t, err, app.ErrInvalidRom)

	_, err = a.Roms.New("rom1", "Rom One", "P", "M1", []byte{1})
	require.NoError(t, err)

	tn, err := a.CreateTune("rom1", "t1", "T1")
	require.NoError(t, err)
	require.Equal(t, "rom1", tn.Rom)

	got, ok := a.Tunes.Find("t1")
	require.True(t, ok)
	require.Equal(t, "rom1", got.Rom)

	// name defaults to id
	tn2, err := a.CreateTune("rom1", "t2", "")
	require.NoError(t, err)
	require.Equal(t, "t2", tn2.Name)

	_, err = a.CreateTune("rom1", "t1", "again")
	require.ErrorIs(t, err, tune.ErrExists)
}

func TestScan(t *testing.T) {
	a := newTestApp(t)
	bound := link.NewBound(&fakeLink{diag: &fakeDiag{codes: [][3]byte{
		{0x03, 0x01, 0x80},
		{0x41, 0x23, 0x01},
	}}}, testPlatform())

	codes, err := a.Scan(context.Background(), bound)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	require.Equal(t, "P0301", codes[0].String())
	require.Equal(t, byte(0x80), codes[0].Status)
	require.Equal(t, "C0123", codes[1].String())
}

func TestScanUnsupported(t *testing.T) {
	a := newTestApp(t)
	bound := link.NewBound(&fakeLink{}, testPlatform())
	_, err := a.Scan(context.Background(), bound)
	require.ErrorIs(t, err, app.ErrScanUnsupported)
}
