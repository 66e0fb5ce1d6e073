package uds

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mask    byte
	codes   [][3]byte
	err     error
	cleared bool
}

func (f *fakeClient) ReadTroubleCodes(_ context.Context, statusMask byte) ([][3]byte, error) {
	f.mask = statusMask
	return f.codes, f.err
}

func (f *fakeClient) ClearTroubleCodes(context.Context) error {
	f.cleared = true
	return f.err
}

func TestScan(t *testing.T) {
	cl := &fakeClient{codes: [][3]byte{{0x01, 0x15, 0x28}}}
	codes, err := NewScanner(cl).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, codes, 1)
	require.Equal(t, uint16(0x0115), codes[0].Code)
	require.Equal(t, byte(0x28), codes[0].Status)
	require.Equal(t, byte(0xFF), cl.mask, "scan reads all stored codes")
}

func TestScanEmpty(t *testing.T) {
	codes, err := NewScanner(&fakeClient{}).Scan(context.Background())
	require.NoError(t, err)
	require.Empty(t, codes)
}

func TestScanError(t *testing.T) {
	cl := &fakeClient{err: errors.New("bus off")}
	_, err := NewScanner(cl).Scan(context.Background())
	require.ErrorContains(t, err, "bus off")
}

func TestClear(t *testing.T) {
	cl := &fakeClient{}
	require.NoError(t, NewScanner(cl).Clear(context.Background()))
	require.True(t, cl.cleared)
}
