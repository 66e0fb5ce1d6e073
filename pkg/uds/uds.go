// Package uds defines the diagnostic interface consumed by the scan
// pipeline. Concrete implementations live with their transport; the kwp
// backed one is in pkg/link.
package uds

import (
	"context"
	"fmt"

	"github.com/tunerlab/ecutool/pkg/dtc"
)

// Client is one open diagnostic session against an ECU.
type Client interface {
	// ReadTroubleCodes returns raw (codeHigh, codeLow, status) triplets
	// for every stored code matching the mask.
	ReadTroubleCodes(ctx context.Context, statusMask byte) ([][3]byte, error)
	// ClearTroubleCodes erases all stored codes.
	ClearTroubleCodes(ctx context.Context) error
}

// Scanner reads diagnostic trouble codes through a Client.
type Scanner struct {
	cl Client
}

func NewScanner(cl Client) *Scanner {
	return &Scanner{cl: cl}
}

// Scan reads every stored trouble code. Read only; vehicle state and local
// catalogs are untouched.
func (s *Scanner) Scan(ctx context.Context) ([]dtc.DTC, error) {
	raw, err := s.cl.ReadTroubleCodes(ctx, 0xFF)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	codes := make([]dtc.DTC, 0, len(raw))
	for _, r := range raw {
		codes = append(codes, dtc.DTC{
			Code:   uint16(r[0])<<8 | uint16(r[1]),
			Status: r[2],
		})
	}
	return codes, nil
}

// Clear erases all stored trouble codes.
func (s *Scanner) Clear(ctx context.Context) error {
	if err := s.cl.ClearTroubleCodes(ctx); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}
