// Package definition holds static vehicle platform metadata: CAN addressing,
// firmware transfer windows, PID tables and model identification rules.
package definition

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// Platform describes one ECU platform.
type Platform struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	CAN      CANIDs   `yaml:"can"`
	Transfer Transfer `yaml:"transfer"`
	PIDs     []PID    `yaml:"pids"`
	Models   []Model  `yaml:"models"`
}

// CANIDs holds the request/response arbitration ids and bus rate used when
// talking to this platform. ConfirmID is the id multi-frame chunk
// confirmations arrive on; platforms that confirm on the response id leave
// it zero.
type CANIDs struct {
	RequestID  uint32  `yaml:"request_id"`
	ResponseID uint32  `yaml:"response_id"`
	ConfirmID  uint32  `yaml:"confirm_id"`
	Rate       float64 `yaml:"rate"`
}

// Transfer describes the flash window read during a firmware download. A
// zero Size means the platform does not support downloading.
type Transfer struct {
	Start int `yaml:"start"`
	Size  int `yaml:"size"`
	Chunk int `yaml:"chunk"`
}

// PID is one readable parameter id.
type PID struct {
	ID          uint16 `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Unit        string `yaml:"unit"`
}

// Model is one concrete ECU model within a platform, identified by byte
// signatures in the firmware image.
type Model struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name"`
	Signatures []Signature `yaml:"signatures"`
}

// Signature is a byte pattern expected at a fixed offset in the image.
// Hex is whitespace-separated hex, e.g. "54 52 49 4F 4E 49 43 37".
type Signature struct {
	Offset int    `yaml:"offset"`
	Hex    string `yaml:"hex"`
}

// Bytes decodes the signature pattern.
func (s Signature) Bytes() ([]byte, error) {
	clean := strings.Join(strings.Fields(s.Hex), "")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("signature %q: %w", s.Hex, err)
	}
	return b, nil
}

// Matches reports whether the signature is present in data.
func (s Signature) Matches(data []byte) bool {
	pattern, err := s.Bytes()
	if err != nil || len(pattern) == 0 {
		return false
	}
	if s.Offset < 0 || s.Offset+len(pattern) > len(data) {
		return false
	}
	return bytes.Equal(data[s.Offset:s.Offset+len(pattern)], pattern)
}

// Identify matches data against the platform's models. A model matches when
// every one of its signatures matches; the first matching model wins.
func (p *Platform) Identify(data []byte) (*Model, bool) {
	for i := range p.Models {
		m := &p.Models[i]
		if len(m.Signatures) == 0 {
			continue
		}
		matched := true
		for _, sig := range m.Signatures {
			if !sig.Matches(data) {
				matched = false
				break
			}
		}
		if matched {
			return m, true
		}
	}
	return nil, false
}

func (p *Platform) validate() error {
	if p.ID == "" {
		return fmt.Errorf("platform without id")
	}
	if p.CAN.RequestID == 0 || p.CAN.ResponseID == 0 {
		return fmt.Errorf("platform %s: missing CAN addressing", p.ID)
	}
	for _, m := range p.Models {
		for _, sig := range m.Signatures {
			if _, err := sig.Bytes(); err != nil {
				return fmt.Errorf("platform %s model %s: %w", p.ID, m.ID, err)
			}
		}
	}
	return nil
}
