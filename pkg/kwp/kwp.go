// Package kwp implements a KWP2000 diagnostic client on top of gocan.
//
// Requests and responses larger than a single frame are carried in the
// chunked header format used by the Trionic family: byte 0 holds a 6-bit
// descending chunk counter plus first-chunk (0x40) and
// confirmation-required (0x80) flags, byte 1 addresses the target node.
package kwp

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/roffe/gocan"
)

// Service ids.
const (
	READ_ECU_IDENTIFICATION                 = 0x1A
	READ_MEMORY_BY_ADDRESS                  = 0x23
	READ_DIAGNOSTIC_TROUBLE_CODES_BY_STATUS = 0x18
	CLEAR_DIAGNOSTIC_INFORMATION            = 0x14
	START_COMMUNICATION                     = 0x81
	STOP_COMMUNICATION                      = 0x82
)

const targetByte = 0xA1

// Client drives KWP2000 services over one CAN session.
type Client struct {
	c              *gocan.Client
	requestID      uint32
	responseID     uint32
	confirmID      uint32
	defaultTimeout time.Duration
}

// New returns a client talking on requestID and listening on responseID.
// Confirmations for multi-frame requests are polled on confirmID; pass 0
// for platforms that confirm on the response id.
func New(c *gocan.Client, requestID, responseID, confirmID uint32) *Client {
	if confirmID == 0 {
		confirmID = responseID
	}
	return &Client{
		c:              c,
		requestID:      requestID,
		responseID:     responseID,
		confirmID:      confirmID,
		defaultTimeout: 250 * time.Millisecond,
	}
}

func (t *Client) StartSession(ctx context.Context) error {
	payload := []byte{0x3F, START_COMMUNICATION, 0x00, 0x11, byte(t.requestID >> 8), byte(t.requestID), 0x00, 0x00}
	frame := gocan.NewFrame(t.requestID, payload, gocan.ResponseRequired)
	resp, err := t.c.SendAndWait(ctx, frame, t.defaultTimeout, t.responseID)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	data := resp.Data()
	if data[3] != START_COMMUNICATION|0x40 {
		return TranslateErrorCode(GENERAL_REJECT)
	}
	return nil
}

func (t *Client) StopSession(ctx context.Context) error {
	payload := []byte{0x3F, STOP_COMMUNICATION, 0x00, 0x11, byte(t.requestID >> 8), byte(t.requestID), 0x00, 0x00}
	return t.c.Send(gocan.NewFrame(t.requestID, payload, gocan.ResponseRequired))
}

// ReadMemoryByAddress reads length bytes starting at addr. The ECU limits a
// single request to 0xF0 bytes; callers loop for larger regions.
func (t *Client) ReadMemoryByAddress(ctx context.Context, addr, length int) ([]byte, error) {
	payload := []byte{
		0x06, READ_MEMORY_BY_ADDRESS,
		byte(addr >> 16), byte(addr >> 8), byte(addr),
		byte(length >> 8), byte(length),
	}
	resp, err := t.request(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("read memory 0x%06X: %w", addr, err)
	}
	if len(resp) < length {
		return nil, fmt.Errorf("read memory 0x%06X: short response %d < %d", addr, len(resp), length)
	}
	return resp[:length], nil
}

// ReadDTCByStatus reads stored trouble codes matching the status mask.
// Returns raw (code, status) pairs.
func (t *Client) ReadDTCByStatus(ctx context.Context, status byte) ([][3]byte, error) {
	resp, err := t.request(ctx, []byte{0x03, READ_DIAGNOSTIC_TROUBLE_CODES_BY_STATUS, status, 0x00})
	if err != nil {
		return nil, fmt.Errorf("read DTC by status: %w", err)
	}
	if len(resp) < 1 {
		return nil, fmt.Errorf("read DTC by status: empty response")
	}
	count := int(resp[0])
	resp = resp[1:]
	var codes [][3]byte
	for i := 0; i < count && (i+1)*3 <= len(resp); i++ {
		var c [3]byte
		copy(c[:], resp[i*3:i*3+3])
		codes = append(codes, c)
	}
	return codes, nil
}

// ClearDiagnosticInformation clears all stored trouble codes.
func (t *Client) ClearDiagnosticInformation(ctx context.Context) error {
	if _, err := t.request(ctx, []byte{0x03, CLEAR_DIAGNOSTIC_INFORMATION, 0xFF, 0x00}); err != nil {
		return fmt.Errorf("clear diagnostic information: %w", err)
	}
	return nil
}

// request sends one service request, possibly split over several frames,
// and reassembles the chunked response payload (service byte stripped).
func (t *Client) request(ctx context.Context, payload []byte) ([]byte, error) {
	service := payload[1]
	frames := t.splitRequest(payload)

	var resp gocan.CANFrame
	var err error
	for i, msg := range frames {
		if i < len(frames)-1 {
			if _, err = t.c.SendAndWait(ctx, msg, t.defaultTimeout, t.confirmID); err != nil {
				return nil, err
			}
			continue
		}
		resp, err = t.c.SendAndWait(ctx, msg, t.defaultTimeout, t.responseID)
		if err != nil {
			return nil, err
		}
	}

	d := resp.Data()
	if d[3] == 0x7F {
		return nil, TranslateErrorCode(d[5])
	}
	if d[3] != service|0x40 {
		return nil, fmt.Errorf("unexpected response 0x%02X to service 0x%02X", d[3], service)
	}

	out := bytes.NewBuffer(nil)
	dataLenLeft := int(d[2]) - 2
	thisRead := dataLenLeft
	if thisRead > 3 {
		thisRead = 3
	}
	out.Write(d[5 : 5+thisRead])
	dataLenLeft -= thisRead

	currentChunkNumber := d[0] & 0x3F
	for currentChunkNumber != 0 {
		conf := gocan.NewFrame(t.requestID, []byte{0x40, targetByte, 0x3F, d[0] &^ 0x40, 0x00, 0x00, 0x00, 0x00}, gocan.ResponseRequired)
		next, err := t.c.SendAndWait(ctx, conf, 450*time.Millisecond, t.responseID)
		if err != nil {
			return nil, err
		}
		d = next.Data()
		toRead := dataLenLeft
		if toRead > 6 {
			toRead = 6
		}
		out.Write(d[2 : 2+toRead])
		dataLenLeft -= toRead
		currentChunkNumber = d[0] & 0x3F
	}

	return out.Bytes(), nil
}

func (t *Client) splitRequest(payload []byte) []gocan.CANFrame {
	msgCount := (len(payload) + 6 - 1) / 6

	var results []gocan.CANFrame
	for i := 0; i < msgCount; i++ {
		msgData := make([]byte, 8)

		flag := 0
		if i == 0 {
			flag |= 0x40 // first data chunk
		}
		if i != msgCount-1 {
			flag |= 0x80 // confirmation wanted for every chunk except the last
		}
		msgData[0] = byte(flag | ((msgCount - i - 1) & 0x3F))
		msgData[1] = targetByte

		start := 6 * i
		count := len(payload) - start
		if count > 6 {
			count = 6
		}
		copy(msgData[2:], payload[start:start+count])

		// the final chunk carries the service response, earlier chunks
		// only elicit a confirmation
		results = append(results, gocan.NewFrame(t.requestID, msgData, gocan.ResponseRequired))
	}
	return results
}
