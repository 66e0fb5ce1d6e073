// Package dtc represents diagnostic trouble codes as read from an ECU.
package dtc

import (
	"fmt"
	"strings"
)

// DTC is one stored trouble code with its status byte.
type DTC struct {
	Code   uint16
	Status byte
}

var classLetters = [4]byte{'P', 'C', 'B', 'U'}

// String renders the code in the familiar five character form, e.g. P0301.
// The top two bits select the system class, the next two the code group.
func (d DTC) String() string {
	letter := classLetters[d.Code>>14&0x03]
	return fmt.Sprintf("%c%d%03X", letter, d.Code>>12&0x03, d.Code&0x0FFF)
}

func (d DTC) StatusString() string {
	return StatusByteToString(d.Status)
}

/*
DTC Status Byte
bit #	hex		state								description
0		0x01	testFailed							DTC failed at the time of the request
1		0x02	testFailedThisOperationCycle		DTC failed on the current operation cycle
2		0x04	pendingDTC							DTC failed on the current or previous operation cycle
3		0x08	confirmedDTC						DTC is confirmed at the time of the request
4		0x10	testNotCompletedSinceLastClear		DTC test not completed since the last code clear
5		0x20	testFailedSinceLastClear			DTC test failed at least once since last code clear
6		0x40	testNotCompletedThisOperationCycle	DTC test not completed this operation cycle
7		0x80	warningIndicatorRequested			Server is requesting warningIndicator to be active
*/
func StatusByteToString(status byte) string {
	var statusStrings []string
	if status&0x80 != 0 {
		statusStrings = append(statusStrings, "CEL illuminated")
	}
	if status&0x40 != 0 {
		statusStrings = append(statusStrings, "test not completed this operation cycle")
	}
	if status&0x20 != 0 {
		statusStrings = append(statusStrings, "test failed at least once since last code clear")
	}
	if status&0x10 != 0 {
		statusStrings = append(statusStrings, "test not completed since the last code clear")
	}
	if status&0x08 != 0 {
		statusStrings = append(statusStrings, "confirmed at the time of the request")
	}
	if status&0x04 != 0 {
		statusStrings = append(statusStrings, "failed on the current or previous operation cycle")
	}
	if status&0x02 != 0 {
		statusStrings = append(statusStrings, "failed on the current operation cycle")
	}
	if status&0x01 != 0 {
		statusStrings = append(statusStrings, "failed at the time of the request")
	}
	return strings.Join(statusStrings, ", ")
}
