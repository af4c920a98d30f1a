// internal/sps30/errors.go
package sps30

import (
	"errors"
	"fmt"
)

// ErrChecksumMismatch matches every *ChecksumError via errors.Is.
var ErrChecksumMismatch = errors.New("sps30: checksum mismatch")

// Error codes reported through Code(). 0 is reserved for "no error".
const (
	CodeBus      uint16 = 2
	CodeChecksum uint16 = 3
)

// BusError carries a failure of the underlying bus transport.
// Err is the transport's error, unmodified.
type BusError struct {
	// Op names the command that was being executed.
	Op  string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("sps30: %s: bus: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// Code returns the status-block error code for bus failures.
func (e *BusError) Code() uint16 { return CodeBus }

// ChecksumError reports the first response word whose CRC did not match.
type ChecksumError struct {
	Op   string
	Word int
	Want byte
	Got  byte
}

func (e *ChecksumError) Error() string {
	op := e.Op
	if op == "" {
		op = "decode"
	}
	return fmt.Sprintf("sps30: %s: checksum mismatch in word %d: got 0x%02X, want 0x%02X",
		op, e.Word, e.Got, e.Want)
}

// Is reports whether target is ErrChecksumMismatch.
func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// Code returns the status-block error code for checksum failures.
func (e *ChecksumError) Code() uint16 { return CodeChecksum }
