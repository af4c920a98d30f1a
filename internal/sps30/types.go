// internal/sps30/types.go
package sps30

import (
	"bytes"
	"fmt"
)

// Measurement is one snapshot of the measured values.
// Field order matches the order on the wire.
type Measurement struct {
	// Mass concentrations [µg/m³]
	MassPM1  float32
	MassPM25 float32
	MassPM4  float32
	MassPM10 float32

	// Number concentrations [#/cm³]
	NumberPM05 float32
	NumberPM1  float32
	NumberPM25 float32
	NumberPM4  float32
	NumberPM10 float32

	// TypicalSize is the typical particle size [µm]
	TypicalSize float32
}

// StatusRegister holds the decoded device status register.
// false means OK; true reports a problem.
type StatusRegister struct {
	Speed bool // fan speed out of range
	Laser bool // laser failure
	Fan   bool // fan mechanically blocked or broken

	// Raw is the register value as read.
	Raw uint32
}

// Healthy reports whether no status bit is set.
func (s StatusRegister) Healthy() bool {
	return !s.Speed && !s.Laser && !s.Fan
}

// FirmwareVersion is the firmware major.minor pair.
type FirmwareVersion struct {
	Major uint8
	Minor uint8
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ProductType is the raw product type field.
type ProductType [ProductTypeSize]byte

// String returns the field up to its first NUL byte.
func (p ProductType) String() string { return cString(p[:]) }

// SerialNumber is the raw serial number field.
type SerialNumber [SerialNumberSize]byte

// String returns the field up to its first NUL byte.
func (s SerialNumber) String() string { return cString(s[:]) }

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
