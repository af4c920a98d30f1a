// internal/status/measurement.go
package status

import (
	"math"

	"github.com/tamzrod/sps30-replicator/internal/sps30"
)

// Measurement data block layout.
// Ten float32 values as register pairs (high word first), followed by the
// raw sensor status register as two registers.

// MeasurementBlockRegs is the size of one measurement data block.
const MeasurementBlockRegs = 22

// Register offsets inside the measurement data block.
const (
	RegMassPM1     = 0
	RegMassPM25    = 2
	RegMassPM4     = 4
	RegMassPM10    = 6
	RegNumberPM05  = 8
	RegNumberPM1   = 10
	RegNumberPM25  = 12
	RegNumberPM4   = 14
	RegNumberPM10  = 16
	RegTypicalSize = 18
	RegStatusRaw   = 20
)

// EncodeMeasurement renders one reading into a measurement data block.
func EncodeMeasurement(m sps30.Measurement, st sps30.StatusRegister) []uint16 {
	regs := make([]uint16, MeasurementBlockRegs)

	values := [...]float32{
		m.MassPM1, m.MassPM25, m.MassPM4, m.MassPM10,
		m.NumberPM05, m.NumberPM1, m.NumberPM25, m.NumberPM4, m.NumberPM10,
		m.TypicalSize,
	}
	for i, v := range values {
		putUint32(regs[2*i:], math.Float32bits(v))
	}
	putUint32(regs[RegStatusRaw:], st.Raw)

	return regs
}

func putUint32(dst []uint16, v uint32) {
	dst[0] = uint16(v >> 16)
	dst[1] = uint16(v)
}
