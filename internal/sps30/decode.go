// internal/sps30/decode.go
package sps30

import (
	"encoding/binary"
	"math"
)

// The decoders below operate on checksum-stripped data bytes and assume the
// caller sized them from the response size constants.

func decodeDataReady(data []byte) bool {
	// byte 0 is unused by the sensor
	return data[1] != 0
}

func decodeMeasurement(data []byte) Measurement {
	f := func(i int) float32 {
		return math.Float32frombits(binary.BigEndian.Uint32(data[4*i:]))
	}

	return Measurement{
		MassPM1:     f(0),
		MassPM25:    f(1),
		MassPM4:     f(2),
		MassPM10:    f(3),
		NumberPM05:  f(4),
		NumberPM1:   f(5),
		NumberPM25:  f(6),
		NumberPM4:   f(7),
		NumberPM10:  f(8),
		TypicalSize: f(9),
	}
}

func decodeInterval(data []byte) uint32 {
	return binary.BigEndian.Uint32(data)
}

func encodeInterval(seconds uint32) []byte {
	b := make([]byte, AutoCleaningSize)
	binary.BigEndian.PutUint32(b, seconds)
	return b
}

func decodeFirmware(data []byte) FirmwareVersion {
	return FirmwareVersion{Major: data[0], Minor: data[1]}
}

func decodeStatus(data []byte) StatusRegister {
	raw := binary.BigEndian.Uint32(data)
	return StatusRegister{
		Speed: raw&StatusBitSpeed != 0,
		Laser: raw&StatusBitLaser != 0,
		Fan:   raw&StatusBitFan != 0,
		Raw:   raw,
	}
}
