// Package sps30 drives a Sensirion SPS30 particulate matter sensor over I2C.
//
// # Framing
//
// Every command starts with a 2-byte command word. Argument and response
// data travel as 2-byte words, each followed by a CRC-8 checksum:
//
//	Write: [CMD_H][CMD_L][D0][D1][CRC][D2][D3][CRC]...
//	Read:  [D0][D1][CRC][D2][D3][CRC]...
//
// The command word itself is never checksummed. EncodeFrame and DecodeFrame
// add and strip checksums; a single bad checksum fails the whole read.
//
// # Usage
//
//	dev := sps30.New(bus, nil)
//	if err := dev.WakeUp(); err != nil { ... }
//	if err := dev.StartMeasurement(); err != nil { ... }
//	ready, err := dev.ReadDataReadyFlag()
//	m, err := dev.ReadMeasuredValues()
//
// # Errors
//
// Operations fail with exactly one of two errors: *BusError, wrapping the
// transport error unmodified, or *ChecksumError, which matches
// ErrChecksumMismatch. Nothing is retried.
package sps30
