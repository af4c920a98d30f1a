// internal/sps30/registers.go
package sps30

import (
	"fmt"
	"time"
)

// DefaultAddress is the fixed 7-bit I2C address of the SPS30.
const DefaultAddress uint8 = 0x69

// Command is a 2-byte command word, sent big-endian.
type Command uint16

// Command words.
const (
	CmdStartMeasurement     Command = 0x0010
	CmdStopMeasurement      Command = 0x0104
	CmdReadDataReadyFlag    Command = 0x0202
	CmdReadMeasuredValues   Command = 0x0300
	CmdSleep                Command = 0x1001
	CmdWakeUp               Command = 0x1103
	CmdStartFanCleaning     Command = 0x5607
	CmdAutoCleaningInterval Command = 0x8004 // read and write share the opcode
	CmdReadProductType      Command = 0xD002
	CmdReadSerialNumber     Command = 0xD033
	CmdReadFirmwareVersion  Command = 0xD100
	CmdReadStatusRegister   Command = 0xD206
	CmdClearStatusRegister  Command = 0xD210
	CmdReset                Command = 0xD304
)

// Bytes returns the command word in wire order.
func (c Command) Bytes() [2]byte {
	return [2]byte{byte(c >> 8), byte(c)}
}

func (c Command) String() string {
	switch c {
	case CmdStartMeasurement:
		return "start measurement"
	case CmdStopMeasurement:
		return "stop measurement"
	case CmdReadDataReadyFlag:
		return "read data-ready flag"
	case CmdReadMeasuredValues:
		return "read measured values"
	case CmdSleep:
		return "sleep"
	case CmdWakeUp:
		return "wake up"
	case CmdStartFanCleaning:
		return "start fan cleaning"
	case CmdAutoCleaningInterval:
		return "auto-cleaning interval"
	case CmdReadProductType:
		return "read product type"
	case CmdReadSerialNumber:
		return "read serial number"
	case CmdReadFirmwareVersion:
		return "read firmware version"
	case CmdReadStatusRegister:
		return "read status register"
	case CmdClearStatusRegister:
		return "clear status register"
	case CmdReset:
		return "device reset"
	default:
		return fmt.Sprintf("command 0x%04X", uint16(c))
	}
}

// Status register bits. A set bit reports a problem.
const (
	StatusBitSpeed uint32 = 1 << 21 // fan speed out of range
	StatusBitLaser uint32 = 1 << 5  // laser failure
	StatusBitFan   uint32 = 1 << 4  // fan blocked or broken
)

// Start measurement argument: output format IEEE-754 float, then a dummy byte.
const (
	outputFormatFloat byte = 0x03
	argDummy          byte = 0x00
)

// Command execution times.
const (
	settleStartMeasurement  = 20 * time.Millisecond
	settleStopMeasurement   = 20 * time.Millisecond
	settleSleep             = 5 * time.Millisecond
	settleWakeUp            = 5 * time.Millisecond
	settleStartFanCleaning  = 5 * time.Millisecond
	settleReadAutoCleaning  = 5 * time.Millisecond
	settleWriteAutoCleaning = 20 * time.Millisecond
	settleClearStatus       = 5 * time.Millisecond
	settleReset             = 100 * time.Millisecond
)

// Response data sizes, checksums excluded.
const (
	DataReadyFlagSize   = 2
	MeasuredValuesSize  = 40
	AutoCleaningSize    = 4
	ProductTypeSize     = 8
	SerialNumberSize    = 32
	FirmwareVersionSize = 2
	StatusRegisterSize  = 4
)
