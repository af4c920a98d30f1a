// internal/sps30/device.go
package sps30

import (
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Bus is the two-wire transport the driver talks through.
// Read must fill buf completely or fail.
type Bus interface {
	Write(addr uint8, data []byte) error
	Read(addr uint8, buf []byte) error
}

// Delay blocks the caller for at least d.
type Delay interface {
	Sleep(d time.Duration)
}

// DelayFunc adapts a function to Delay.
type DelayFunc func(time.Duration)

// Sleep calls f(d).
func (f DelayFunc) Sleep(d time.Duration) { f(d) }

// Device is a session with one SPS30.
//
// A Device owns its bus and delay for its whole lifetime and is not safe for
// concurrent use; callers sharing a Device must serialize access. The driver
// does not track whether the sensor is measuring: reading measured values
// before StartMeasurement is the caller's mistake to avoid.
type Device struct {
	bus   Bus
	delay Delay
	addr  uint8
	log   *zap.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithAddress overrides DefaultAddress.
func WithAddress(addr uint8) Option {
	return func(d *Device) {
		d.addr = addr
	}
}

// WithLogger sets the logger used for frame-level debug output.
func WithLogger(log *zap.Logger) Option {
	return func(d *Device) {
		if log != nil {
			d.log = log
		}
	}
}

// New creates a session on bus. A nil delay falls back to time.Sleep.
func New(bus Bus, delay Delay, opts ...Option) *Device {
	if bus == nil {
		panic("sps30: bus cannot be nil")
	}
	if delay == nil {
		delay = DelayFunc(time.Sleep)
	}

	d := &Device{
		bus:   bus,
		delay: delay,
		addr:  DefaultAddress,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Address returns the I2C address the session talks to.
func (d *Device) Address() uint8 { return d.addr }

// Release ends the session and hands the bus back to the caller.
func (d *Device) Release() Bus {
	bus := d.bus
	d.bus = nil
	return bus
}

// StartMeasurement enters measurement mode with float output.
// Execution time: 20 ms.
func (d *Device) StartMeasurement() error {
	return d.exec(CmdStartMeasurement, []byte{outputFormatFloat, argDummy}, settleStartMeasurement)
}

// StopMeasurement returns to idle mode.
// Execution time: 20 ms.
func (d *Device) StopMeasurement() error {
	return d.exec(CmdStopMeasurement, nil, settleStopMeasurement)
}

// ReadDataReadyFlag polls for a new measurement.
func (d *Device) ReadDataReadyFlag() (bool, error) {
	data, err := d.query(CmdReadDataReadyFlag, 0, DataReadyFlagSize)
	if err != nil {
		return false, err
	}
	return decodeDataReady(data), nil
}

// ReadMeasuredValues reads the latest measurement.
// The sensor must be in measurement mode.
func (d *Device) ReadMeasuredValues() (Measurement, error) {
	data, err := d.query(CmdReadMeasuredValues, 0, MeasuredValuesSize)
	if err != nil {
		return Measurement{}, err
	}
	return decodeMeasurement(data), nil
}

// Sleep enters sleep mode. Only valid from idle mode.
// Execution time: 5 ms.
func (d *Device) Sleep() error {
	return d.exec(CmdSleep, nil, settleSleep)
}

// WakeUp leaves sleep mode.
//
// A sleeping sensor needs an address-only write to activate its interface
// before it accepts the wake-up command. That first write is normally NACKed,
// so its error is not reported.
// Execution time: 5 ms.
func (d *Device) WakeUp() error {
	if err := d.bus.Write(d.addr, []byte{}); err != nil {
		d.log.Debug("wake-up ping not acknowledged", zap.Error(err))
	}
	return d.exec(CmdWakeUp, nil, settleWakeUp)
}

// StartFanCleaning triggers a fan cleaning cycle. Only valid in measurement mode.
// Execution time: 5 ms.
func (d *Device) StartFanCleaning() error {
	return d.exec(CmdStartFanCleaning, nil, settleStartFanCleaning)
}

// ReadAutoCleaningInterval returns the fan auto-cleaning interval in seconds.
func (d *Device) ReadAutoCleaningInterval() (uint32, error) {
	data, err := d.query(CmdAutoCleaningInterval, settleReadAutoCleaning, AutoCleaningSize)
	if err != nil {
		return 0, err
	}
	return decodeInterval(data), nil
}

// WriteAutoCleaningInterval sets the fan auto-cleaning interval in seconds.
// Execution time: 20 ms.
func (d *Device) WriteAutoCleaningInterval(seconds uint32) error {
	return d.exec(CmdAutoCleaningInterval, encodeInterval(seconds), settleWriteAutoCleaning)
}

// ReadProductType reads the raw product type field.
func (d *Device) ReadProductType() (ProductType, error) {
	var out ProductType
	data, err := d.query(CmdReadProductType, 0, ProductTypeSize)
	if err != nil {
		return out, err
	}
	copy(out[:], data)
	return out, nil
}

// ReadSerialNumber reads the raw serial number field.
func (d *Device) ReadSerialNumber() (SerialNumber, error) {
	var out SerialNumber
	data, err := d.query(CmdReadSerialNumber, 0, SerialNumberSize)
	if err != nil {
		return out, err
	}
	copy(out[:], data)
	return out, nil
}

// ReadFirmwareVersion reads the firmware major.minor version.
func (d *Device) ReadFirmwareVersion() (FirmwareVersion, error) {
	data, err := d.query(CmdReadFirmwareVersion, 0, FirmwareVersionSize)
	if err != nil {
		return FirmwareVersion{}, err
	}
	return decodeFirmware(data), nil
}

// ReadStatusRegister reads and decodes the device status register.
func (d *Device) ReadStatusRegister() (StatusRegister, error) {
	data, err := d.query(CmdReadStatusRegister, 0, StatusRegisterSize)
	if err != nil {
		return StatusRegister{}, err
	}
	return decodeStatus(data), nil
}

// ClearStatusRegister clears the device status register.
// Execution time: 5 ms.
func (d *Device) ClearStatusRegister() error {
	return d.exec(CmdClearStatusRegister, nil, settleClearStatus)
}

// Reset performs a soft reset. The sensor returns to idle mode.
// Execution time: 100 ms.
func (d *Device) Reset() error {
	return d.exec(CmdReset, nil, settleReset)
}

// exec writes cmd with its argument words and waits settle.
func (d *Device) exec(cmd Command, args []byte, settle time.Duration) error {
	w := cmd.Bytes()
	payload := make([]byte, 0, CommandSize+len(args))
	payload = append(payload, w[:]...)
	payload = append(payload, args...)

	frame := EncodeFrame(payload)

	if ce := d.log.Check(zap.DebugLevel, "write"); ce != nil {
		ce.Write(zap.Stringer("cmd", cmd), zap.String("frame", hex.EncodeToString(frame)))
	}

	if err := d.bus.Write(d.addr, frame); err != nil {
		return &BusError{Op: cmd.String(), Err: err}
	}

	if settle > 0 {
		d.delay.Sleep(settle)
	}
	return nil
}

// query sends cmd, waits settle, then reads and decodes n data bytes.
func (d *Device) query(cmd Command, settle time.Duration, n int) ([]byte, error) {
	if err := d.exec(cmd, nil, settle); err != nil {
		return nil, err
	}

	frame := make([]byte, framedSize(n))
	if err := d.bus.Read(d.addr, frame); err != nil {
		return nil, &BusError{Op: cmd.String(), Err: err}
	}

	if ce := d.log.Check(zap.DebugLevel, "read"); ce != nil {
		ce.Write(zap.Stringer("cmd", cmd), zap.String("frame", hex.EncodeToString(frame)))
	}

	data, err := DecodeFrame(frame)
	if err != nil {
		var cerr *ChecksumError
		if errors.As(err, &cerr) {
			cerr.Op = cmd.String()
		}
		return nil, err
	}
	return data, nil
}
