// internal/status/encode.go
package status

import "github.com/tamzrod/sps30-replicator/internal/sps30"

// Encode converts a Snapshot and device name into a full device status block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot, deviceName string) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotSensorFlags] = s.SensorFlags
	regs[SlotFirmware] = s.Firmware

	// Slots 5..10 are RESERVED and left as zero.

	copy(regs[SlotDeviceNameStart:SlotDeviceNameEnd+1], EncodeDeviceName(deviceName))

	return regs
}

// EncodeDeviceName packs up to 16 ASCII characters into 8 registers.
// Each register stores two ASCII bytes in big-endian order.
func EncodeDeviceName(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}

// SensorFlags maps the sensor status register onto the flags slot.
func SensorFlags(st sps30.StatusRegister) uint16 {
	var f uint16
	if st.Speed {
		f |= FlagSpeed
	}
	if st.Laser {
		f |= FlagLaser
	}
	if st.Fan {
		f |= FlagFan
	}
	return f
}

// Firmware packs a firmware version into one register.
func Firmware(v sps30.FirmwareVersion) uint16 {
	return uint16(v.Major)<<8 | uint16(v.Minor)
}
