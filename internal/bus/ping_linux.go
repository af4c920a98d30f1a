//go:build linux

package bus

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// i2c-dev ioctl requests, from linux/i2c-dev.h.
const (
	ioctlI2CSlave = 0x0703
	ioctlI2CRdwr  = 0x0707
	ioctlI2CSMBus = 0x0720

	smbusWrite = 0
	smbusQuick = 0
)

// struct i2c_msg
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_      uint16
	buf    uintptr
}

// struct i2c_rdwr_ioctl_data
type i2cRdwrData struct {
	msgs  uintptr
	nmsgs uint32
}

// struct i2c_smbus_ioctl_data
type i2cSMBusData struct {
	readWrite uint8
	command   uint8
	_         uint16
	size      uint32
	data      uintptr
}

// devPinger sends address-only writes through the i2c-dev node directly.
type devPinger struct {
	path string
}

func newDevPinger(path string) Pinger {
	return devPinger{path: path}
}

// Ping issues a single zero-length I2C_RDWR message. Adapters that reject
// zero-length messages get an SMBus quick write, which is the same bus sequence.
func (p devPinger) Ping(addr uint16) error {
	f, err := os.OpenFile(p.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("bus: ping 0x%02X: %w", addr, err)
	}
	defer f.Close()
	fd := f.Fd()

	msg := i2cMsg{addr: addr}
	rdwr := i2cRdwrData{msgs: uintptr(unsafe.Pointer(&msg)), nmsgs: 1}
	err = ioctl(fd, ioctlI2CRdwr, unsafe.Pointer(&rdwr))
	runtime.KeepAlive(&msg)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EOPNOTSUPP) {
		return fmt.Errorf("bus: ping 0x%02X: %w", addr, err)
	}

	if err := unix.IoctlSetInt(int(fd), ioctlI2CSlave, int(addr)); err != nil {
		return fmt.Errorf("bus: ping 0x%02X: select address: %w", addr, err)
	}
	quick := i2cSMBusData{readWrite: smbusWrite, size: smbusQuick}
	if err := ioctl(fd, ioctlI2CSMBus, unsafe.Pointer(&quick)); err != nil {
		return fmt.Errorf("bus: ping 0x%02X: quick write: %w", addr, err)
	}
	return nil
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}
