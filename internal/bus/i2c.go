// internal/bus/i2c.go
package bus

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Txer is the combined write/read primitive of an I2C controller.
// periph.io buses and TinyGo machine.I2C both provide it.
type Txer interface {
	Tx(addr uint16, w, r []byte) error
}

// Pinger issues an address-only write: START, address with the write bit, STOP.
// periph.io treats a Tx with no data as a no-op, so the wake-up ping
// cannot go through Txer.
type Pinger interface {
	Ping(addr uint16) error
}

// ErrNoAddressOnlyWrite is returned by a zero-length Write on a controller
// without a Pinger.
var ErrNoAddressOnlyWrite = errors.New("bus: controller cannot issue an address-only write")

// Bus adapts a Txer to sps30.Bus.
// Writes and reads are separate transactions with a STOP in between.
type Bus struct {
	tx     Txer
	ping   Pinger
	closer io.Closer
	name   string
}

// Option configures a Bus.
type Option func(*Bus)

// WithPinger sets the address-only write used for zero-length writes.
func WithPinger(p Pinger) Option {
	return func(b *Bus) { b.ping = p }
}

// New wraps an already opened controller. Close is a no-op unless tx is an io.Closer.
// A tx that also implements Pinger serves zero-length writes itself.
func New(tx Txer, opts ...Option) *Bus {
	if tx == nil {
		panic("bus: controller cannot be nil")
	}
	b := &Bus{tx: tx, name: fmt.Sprintf("%v", tx)}
	if c, ok := tx.(io.Closer); ok {
		b.closer = c
	}
	if p, ok := tx.(Pinger); ok {
		b.ping = p
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open initializes the host drivers and opens an I2C bus by name
// ("/dev/i2c-1", "1", or "" for the first available bus).
func Open(name string) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("bus: host init: %w", err)
	}

	bc, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("bus: open %q: %w", name, err)
	}

	b := &Bus{tx: bc, closer: bc, name: bc.String()}
	if node, ok := devNode(name); ok {
		b.ping = newDevPinger(node)
	}
	return b, nil
}

// devNode resolves a bus name accepted by i2creg.Open to its /dev/i2c-N node.
func devNode(name string) (string, bool) {
	if strings.HasPrefix(name, "/dev/") {
		return name, true
	}

	num := -1
	for _, r := range i2creg.All() {
		if r.Number < 0 {
			continue
		}
		if name == "" {
			if num < 0 || r.Number < num {
				num = r.Number
			}
			continue
		}
		if r.Name == name || strconv.Itoa(r.Number) == name || slices.Contains(r.Aliases, name) {
			num = r.Number
			break
		}
	}
	if num < 0 {
		return "", false
	}
	return fmt.Sprintf("/dev/i2c-%d", num), true
}

// Write sends data to addr in one write transaction.
// A zero-length write is an address-only ping and needs a Pinger.
func (b *Bus) Write(addr uint8, data []byte) error {
	if b == nil || b.tx == nil {
		return errors.New("bus: closed")
	}
	if len(data) == 0 {
		if b.ping == nil {
			return ErrNoAddressOnlyWrite
		}
		return b.ping.Ping(uint16(addr))
	}
	return b.tx.Tx(uint16(addr), data, nil)
}

// Read fills buf from addr in one read transaction.
func (b *Bus) Read(addr uint8, buf []byte) error {
	if b == nil || b.tx == nil {
		return errors.New("bus: closed")
	}
	return b.tx.Tx(uint16(addr), nil, buf)
}

// String returns the controller name.
func (b *Bus) String() string { return b.name }

// Close releases the controller.
func (b *Bus) Close() error {
	if b == nil || b.tx == nil {
		return nil
	}
	b.tx = nil
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

var _ Txer = (i2c.Bus)(nil)
