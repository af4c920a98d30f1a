// internal/poller/builder_test.go
package poller

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tamzrod/sps30-replicator/internal/config"
	"github.com/tamzrod/sps30-replicator/internal/sps30"
)

// simBus answers reads with a framed response for the last command written.
type simBus struct {
	cmds    []sps30.Command
	args    map[sps30.Command][]byte
	pings   int
	closed  bool
	failCmd sps30.Command
	last    sps30.Command
}

func newSimBus() *simBus {
	return &simBus{args: map[sps30.Command][]byte{}}
}

func (b *simBus) Write(addr uint8, data []byte) error {
	if len(data) == 0 {
		b.pings++
		return errors.New("nack")
	}
	cmd := sps30.Command(binary.BigEndian.Uint16(data))
	b.cmds = append(b.cmds, cmd)
	b.last = cmd
	if len(data) > 2 {
		b.args[cmd] = append([]byte(nil), data[2:]...)
	}
	if cmd == b.failCmd {
		return errors.New("nack")
	}
	return nil
}

func (b *simBus) Read(addr uint8, buf []byte) error {
	var data []byte
	switch b.last {
	case sps30.CmdReadProductType:
		data = []byte("00080000")
	case sps30.CmdReadSerialNumber:
		data = make([]byte, sps30.SerialNumberSize)
		copy(data, "ABCDEF0123456789")
	case sps30.CmdReadFirmwareVersion:
		data = []byte{2, 2}
	case sps30.CmdReadDataReadyFlag:
		data = []byte{0, 1}
	case sps30.CmdReadMeasuredValues:
		data = make([]byte, sps30.MeasuredValuesSize)
		binary.BigEndian.PutUint32(data[4:], math.Float32bits(7.5))
	case sps30.CmdReadStatusRegister:
		data = make([]byte, sps30.StatusRegisterSize)
	default:
		return errors.New("sim: unexpected read")
	}

	framed := make([]byte, 0, len(buf))
	for i := 0; i < len(data); i += 2 {
		framed = append(framed, data[i], data[i+1], sps30.Checksum([2]byte{data[i], data[i+1]}))
	}
	if len(framed) != len(buf) {
		return errors.New("sim: size mismatch")
	}
	copy(buf, framed)
	return nil
}

func (b *simBus) Close() error {
	b.closed = true
	return nil
}

var noDelay = sps30.DelayFunc(func(time.Duration) {})

func testUnit() config.UnitConfig {
	return config.UnitConfig{
		ID:     "lab",
		Source: config.SourceConfig{Bus: "sim"},
		Poll:   config.PollConfig{IntervalMs: 1000},
	}
}

func TestBuildOn_StartupSequence(t *testing.T) {
	b := newSimBus()
	interval := uint32(3600)
	u := testUnit()
	u.Source.AutoCleaningIntervalS = &interval
	u.Source.CleanOnStart = true

	p, closeFn, err := buildOn(u, b, noDelay, nil)
	if err != nil {
		t.Fatalf("buildOn err=%v", err)
	}

	want := []sps30.Command{
		sps30.CmdWakeUp,
		sps30.CmdReadProductType,
		sps30.CmdReadSerialNumber,
		sps30.CmdReadFirmwareVersion,
		sps30.CmdAutoCleaningInterval,
		sps30.CmdStartMeasurement,
		sps30.CmdStartFanCleaning,
	}
	if len(b.cmds) != len(want) {
		t.Fatalf("commands = %v, want %v", b.cmds, want)
	}
	for i := range want {
		if b.cmds[i] != want[i] {
			t.Fatalf("command %d = %v, want %v", i, b.cmds[i], want[i])
		}
	}
	if b.pings != 1 {
		t.Fatalf("pings = %d, want 1", b.pings)
	}

	// 3600 = 0x00000E10
	args := b.args[sps30.CmdAutoCleaningInterval]
	wantArgs := []byte{0x00, 0x00, sps30.Checksum([2]byte{0, 0}), 0x0E, 0x10, sps30.Checksum([2]byte{0x0E, 0x10})}
	if string(args) != string(wantArgs) {
		t.Fatalf("interval args = % X, want % X", args, wantArgs)
	}

	id := p.Identity()
	if id.ProductType != "00080000" || id.Serial != "ABCDEF0123456789" || id.Firmware.String() != "2.2" {
		t.Fatalf("identity = %+v", id)
	}
	if p.UnitID() != "lab" {
		t.Fatalf("unit id = %q", p.UnitID())
	}

	res := p.PollOnce()
	if !res.OK() || res.Measurement.MassPM25 != 7.5 {
		t.Fatalf("poll = %+v", res)
	}

	b.cmds = nil
	if err := closeFn(); err != nil {
		t.Fatalf("close err=%v", err)
	}
	if len(b.cmds) != 2 || b.cmds[0] != sps30.CmdStopMeasurement || b.cmds[1] != sps30.CmdSleep {
		t.Fatalf("shutdown commands = %v", b.cmds)
	}
	if !b.closed {
		t.Fatalf("bus not closed")
	}
}

func TestBuildOn_MinimalSequence(t *testing.T) {
	b := newSimBus()

	if _, _, err := buildOn(testUnit(), b, noDelay, nil); err != nil {
		t.Fatalf("buildOn err=%v", err)
	}
	for _, c := range b.cmds {
		if c == sps30.CmdAutoCleaningInterval || c == sps30.CmdStartFanCleaning {
			t.Fatalf("unexpected optional command %v", c)
		}
	}
}

func TestBuildOn_StartFailure(t *testing.T) {
	b := newSimBus()
	b.failCmd = sps30.CmdStartMeasurement

	_, _, err := buildOn(testUnit(), b, noDelay, nil)
	var be *sps30.BusError
	if !errors.As(err, &be) {
		t.Fatalf("expected bus error, got %v", err)
	}
}
