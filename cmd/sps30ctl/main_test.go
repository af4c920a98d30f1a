// cmd/sps30ctl/main_test.go
package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/sps30-replicator/internal/sps30"
)

type fakeSensor struct {
	calls    []string
	readyIn  int // not-ready answers before each ready
	pending  int
	interval uint32
	failStop bool
}

func (f *fakeSensor) call(name string) { f.calls = append(f.calls, name) }

func (f *fakeSensor) StartMeasurement() error { f.call("start"); return nil }
func (f *fakeSensor) StopMeasurement() error {
	f.call("stop")
	if f.failStop {
		return errors.New("stop failed")
	}
	return nil
}
func (f *fakeSensor) ReadDataReadyFlag() (bool, error) {
	f.call("ready?")
	if f.pending < f.readyIn {
		f.pending++
		return false, nil
	}
	f.pending = 0
	return true, nil
}
func (f *fakeSensor) ReadMeasuredValues() (sps30.Measurement, error) {
	f.call("values")
	return sps30.Measurement{MassPM25: 4.5, TypicalSize: 0.625}, nil
}
func (f *fakeSensor) Sleep() error            { f.call("sleep"); return nil }
func (f *fakeSensor) WakeUp() error           { f.call("wake"); return nil }
func (f *fakeSensor) StartFanCleaning() error { f.call("clean"); return nil }
func (f *fakeSensor) ReadAutoCleaningInterval() (uint32, error) {
	f.call("interval?")
	return f.interval, nil
}
func (f *fakeSensor) WriteAutoCleaningInterval(s uint32) error {
	f.call("interval=")
	f.interval = s
	return nil
}
func (f *fakeSensor) ReadProductType() (sps30.ProductType, error) {
	var p sps30.ProductType
	copy(p[:], "00080000")
	return p, nil
}
func (f *fakeSensor) ReadSerialNumber() (sps30.SerialNumber, error) {
	var s sps30.SerialNumber
	copy(s[:], "SN42")
	return s, nil
}
func (f *fakeSensor) ReadFirmwareVersion() (sps30.FirmwareVersion, error) {
	return sps30.FirmwareVersion{Major: 2, Minor: 2}, nil
}
func (f *fakeSensor) ReadStatusRegister() (sps30.StatusRegister, error) {
	return sps30.StatusRegister{Speed: true, Raw: sps30.StatusBitSpeed}, nil
}
func (f *fakeSensor) ClearStatusRegister() error { f.call("clear"); return nil }
func (f *fakeSensor) Reset() error               { f.call("reset"); return nil }

type sleepLog struct{ total time.Duration }

func (s *sleepLog) Sleep(d time.Duration) { s.total += d }

func newCLI(f *fakeSensor) (*cli, *bytes.Buffer, *sleepLog) {
	var out bytes.Buffer
	sl := &sleepLog{}
	return &cli{dev: f, out: &out, delay: sl}, &out, sl
}

func TestInfo(t *testing.T) {
	f := &fakeSensor{interval: 604800}
	c, out, _ := newCLI(f)

	require.NoError(t, c.run("info", nil))

	s := out.String()
	assert.Contains(t, s, "00080000")
	assert.Contains(t, s, "SN42")
	assert.Contains(t, s, "firmware:       2.2")
	assert.Contains(t, s, "speed=true")
	assert.Contains(t, s, "604800 s")
	assert.Equal(t, "wake", f.calls[0])
}

func TestMeasure_WaitsForReadyAndStops(t *testing.T) {
	f := &fakeSensor{readyIn: 2}
	c, out, sl := newCLI(f)

	require.NoError(t, c.run("measure", []string{"2"}))

	assert.Equal(t, 2, strings.Count(out.String(), "pm2.5=4.50"))
	assert.Equal(t, "start", f.calls[0])
	assert.Equal(t, "stop", f.calls[len(f.calls)-1])
	// two readings, two not-ready waits each, one second between readings
	assert.Equal(t, time.Second+4*readyPoll, sl.total)
}

func TestMeasure_StopErrorReported(t *testing.T) {
	f := &fakeSensor{failStop: true}
	c, _, _ := newCLI(f)

	assert.Error(t, c.run("measure", []string{"1"}))
}

func TestMeasure_InvalidCount(t *testing.T) {
	c, _, _ := newCLI(&fakeSensor{})
	assert.Error(t, c.run("measure", []string{"zero"}))
	assert.Error(t, c.run("measure", []string{"0"}))
}

func TestInterval(t *testing.T) {
	f := &fakeSensor{interval: 100}
	c, out, _ := newCLI(f)

	require.NoError(t, c.run("interval", []string{"3600"}))
	assert.Equal(t, uint32(3600), f.interval)

	require.NoError(t, c.run("interval", nil))
	assert.Contains(t, out.String(), "3600 s")

	assert.Error(t, c.run("interval", []string{"-1"}))
}

func TestClean(t *testing.T) {
	f := &fakeSensor{}
	c, _, sl := newCLI(f)

	require.NoError(t, c.run("clean", nil))
	assert.Equal(t, []string{"start", "clean", "stop"}, f.calls)
	assert.Equal(t, cleaningCycle, sl.total)
}

func TestSimpleCommands(t *testing.T) {
	for cmd, want := range map[string]string{
		"sleep":        "sleep",
		"wake":         "wake",
		"reset":        "reset",
		"clear-status": "clear",
	} {
		f := &fakeSensor{}
		c, _, _ := newCLI(f)
		require.NoError(t, c.run(cmd, nil), cmd)
		assert.Equal(t, []string{want}, f.calls, cmd)
	}
}

func TestUnknownCommand(t *testing.T) {
	c, _, _ := newCLI(&fakeSensor{})
	assert.Error(t, c.run("dance", nil))
}

func TestRun_ExitCodes(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: sps30ctl")

	stderr.Reset()
	assert.Equal(t, 2, run([]string{"-addr", "0x80", "info"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "invalid -addr")

	stderr.Reset()
	assert.Equal(t, 2, run([]string{"-nope"}, &stdout, &stderr))

	assert.Equal(t, 1, run([]string{"-bus", "no-such-bus", "info"}, &stdout, &stderr))
	assert.Empty(t, stdout.String())
}
