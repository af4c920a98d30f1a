// cmd/sps30ctl/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/sps30-replicator/internal/bus"
	"github.com/tamzrod/sps30-replicator/internal/config"
	"github.com/tamzrod/sps30-replicator/internal/logging"
	"github.com/tamzrod/sps30-replicator/internal/sps30"
)

const usage = `usage: sps30ctl [-bus /dev/i2c-1] [-addr 0x69] [-v] <command> [args]

commands:
  info                 product type, serial, firmware, status, cleaning interval
  measure [N]          take N readings (default 20), one per second
  sleep                enter sleep mode
  wake                 leave sleep mode
  clean                run a fan cleaning cycle
  reset                soft reset
  interval [seconds]   read or set the auto-cleaning interval
  clear-status         clear the device status register
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sps30ctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	busName := fs.String("bus", "/dev/i2c-1", "I2C bus name")
	addrFlag := fs.String("addr", "0x69", "sensor I2C address")
	verbose := fs.Bool("v", false, "log bus frames")
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}

	addr, err := strconv.ParseUint(*addrFlag, 0, 7)
	if err != nil {
		fmt.Fprintf(stderr, "invalid -addr %q: %v\n", *addrFlag, err)
		return 2
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	log, err := logging.New(config.LoggingConfig{Level: level, Format: "console"})
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	b, err := bus.Open(*busName)
	if err != nil {
		log.Error("open bus", zap.String("bus", *busName), zap.Error(err))
		return 1
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Warn("close bus", zap.Error(err))
		}
	}()

	dev := sps30.New(b, nil, sps30.WithAddress(uint8(addr)), sps30.WithLogger(log.Named("sps30")))

	c := &cli{dev: dev, out: stdout, delay: sps30.DelayFunc(time.Sleep)}
	if err := c.run(fs.Arg(0), fs.Args()[1:]); err != nil {
		log.Error("command failed", zap.String("command", fs.Arg(0)), zap.Error(err))
		return 1
	}
	return 0
}

// sensor is the subset of *sps30.Device the commands use.
type sensor interface {
	StartMeasurement() error
	StopMeasurement() error
	ReadDataReadyFlag() (bool, error)
	ReadMeasuredValues() (sps30.Measurement, error)
	Sleep() error
	WakeUp() error
	StartFanCleaning() error
	ReadAutoCleaningInterval() (uint32, error)
	WriteAutoCleaningInterval(seconds uint32) error
	ReadProductType() (sps30.ProductType, error)
	ReadSerialNumber() (sps30.SerialNumber, error)
	ReadFirmwareVersion() (sps30.FirmwareVersion, error)
	ReadStatusRegister() (sps30.StatusRegister, error)
	ClearStatusRegister() error
	Reset() error
}

var _ sensor = (*sps30.Device)(nil)

const (
	readyPoll     = 100 * time.Millisecond
	readyTimeout  = 3 * time.Second
	cleaningCycle = 10 * time.Second
)

type cli struct {
	dev   sensor
	out   io.Writer
	delay sps30.Delay
}

func (c *cli) run(cmd string, args []string) error {
	switch cmd {
	case "info":
		return c.info()
	case "measure":
		n := 20
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v <= 0 {
				return fmt.Errorf("invalid count %q", args[0])
			}
			n = v
		}
		return c.measure(n)
	case "sleep":
		return c.dev.Sleep()
	case "wake":
		return c.dev.WakeUp()
	case "clean":
		return c.clean()
	case "reset":
		return c.dev.Reset()
	case "interval":
		if len(args) == 0 {
			v, err := c.dev.ReadAutoCleaningInterval()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "auto-cleaning interval: %d s\n", v)
			return nil
		}
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid interval %q", args[0])
		}
		return c.dev.WriteAutoCleaningInterval(uint32(v))
	case "clear-status":
		return c.dev.ClearStatusRegister()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) info() error {
	if err := c.dev.WakeUp(); err != nil {
		return err
	}

	pt, err := c.dev.ReadProductType()
	if err != nil {
		return err
	}
	sn, err := c.dev.ReadSerialNumber()
	if err != nil {
		return err
	}
	fw, err := c.dev.ReadFirmwareVersion()
	if err != nil {
		return err
	}
	st, err := c.dev.ReadStatusRegister()
	if err != nil {
		return err
	}
	iv, err := c.dev.ReadAutoCleaningInterval()
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "product type:   %s (% X)\n", pt, pt[:])
	fmt.Fprintf(c.out, "serial number:  %s\n", sn)
	fmt.Fprintf(c.out, "firmware:       %s\n", fw)
	fmt.Fprintf(c.out, "status:         speed=%t laser=%t fan=%t (0x%08X)\n", st.Speed, st.Laser, st.Fan, st.Raw)
	fmt.Fprintf(c.out, "auto-cleaning:  %d s\n", iv)
	return nil
}

func (c *cli) measure(n int) (err error) {
	if err := c.dev.StartMeasurement(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.dev.StopMeasurement())
	}()

	for i := 0; i < n; i++ {
		if i > 0 {
			c.delay.Sleep(time.Second)
		}
		if err := c.waitReady(); err != nil {
			return err
		}
		m, err := c.dev.ReadMeasuredValues()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out,
			"pm1.0=%.2f pm2.5=%.2f pm4.0=%.2f pm10=%.2f ug/m3 | n0.5=%.2f n1.0=%.2f n2.5=%.2f n4.0=%.2f n10=%.2f #/cm3 | size=%.3f um\n",
			m.MassPM1, m.MassPM25, m.MassPM4, m.MassPM10,
			m.NumberPM05, m.NumberPM1, m.NumberPM25, m.NumberPM4, m.NumberPM10,
			m.TypicalSize,
		)
	}
	return nil
}

func (c *cli) waitReady() error {
	for waited := time.Duration(0); waited < readyTimeout; waited += readyPoll {
		ready, err := c.dev.ReadDataReadyFlag()
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		c.delay.Sleep(readyPoll)
	}
	return fmt.Errorf("no measurement ready after %s", readyTimeout)
}

// clean runs one fan cleaning cycle; the sensor must be measuring for it.
func (c *cli) clean() (err error) {
	if err := c.dev.StartMeasurement(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.dev.StopMeasurement())
	}()

	if err := c.dev.StartFanCleaning(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "fan cleaning started, waiting %s\n", cleaningCycle)
	c.delay.Sleep(cleaningCycle)
	return nil
}
