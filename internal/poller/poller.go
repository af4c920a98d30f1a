// internal/poller/poller.go
package poller

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/sps30-replicator/internal/sps30"
)

// Sensor abstracts the driver operations needed by the poller.
type Sensor interface {
	ReadDataReadyFlag() (bool, error)
	ReadMeasuredValues() (sps30.Measurement, error)
	ReadStatusRegister() (sps30.StatusRegister, error)
}

var _ Sensor = (*sps30.Device)(nil)

// Config is the minimal runtime config the poller needs.
type Config struct {
	UnitID   string
	Interval time.Duration
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg      Config
	sensor   Sensor
	identity Identity
}

// New creates a poller with immutable config.
func New(cfg Config, sensor Sensor) (*Poller, error) {
	if cfg.UnitID == "" {
		return nil, errors.New("poller: unit id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if sensor == nil {
		return nil, errors.New("poller: sensor required")
	}
	return &Poller{cfg: cfg, sensor: sensor}, nil
}

// UnitID returns the configured unit id.
func (p *Poller) UnitID() string { return p.cfg.UnitID }

// Identity returns what was read from the sensor at build time.
func (p *Poller) Identity() Identity { return p.identity }

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failure aborts the cycle.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{
		UnitID: p.cfg.UnitID,
		At:     time.Now(),
	}

	ready, err := p.sensor.ReadDataReadyFlag()
	if err != nil {
		res.Err = fmt.Errorf("poller: data ready: %w", err)
		return res
	}
	if !ready {
		res.Stale = true
		return res
	}

	m, err := p.sensor.ReadMeasuredValues()
	if err != nil {
		res.Err = fmt.Errorf("poller: measured values: %w", err)
		return res
	}

	st, err := p.sensor.ReadStatusRegister()
	if err != nil {
		res.Err = fmt.Errorf("poller: status register: %w", err)
		return res
	}

	// Commit only if all reads succeeded
	res.Measurement = m
	res.Status = st
	return res
}
