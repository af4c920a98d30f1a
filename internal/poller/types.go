// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/sps30-replicator/internal/sps30"
)

// Identity is read once from the sensor at startup.
type Identity struct {
	ProductType string
	Serial      string
	Firmware    sps30.FirmwareVersion
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	UnitID string
	At     time.Time

	// Stale means the sensor had no new reading. It is not an error.
	Stale bool

	Measurement sps30.Measurement
	Status      sps30.StatusRegister

	Err error // non-nil means the poll cycle failed
}

// OK reports whether the result carries a fresh reading.
func (r PollResult) OK() bool {
	return r.Err == nil && !r.Stale
}
