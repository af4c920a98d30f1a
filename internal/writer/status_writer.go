// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/sps30-replicator/internal/status"
)

// StatusWriter is the delivery-only contract for device status.
// It receives a snapshot and writes it verbatim.
// No logic, no state, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter is the concrete implementation used by the replicator.
type deviceStatusWriter struct {
	plan *StatusPlan
	cli  endpointClient

	needFull bool
	last     []uint16 // last delivered live slots, indexed by slot
}

// live slots are rewritten individually when they change
var liveSlots = []struct {
	slot int
	name string
}{
	{status.SlotHealthCode, "health"},
	{status.SlotLastErrorCode, "last_error"},
	{status.SlotSecondsInError, "seconds_in_error"},
	{status.SlotSensorFlags, "sensor_flags"},
	{status.SlotFirmware, "firmware"},
}

// NewDeviceStatusWriter builds a status writer if status is enabled for the unit.
// If plan.Status is nil, status is disabled.
func NewDeviceStatusWriter(plan Plan, clients Clients) (StatusWriter, bool) {
	if plan.Status == nil {
		return nil, false
	}

	sp := plan.Status

	return &deviceStatusWriter{
		plan:     sp,
		cli:      clients[sp.Endpoint],
		needFull: true, // full re-assert on first successful write
	}, true
}

// WriteStatus delivers a device status snapshot into status memory.
// On any write failure, the next successful call will re-assert the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.plan == nil {
		return errors.New("status writer: disabled")
	}
	if sw.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", sw.plan.Endpoint)
	}

	baseAddr := sw.baseAddr()
	regs := status.Encode(s, sw.plan.DeviceName)

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		for _, unitID := range sw.plan.UnitIDs {
			if err := sw.cli.WriteRegisters(unitID, baseAddr, regs); err != nil {
				sw.needFull = true
				return fmt.Errorf("status writer: full block write failed (unit_id=%d): %w", unitID, err)
			}
		}

		sw.needFull = false
		sw.last = regs
		return nil
	}

	var errs []string

	for _, ls := range liveSlots {
		if sw.last[ls.slot] == regs[ls.slot] {
			continue
		}

		failed := false
		for _, unitID := range sw.plan.UnitIDs {
			if err := sw.cli.WriteRegisters(
				unitID,
				baseAddr+uint16(ls.slot),
				[]uint16{regs[ls.slot]},
			); err != nil {
				errs = append(errs, fmt.Sprintf("slot%d %s write failed (unit_id=%d): %v", ls.slot, ls.name, unitID, err))
				failed = true
			}
		}
		if !failed {
			sw.last[ls.slot] = regs[ls.slot]
		}
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt. Re-assert on next success.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}

func (sw *deviceStatusWriter) baseAddr() uint16 {
	// Each device owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}
