// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/sps30-replicator/internal/poller"
	"github.com/tamzrod/sps30-replicator/internal/status"
)

// endpointClient is the exact contract the writer uses.
// IMPORTANT: There must be NO other version of this interface anywhere.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Clients maps endpoint address to its client.
type Clients map[string]endpointClient

type modbusWriter struct {
	plan    Plan
	clients Clients
}

func New(plan Plan, clients Clients) Writer {
	return &modbusWriter{
		plan:    plan,
		clients: clients,
	}
}

// Write delivers one measurement block to every target.
// Stale and failed polls are not delivered; the status block reports them.
func (w *modbusWriter) Write(res poller.PollResult) error {
	if !res.OK() {
		return nil
	}

	regs := status.EncodeMeasurement(res.Measurement, res.Status)

	var errs []string

	for _, tgt := range w.plan.Targets {
		cli := w.clients[tgt.Endpoint]
		if cli == nil {
			errs = append(errs, fmt.Sprintf(
				"writer: missing client for endpoint %s",
				tgt.Endpoint,
			))
			continue
		}

		if err := cli.WriteRegisters(tgt.UnitID, tgt.Address, regs); err != nil {
			errs = append(errs, fmt.Sprintf(
				"writer: ep=%s unit=%d addr=%d err=%v",
				tgt.Endpoint, tgt.UnitID, tgt.Address, err,
			))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}

	return nil
}
