// internal/writer/builder.go
package writer

import (
	"errors"
	"time"

	cfg "github.com/tamzrod/sps30-replicator/internal/config"
	wmodbus "github.com/tamzrod/sps30-replicator/internal/writer/modbus"
)

// BuildPlan converts one unit config into a Writer Plan.
// Assumes config has already passed conflict validation.
func BuildPlan(u cfg.UnitConfig, statusEndpoint string) (Plan, error) {
	if u.ID == "" {
		return Plan{}, errors.New("writer: unit.id required")
	}

	plan := Plan{UnitID: u.ID}

	for _, t := range u.Targets {
		plan.Targets = append(plan.Targets, TargetEndpoint{
			TargetID: t.ID,
			Endpoint: t.Endpoint,
			UnitID:   t.UnitID,
			Address:  t.Address,
		})
	}

	if u.Source.StatusSlot == nil {
		return plan, nil
	}

	if statusEndpoint == "" {
		return Plan{}, errors.New("writer: status_slot set without status endpoint")
	}

	sp := &StatusPlan{
		Endpoint:   statusEndpoint,
		BaseSlot:   *u.Source.StatusSlot,
		DeviceName: u.Source.DeviceName,
	}

	seen := make(map[uint8]struct{})
	for _, t := range u.Targets {
		if t.StatusUnitID == nil {
			continue
		}
		id := *t.StatusUnitID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sp.UnitIDs = append(sp.UnitIDs, id)
	}

	plan.Status = sp
	return plan, nil
}

// BuildEndpointClients creates one TCP client per unique endpoint,
// including the status endpoint when the unit opted into status.
func BuildEndpointClients(u cfg.UnitConfig, statusEndpoint string) (Clients, func() error, error) {
	timeouts := endpointTimeouts(u, statusEndpoint)

	clients := make(Clients)
	var closers []func() error

	for endpoint, timeout := range timeouts {
		c, err := wmodbus.NewEndpointClient(wmodbus.Config{
			Endpoint: endpoint,
			Timeout:  timeout,
		})
		if err != nil {
			for _, fn := range closers {
				_ = fn()
			}
			return nil, nil, err
		}
		clients[endpoint] = c
		closers = append(closers, c.Close)
	}

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	return clients, closeAll, nil
}

// endpointTimeouts maps each endpoint of u to its client timeout.
// Targets sharing an endpoint share one connection, which takes the longest
// of their timeouts. A status endpoint with no target on it gets the default.
func endpointTimeouts(u cfg.UnitConfig, statusEndpoint string) map[string]time.Duration {
	out := make(map[string]time.Duration)

	for _, t := range u.Targets {
		ms := t.TimeoutMs
		if ms <= 0 {
			ms = cfg.DefaultTargetTimeout
		}
		d := time.Duration(ms) * time.Millisecond
		if d > out[t.Endpoint] {
			out[t.Endpoint] = d
		}
	}

	if u.Source.StatusSlot != nil && statusEndpoint != "" {
		if _, ok := out[statusEndpoint]; !ok {
			out[statusEndpoint] = time.Duration(cfg.DefaultTargetTimeout) * time.Millisecond
		}
	}

	return out
}
