// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"

	"github.com/tamzrod/sps30-replicator/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	type span struct {
		start uint32
		end   uint32
		unit  string
	}

	r := cfg.Replicator

	if len(r.Units) == 0 {
		return fmt.Errorf("at least one unit is required")
	}

	// ------------------------------------------------------------
	// AMBIENT SECTIONS
	// ------------------------------------------------------------

	switch r.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug|info|warn|error", r.Logging.Level)
	}
	switch r.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of console|json", r.Logging.Format)
	}

	if r.HTTP != nil && r.HTTP.Listen == "" {
		return fmt.Errorf("http.listen is required when http is set")
	}

	if r.MQTT != nil {
		u, err := url.Parse(r.MQTT.Broker)
		if err != nil || u.Host == "" {
			return fmt.Errorf("mqtt.broker %q is not a broker URL", r.MQTT.Broker)
		}
		switch u.Scheme {
		case "tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts":
		default:
			return fmt.Errorf("mqtt.broker scheme %q is not supported", u.Scheme)
		}
		if r.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	if r.Redis != nil {
		if r.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when redis is set")
		}
		if r.Redis.TTLMs < 0 {
			return fmt.Errorf("redis.ttl_ms must be >= 0")
		}
	}

	// ------------------------------------------------------------
	// UNIT IDENTITY AND SOURCE
	// ------------------------------------------------------------

	ids := make(map[string]struct{})
	buses := make(map[string]string)

	for _, u := range r.Units {
		if u.ID == "" {
			return fmt.Errorf("unit id is required")
		}
		if _, dup := ids[u.ID]; dup {
			return fmt.Errorf("unit %q: duplicate unit id", u.ID)
		}
		ids[u.ID] = struct{}{}

		if u.Source.Bus == "" {
			return fmt.Errorf("unit %q: source.bus is required", u.ID)
		}
		if u.Source.Address > 0x7F {
			return fmt.Errorf("unit %q: source.address 0x%02X is not a 7-bit address", u.ID, u.Source.Address)
		}

		// one sensor per bus: the address is fixed
		if prev, used := buses[u.Source.Bus]; used {
			return fmt.Errorf("unit %q: bus %s already used by unit %q", u.ID, u.Source.Bus, prev)
		}
		buses[u.Source.Bus] = u.ID

		if u.Poll.IntervalMs <= 0 {
			return fmt.Errorf("unit %q: poll.interval_ms must be > 0", u.ID)
		}

		for _, t := range u.Targets {
			if t.Endpoint == "" {
				return fmt.Errorf("unit %q: target %d has no endpoint", u.ID, t.ID)
			}
			if t.TimeoutMs < 0 {
				return fmt.Errorf("unit %q: target %d timeout_ms must be >= 0", u.ID, t.ID)
			}
		}
	}

	// ------------------------------------------------------------
	// DEVICE STATUS BLOCK VALIDATION (PER-TARGET, OPT-IN)
	// ------------------------------------------------------------

	// key = endpoint | status_unit_id | status_slot
	statusOwner := make(map[string]string)

	for _, u := range r.Units {
		// device_name sanity (ASCII only)
		if u.Source.DeviceName != "" {
			for i := 0; i < len(u.Source.DeviceName); i++ {
				if u.Source.DeviceName[i] > 0x7F {
					return fmt.Errorf(
						"unit %q: device_name must contain ASCII characters only",
						u.ID,
					)
				}
			}
		}

		// status is opt-in
		if u.Source.StatusSlot == nil {
			continue
		}

		if r.StatusMemory.Endpoint == "" {
			return fmt.Errorf(
				"unit %q: status_slot is set but status_memory.endpoint is empty",
				u.ID,
			)
		}

		// status requires at least one target
		if len(u.Targets) == 0 {
			return fmt.Errorf(
				"unit %q: status_slot is set but no targets are defined",
				u.ID,
			)
		}

		slot := *u.Source.StatusSlot

		if (uint32(slot)+1)*status.SlotsPerDevice > 0x10000 {
			return fmt.Errorf("unit %q: status_slot %d exceeds register space", u.ID, slot)
		}

		// targets sharing a status_unit_id share one status block
		ids := make(map[uint8]struct{})
		for _, t := range u.Targets {
			// each target must declare status_unit_id
			if t.StatusUnitID == nil {
				return fmt.Errorf(
					"unit %q: status_slot is set but target %q has no status_unit_id",
					u.ID,
					t.Endpoint,
				)
			}
			ids[*t.StatusUnitID] = struct{}{}
		}

		for _, t := range u.Targets {
			id := *t.StatusUnitID
			if _, pending := ids[id]; !pending {
				continue
			}
			delete(ids, id)

			key := fmt.Sprintf(
				"%s|%d|%d",
				r.StatusMemory.Endpoint,
				id,
				slot,
			)

			if prev, exists := statusOwner[key]; exists {
				return fmt.Errorf(
					"status_slot collision: endpoint=%s status_unit_id=%d slot=%d used by units %q and %q",
					r.StatusMemory.Endpoint,
					id,
					slot,
					prev,
					u.ID,
				)
			}

			statusOwner[key] = u.ID
		}
	}

	// ------------------------------------------------------------
	// DESTINATION MEMORY GEOMETRY VALIDATION
	// ------------------------------------------------------------

	// key = endpoint | unit_id
	spans := make(map[string][]span)

	for _, u := range r.Units {
		for _, t := range u.Targets {
			start := uint32(t.Address)
			end := start + status.MeasurementBlockRegs - 1

			if end > 0xFFFF {
				return fmt.Errorf(
					"unit %q: target %s address %d leaves no room for %d registers",
					u.ID, t.Endpoint, t.Address, status.MeasurementBlockRegs,
				)
			}

			key := fmt.Sprintf("%s|%d", t.Endpoint, t.UnitID)

			for _, s := range spans[key] {
				// overlap check (inclusive)
				if !(end < s.start || start > s.end) {
					return fmt.Errorf(
						"memory overlap: endpoint=%s unit_id=%d range=%d-%d overlaps with unit=%s range=%d-%d",
						t.Endpoint,
						t.UnitID,
						start,
						end,
						s.unit,
						s.start,
						s.end,
					)
				}
			}

			spans[key] = append(spans[key], span{
				start: start,
				end:   end,
				unit:  u.ID,
			})
		}
	}

	return nil
}
