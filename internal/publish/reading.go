// internal/publish/reading.go
package publish

import (
	"strconv"
	"time"

	"github.com/tamzrod/sps30-replicator/internal/poller"
	"github.com/tamzrod/sps30-replicator/internal/status"
)

// Reading is the external JSON view of one fresh measurement.
// MQTT, Redis and the HTTP API all publish this shape.
type Reading struct {
	Unit string    `json:"unit"`
	At   time.Time `json:"at"`

	MassPM1  float32 `json:"mass_pm1_0"`
	MassPM25 float32 `json:"mass_pm2_5"`
	MassPM4  float32 `json:"mass_pm4_0"`
	MassPM10 float32 `json:"mass_pm10"`

	NumberPM05 float32 `json:"number_pm0_5"`
	NumberPM1  float32 `json:"number_pm1_0"`
	NumberPM25 float32 `json:"number_pm2_5"`
	NumberPM4  float32 `json:"number_pm4_0"`
	NumberPM10 float32 `json:"number_pm10"`

	TypicalSize float32 `json:"typical_size"`

	Status SensorFlags `json:"status"`
}

// SensorFlags is the decoded sensor status register.
type SensorFlags struct {
	Speed bool `json:"speed"`
	Laser bool `json:"laser"`
	Fan   bool `json:"fan"`
}

// Health is the external JSON view of a unit's status snapshot.
type Health struct {
	Unit           string `json:"unit"`
	Health         string `json:"health"`
	HealthCode     uint16 `json:"health_code"`
	LastErrorCode  uint16 `json:"last_error_code"`
	SecondsInError uint16 `json:"seconds_in_error"`
	Firmware       string `json:"firmware,omitempty"`
}

// NewReading builds the view of a fresh poll result.
func NewReading(res poller.PollResult) Reading {
	m := res.Measurement
	return Reading{
		Unit:        res.UnitID,
		At:          res.At.UTC(),
		MassPM1:     m.MassPM1,
		MassPM25:    m.MassPM25,
		MassPM4:     m.MassPM4,
		MassPM10:    m.MassPM10,
		NumberPM05:  m.NumberPM05,
		NumberPM1:   m.NumberPM1,
		NumberPM25:  m.NumberPM25,
		NumberPM4:   m.NumberPM4,
		NumberPM10:  m.NumberPM10,
		TypicalSize: m.TypicalSize,
		Status: SensorFlags{
			Speed: res.Status.Speed,
			Laser: res.Status.Laser,
			Fan:   res.Status.Fan,
		},
	}
}

// NewHealth builds the view of a status snapshot.
func NewHealth(unit string, s status.Snapshot) Health {
	h := Health{
		Unit:           unit,
		Health:         status.HealthName(s.Health),
		HealthCode:     s.Health,
		LastErrorCode:  s.LastErrorCode,
		SecondsInError: s.SecondsInError,
	}
	if s.Firmware != 0 {
		h.Firmware = strconv.Itoa(int(s.Firmware>>8)) + "." + strconv.Itoa(int(s.Firmware&0xFF))
	}
	return h
}

// Fields flattens the reading into string key/value pairs.
func (r Reading) Fields() map[string]string {
	f := func(v float32) string { return strconv.FormatFloat(float64(v), 'f', -1, 32) }
	b := strconv.FormatBool

	return map[string]string{
		"at":           r.At.Format(time.RFC3339Nano),
		"mass_pm1_0":   f(r.MassPM1),
		"mass_pm2_5":   f(r.MassPM25),
		"mass_pm4_0":   f(r.MassPM4),
		"mass_pm10":    f(r.MassPM10),
		"number_pm0_5": f(r.NumberPM05),
		"number_pm1_0": f(r.NumberPM1),
		"number_pm2_5": f(r.NumberPM25),
		"number_pm4_0": f(r.NumberPM4),
		"number_pm10":  f(r.NumberPM10),
		"typical_size": f(r.TypicalSize),
		"status_speed": b(r.Status.Speed),
		"status_laser": b(r.Status.Laser),
		"status_fan":   b(r.Status.Fan),
	}
}
