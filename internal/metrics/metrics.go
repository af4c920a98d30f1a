// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/sps30-replicator/internal/poller"
)

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the metrics HTTP handler for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Poll outcomes for PollsTotal.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultStale = "stale"
)

// SensorMetrics are the per-unit sensor metrics.
type SensorMetrics struct {
	MassConcentration   *prometheus.GaugeVec   // labels: unit, size
	NumberConcentration *prometheus.GaugeVec   // labels: unit, size
	TypicalParticleSize *prometheus.GaugeVec   // labels: unit
	StatusFlag          *prometheus.GaugeVec   // labels: unit, flag
	Health              *prometheus.GaugeVec   // labels: unit
	PollsTotal          *prometheus.CounterVec // labels: unit, result=ok|error|stale
}

// NewSensorMetrics registers and returns the sensor metrics.
func NewSensorMetrics(reg prometheus.Registerer) *SensorMetrics {
	m := &SensorMetrics{
		MassConcentration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sps30_mass_concentration_ug_m3",
			Help: "Particulate matter mass concentration in µg/m³.",
		}, []string{"unit", "size"}),
		NumberConcentration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sps30_number_concentration_per_cm3",
			Help: "Particulate matter number concentration in #/cm³.",
		}, []string{"unit", "size"}),
		TypicalParticleSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sps30_typical_particle_size_um",
			Help: "Typical particle size in µm.",
		}, []string{"unit"}),
		StatusFlag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sps30_status_flag",
			Help: "Sensor status register flags (1 = raised).",
		}, []string{"unit", "flag"}),
		Health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sps30_health",
			Help: "Unit health code (0 unknown, 1 ok, 2 error, 3 stale, 4 disabled).",
		}, []string{"unit"}),
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sps30_polls_total",
			Help: "Poll cycles by outcome.",
		}, []string{"unit", "result"}),
	}
	reg.MustRegister(m.MassConcentration, m.NumberConcentration, m.TypicalParticleSize, m.StatusFlag, m.Health, m.PollsTotal)
	return m
}

// Observe records one poll result. Gauges only move on fresh readings.
func (m *SensorMetrics) Observe(res poller.PollResult) {
	switch {
	case res.Err != nil:
		m.PollsTotal.WithLabelValues(res.UnitID, ResultError).Inc()
		return
	case res.Stale:
		m.PollsTotal.WithLabelValues(res.UnitID, ResultStale).Inc()
		return
	}
	m.PollsTotal.WithLabelValues(res.UnitID, ResultOK).Inc()

	u := res.UnitID
	v := res.Measurement

	m.MassConcentration.WithLabelValues(u, "pm1.0").Set(float64(v.MassPM1))
	m.MassConcentration.WithLabelValues(u, "pm2.5").Set(float64(v.MassPM25))
	m.MassConcentration.WithLabelValues(u, "pm4.0").Set(float64(v.MassPM4))
	m.MassConcentration.WithLabelValues(u, "pm10").Set(float64(v.MassPM10))

	m.NumberConcentration.WithLabelValues(u, "pm0.5").Set(float64(v.NumberPM05))
	m.NumberConcentration.WithLabelValues(u, "pm1.0").Set(float64(v.NumberPM1))
	m.NumberConcentration.WithLabelValues(u, "pm2.5").Set(float64(v.NumberPM25))
	m.NumberConcentration.WithLabelValues(u, "pm4.0").Set(float64(v.NumberPM4))
	m.NumberConcentration.WithLabelValues(u, "pm10").Set(float64(v.NumberPM10))

	m.TypicalParticleSize.WithLabelValues(u).Set(float64(v.TypicalSize))

	m.StatusFlag.WithLabelValues(u, "speed").Set(b2f(res.Status.Speed))
	m.StatusFlag.WithLabelValues(u, "laser").Set(b2f(res.Status.Laser))
	m.StatusFlag.WithLabelValues(u, "fan").Set(b2f(res.Status.Fan))
}

// SetHealth records the unit's current health code.
func (m *SensorMetrics) SetHealth(unit string, health uint16) {
	m.Health.WithLabelValues(unit).Set(float64(health))
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
