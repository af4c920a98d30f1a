// internal/config/normalize.go
package config

import (
	"github.com/tamzrod/sps30-replicator/internal/sps30"
	"github.com/tamzrod/sps30-replicator/internal/status"
)

// Defaults applied by Normalize.
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultMetricsPath   = "/metrics"
	DefaultTopicPrefix   = "sps30"
	DefaultKeyPrefix     = "sps30"
	DefaultTargetTimeout = 2000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	r := &cfg.Replicator

	if r.Logging.Level == "" {
		r.Logging.Level = DefaultLogLevel
	}
	if r.Logging.Format == "" {
		r.Logging.Format = DefaultLogFormat
	}
	if r.HTTP != nil && r.HTTP.MetricsPath == "" {
		r.HTTP.MetricsPath = DefaultMetricsPath
	}
	if r.MQTT != nil && r.MQTT.TopicPrefix == "" {
		r.MQTT.TopicPrefix = DefaultTopicPrefix
	}
	if r.Redis != nil && r.Redis.KeyPrefix == "" {
		r.Redis.KeyPrefix = DefaultKeyPrefix
	}

	for ui := range r.Units {
		u := &r.Units[ui]

		if u.Source.Address == 0 {
			u.Source.Address = sps30.DefaultAddress
		}

		for ti := range u.Targets {
			if u.Targets[ti].TimeoutMs == 0 {
				u.Targets[ti].TimeoutMs = DefaultTargetTimeout
			}
		}

		// ------------------------------------------------------------
		// DEVICE STATUS BLOCK NORMALIZATION (OPT-IN)
		// ------------------------------------------------------------

		// Skip units that did not opt in
		if u.Source.StatusSlot == nil {
			continue
		}

		// Normalize device_name:
		// - ASCII already validated
		// - Truncate to max 16 characters
		if len(u.Source.DeviceName) > status.DeviceNameMaxChars {
			u.Source.DeviceName = u.Source.DeviceName[:status.DeviceNameMaxChars]
		}
	}
}
