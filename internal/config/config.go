// internal/config/config.go
package config

type Config struct {
	Replicator ReplicatorConfig `yaml:"replicator"`
}

type ReplicatorConfig struct {
	Logging      LoggingConfig      `yaml:"logging"`
	HTTP         *HTTPConfig        `yaml:"http"`
	StatusMemory StatusMemoryConfig `yaml:"status_memory"`
	MQTT         *MQTTConfig        `yaml:"mqtt"`
	Redis        *RedisConfig       `yaml:"redis"`
	Units        []UnitConfig       `yaml:"units"`
}

// ---- AMBIENT ----

type LoggingConfig struct {
	Level  string        `yaml:"level"`  // debug|info|warn|error
	Format string        `yaml:"format"` // console|json
	File   LogFileConfig `yaml:"file"`
}

// LogFileConfig enables a rotating log file when Filename is set.
type LogFileConfig struct {
	Filename   string `yaml:"filename"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type HTTPConfig struct {
	Listen      string `yaml:"listen"`
	MetricsPath string `yaml:"metrics_path"`
}

type StatusMemoryConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// ---- SINKS ----

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	TTLMs     int    `yaml:"ttl_ms"` // 0 = no expiry
}

// ---- UNIT ----

type UnitConfig struct {
	ID      string         `yaml:"id"`
	Source  SourceConfig   `yaml:"source"`
	Targets []TargetConfig `yaml:"targets"`
	Poll    PollConfig     `yaml:"poll"`
}

// ---- SOURCE ----

type SourceConfig struct {
	Bus     string `yaml:"bus"`     // "/dev/i2c-1", "1"
	Address uint8  `yaml:"address"` // 0 => sps30.DefaultAddress

	// Written once at startup when set.
	AutoCleaningIntervalS *uint32 `yaml:"auto_cleaning_interval_s"`
	CleanOnStart          bool    `yaml:"clean_on_start"`

	// Device status block (optional, opt-in)
	StatusSlot *uint16 `yaml:"status_slot"`
	DeviceName string  `yaml:"device_name"`
}

// ---- TARGET ----

type TargetConfig struct {
	ID           uint32 `yaml:"id"`
	Endpoint     string `yaml:"endpoint"`
	UnitID       uint8  `yaml:"unit_id"`        // data memory
	Address      uint16 `yaml:"address"`        // first holding register of the measurement block
	StatusUnitID *uint8 `yaml:"status_unit_id"` // per-target status memory (optional)
	TimeoutMs    int    `yaml:"timeout_ms"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}
