package config

import "time"

type AgentConfig struct {
	// Home is the installation directory. Empty means "derive from the
	// executable path".
	Home string `config:"home"`
	// ConfFile is the module list. Empty means <home>/config/edgeagent.conf.
	ConfFile string `config:"confFile"`
	// Plugins enables loading components from <home>/modules/lib<name>.so.
	Plugins bool `config:"plugins"`
}

type LogConfig struct {
	Level  string `config:"level" validate:"loglevel"`
	Format string `config:"format" validate:"oneof=text json"`
}

type MetricsConfig struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path" validate:"required,startswith=/"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `config:"metrics"`
}

type ActuatorConfig struct {
	BasePath string `config:"basePath" validate:"required,startswith=/"`
}

type TLSConfig struct {
	Enabled  bool   `config:"enabled"`
	CertFile string `config:"certFile" validate:"required_if=Enabled true"`
	KeyFile  string `config:"keyFile" validate:"required_if=Enabled true"`
}

type ServerConfig struct {
	Addr         string        `config:"addr" validate:"required"`
	ReadTimeout  time.Duration `config:"readTimeout"`
	WriteTimeout time.Duration `config:"writeTimeout"`
	IdleTimeout  time.Duration `config:"idleTimeout"`
	TLS          TLSConfig     `config:"tls"`
}

// AlarmConfig configures alarm_process.
type AlarmConfig struct {
	// ActiveFile receives the active alarm set after every report. Empty
	// disables the file.
	ActiveFile string `config:"activeFile"`
	// ShieldFile lists faults to hide. It is watched for changes. Empty
	// disables shielding.
	ShieldFile string `config:"shieldFile"`
}

// DebounceConfig smooths probe results over the last Window samples. A
// fault is raised at Raise faulty samples and cleared at Clear or fewer.
type DebounceConfig struct {
	Window int `config:"window" validate:"gte=0,lte=32"`
	Raise  int `config:"raise" validate:"gte=0,lte=32"`
	Clear  int `config:"clear" validate:"gte=0,lte=32"`
}

// FaultCheckConfig configures fault_check.
type FaultCheckConfig struct {
	MountPoints []string       `config:"mountPoints"`
	SDDevice    string         `config:"sdDevice"`
	Interval    time.Duration  `config:"interval" validate:"gt=0"`
	Debounce    DebounceConfig `config:"debounce"`
}

// ExtendAlarmConfig configures extend_alarm.
type ExtendAlarmConfig struct {
	HardwareFile string         `config:"hardwareFile" validate:"required"`
	DevDir       string         `config:"devDir" validate:"required"`
	Interval     time.Duration  `config:"interval" validate:"gt=0"`
	Debounce     DebounceConfig `config:"debounce"`
}

// FeaturesConfig holds the settings of the built-in feature modules.
type FeaturesConfig struct {
	Alarm       AlarmConfig       `config:"alarm"`
	FaultCheck  FaultCheckConfig  `config:"faultCheck"`
	ExtendAlarm ExtendAlarmConfig `config:"extendAlarm"`
}

// Root is the agent's settings.
type Root struct {
	Agent         AgentConfig         `config:"agent"`
	Log           LogConfig           `config:"log"`
	Server        ServerConfig        `config:"server"`
	Observability ObservabilityConfig `config:"observability"`
	Actuator      ActuatorConfig      `config:"actuator"`
	Features      FeaturesConfig      `config:"features"`
}

// Defaults returns the built-in settings layer, lowest precedence.
func Defaults() map[string]any {
	return map[string]any{
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"server": map[string]any{
			"addr":         "127.0.0.1:8086",
			"readTimeout":  "10s",
			"writeTimeout": "10s",
			"idleTimeout":  "60s",
		},
		"observability": map[string]any{
			"metrics": map[string]any{
				"enabled": true,
				"path":    "/metrics",
			},
		},
		"actuator": map[string]any{
			"basePath": "/actuator",
		},
		"features": map[string]any{
			"alarm": map[string]any{
				"activeFile": "/run/all_active_alarm",
			},
			"faultCheck": map[string]any{
				"sdDevice": "/dev/mmcblk1",
				"interval": "1s",
				"debounce": map[string]any{"window": 3, "raise": 2, "clear": 0},
			},
			"extendAlarm": map[string]any{
				"hardwareFile": "/run/formated_hw.info",
				"devDir":       "/dev",
				"interval":     "1s",
				"debounce":     map[string]any{"window": 3, "raise": 2, "clear": 0},
			},
		},
	}
}
