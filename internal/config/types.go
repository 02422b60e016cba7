package config

import (
	"fmt"
	"strings"
)

// EnvPath overrides the default config location when --config is not given.
const EnvPath = "SVCWATCH_CONFIG"

const DefaultPath = "./svcwatch.yaml"

type Config struct {
	HTTP     HTTPConfig     `json:"http"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Gateway  GatewayConfig  `json:"gateway"`
	Snapshot SnapshotConfig `json:"snapshot"`
	Debug    DebugConfig    `json:"debug"`
}

// HTTPConfig controls the JSON API listener.
//
// All durations are Go duration strings (e.g. "5s", "1m").
type HTTPConfig struct {
	Addr         string   `json:"addr"`
	ReadTimeout  string   `json:"read_timeout,omitempty"`
	WriteTimeout string   `json:"write_timeout,omitempty"`
	CORSOrigins  []string `json:"cors_origins,omitempty"`

	// ActionRatePerSec limits lifecycle actions across all clients.
	// 0 disables the limiter.
	ActionRatePerSec float64 `json:"action_rate_per_sec"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the sqlite database holding the registry and settings.
//
// Example:
//
//	storage: { path: "./services.db", busy_timeout: "5s" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// GatewayConfig selects how the host service manager is reached.
//
// Backend values:
//   - "exec" (default): systemctl, ps and journalctl subprocesses
//   - "dbus": the systemd D-Bus API (linux only); ps/journalctl still exec
//
// Sudo is a pointer so an omitted value defaults to true.
type GatewayConfig struct {
	Backend        string `json:"backend"`
	Timeout        string `json:"timeout,omitempty"`
	Sudo           *bool  `json:"sudo,omitempty"`
	LogLines       int    `json:"log_lines,omitempty"`
	ResourceSource string `json:"resource_source,omitempty"`
}

func (g GatewayConfig) UseSudo() bool { return g.Sudo == nil || *g.Sudo }

// SnapshotConfig controls the optional registry bookkeeping job.
// An empty schedule disables it.
type SnapshotConfig struct {
	Schedule string `json:"schedule"`
	Timezone string `json:"timezone,omitempty"`
}

// DebugConfig enables the pprof listener. A non-loopback addr needs a token.
type DebugConfig struct {
	PprofEnabled bool   `json:"pprof_enabled"`
	PprofAddr    string `json:"pprof_addr,omitempty"`
	PprofToken   string `json:"pprof_token,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{Logging: LoggingConfig{Console: true}}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = "127.0.0.1:5000"
	}
	if cfg.HTTP.CORSOrigins == nil {
		cfg.HTTP.CORSOrigins = []string{"*"}
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		cfg.Storage.Path = "./services.db"
	}
	if strings.TrimSpace(cfg.Gateway.Backend) == "" {
		cfg.Gateway.Backend = "exec"
	}
	if cfg.Gateway.LogLines <= 0 {
		cfg.Gateway.LogLines = 100
	}
	if strings.TrimSpace(cfg.Gateway.ResourceSource) == "" {
		cfg.Gateway.ResourceSource = "manager_counters"
	}
}

// Validate checks enumerations and duration strings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	durations := []struct{ path, raw string }{
		{"http.read_timeout", cfg.HTTP.ReadTimeout},
		{"http.write_timeout", cfg.HTTP.WriteTimeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
		{"gateway.timeout", cfg.Gateway.Timeout},
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Gateway.Backend)) {
	case "exec", "dbus":
	default:
		return fmt.Errorf("gateway.backend: unknown backend %q", cfg.Gateway.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Gateway.ResourceSource)) {
	case "manager_counters", "process_table":
	default:
		return fmt.Errorf("gateway.resource_source: unknown source %q", cfg.Gateway.ResourceSource)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level)
	}
	if cfg.Logging.File.Enabled && strings.TrimSpace(cfg.Logging.File.Path) == "" {
		return fmt.Errorf("logging.file.path: required when file logging is enabled")
	}
	if cfg.Debug.PprofEnabled && strings.TrimSpace(cfg.Debug.PprofToken) == "" && strings.TrimSpace(cfg.Debug.PprofAddr) != "" {
		host := cfg.Debug.PprofAddr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		host = strings.Trim(host, "[]")
		if host != "127.0.0.1" && host != "localhost" && host != "::1" {
			return fmt.Errorf("debug.pprof_addr: non-loopback addr requires debug.pprof_token")
		}
	}
	if cfg.HTTP.ActionRatePerSec < 0 {
		return fmt.Errorf("http.action_rate_per_sec: must be >= 0")
	}
	return nil
}
