package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestParseMissingFileUsesDefaults(t *testing.T) {
	m := NewConfigManager(filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:5000" || cfg.Storage.Path != "./services.db" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Gateway.Backend != "exec" || !cfg.Gateway.UseSudo() || cfg.Gateway.LogLines != 100 {
		t.Fatalf("gateway defaults = %+v", cfg.Gateway)
	}
	if !cfg.Logging.Console || cfg.Logging.Level != "info" {
		t.Fatalf("logging defaults = %+v", cfg.Logging)
	}
}

func TestParseYAML(t *testing.T) {
	path := writeFile(t, "svcwatch.yaml", `
http:
  addr: ":8080"
  cors_origins: ["https://ops.example.com"]
  action_rate_per_sec: 0.5
logging:
  level: debug
  console: false
gateway:
  backend: dbus
  sudo: false
  timeout: 3s
  resource_source: process_table
snapshot:
  schedule: "@every 1m"
`)
	cfg, err := NewConfigManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.HTTP.ActionRatePerSec != 0.5 || cfg.HTTP.CORSOrigins[0] != "https://ops.example.com" {
		t.Fatalf("http = %+v", cfg.HTTP)
	}
	if cfg.Logging.Console || cfg.Logging.Level != "debug" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Gateway.Backend != "dbus" || cfg.Gateway.UseSudo() || cfg.Gateway.ResourceSource != "process_table" {
		t.Fatalf("gateway = %+v", cfg.Gateway)
	}
	d, err := ParseDurationOrDefault("gateway.timeout", cfg.Gateway.Timeout, 10*time.Second)
	if err != nil || d != 3*time.Second {
		t.Fatalf("timeout = %v, %v", d, err)
	}
	if cfg.Snapshot.Schedule != "@every 1m" {
		t.Fatalf("snapshot = %+v", cfg.Snapshot)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name, file, body, want string
	}{
		{"unknown field", "c.yaml", "http:\n  adress: x\n", "unknown field"},
		{"bad backend", "c.yaml", "gateway:\n  backend: rpc\n", "gateway.backend"},
		{"bad source", "c.yaml", "gateway:\n  resource_source: magic\n", "gateway.resource_source"},
		{"bad duration", "c.yaml", "gateway:\n  timeout: soon\n", "gateway.timeout"},
		{"negative rate", "c.yaml", "http:\n  action_rate_per_sec: -1\n", "action_rate_per_sec"},
		{"public pprof", "c.yaml", "debug:\n  pprof_enabled: true\n  pprof_addr: 0.0.0.0:6060\n", "debug.pprof_addr"},
		{"trailing json", "c.json", `{"http":{}} {"http":{}}`, "trailing"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewConfigManager(writeFile(t, tc.file, tc.body)).Parse()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvPath, "/etc/svcwatch/env.yaml")
	if got := ResolvePath(" /tmp/flag.yaml "); got != "/tmp/flag.yaml" {
		t.Fatalf("flag path = %q", got)
	}
	if got := ResolvePath(""); got != "/etc/svcwatch/env.yaml" {
		t.Fatalf("env path = %q", got)
	}
	t.Setenv(EnvPath, "")
	if got := ResolvePath(""); got != DefaultPath {
		t.Fatalf("default path = %q", got)
	}
}

func TestReloadPublishesChangedConfig(t *testing.T) {
	path := writeFile(t, "svcwatch.yaml", "logging:\n  level: info\n")
	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	m.reload()
	select {
	case <-ch:
		t.Fatal("unchanged config was published")
	default:
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m.reload()
	select {
	case cfg := <-ch:
		if cfg.Logging.Level != "debug" {
			t.Fatalf("level = %q", cfg.Logging.Level)
		}
	default:
		t.Fatal("changed config was not published")
	}
	if m.Get().Logging.Level != "debug" {
		t.Fatalf("Get level = %q", m.Get().Logging.Level)
	}

	// An invalid file keeps the previous config.
	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m.reload()
	if m.Get().Logging.Level != "debug" {
		t.Fatalf("invalid reload replaced config: %q", m.Get().Logging.Level)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	a, b := Default(), Default()
	b.Logging.Level = "debug"
	changed, attrs := SummarizeConfigChange(a, b)
	if len(changed) != 1 || changed[0] != "logging" || len(attrs) != 3 {
		t.Fatalf("changed = %v attrs = %d", changed, len(attrs))
	}

	b.HTTP.Addr = ":9000"
	changed, attrs = SummarizeConfigChange(a, b)
	if strings.Join(changed, ",") != "http,logging" || len(attrs) != 5 {
		t.Fatalf("changed = %v attrs = %d", changed, len(attrs))
	}
}
