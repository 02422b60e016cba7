package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"svcwatch/internal/config"
	"svcwatch/internal/runtime/supervisor"
	"svcwatch/internal/snapshot"
	logx "svcwatch/pkg/logx"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "svcwatch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestMapAPIConfigDefaults(t *testing.T) {
	c, err := mapAPIConfig(config.HTTPConfig{Addr: ":5000", ActionRatePerSec: 2})
	if err != nil {
		t.Fatalf("mapAPIConfig: %v", err)
	}
	if c.ReadTimeout != 5*time.Second || c.WriteTimeout != 30*time.Second || c.ActionRatePerSec != 2 {
		t.Fatalf("api config = %+v", c)
	}
	if _, err := mapAPIConfig(config.HTTPConfig{ReadTimeout: "-1s"}); err == nil {
		t.Fatal("expected error for negative timeout")
	}
}

func TestMapStorageConfig(t *testing.T) {
	sc, err := mapStorageConfig(config.StorageConfig{Path: " ./db.sqlite ", BusyTimeout: "2s"})
	if err != nil {
		t.Fatalf("mapStorageConfig: %v", err)
	}
	if sc.Path != "./db.sqlite" || sc.BusyTimeout != 2*time.Second {
		t.Fatalf("storage config = %+v", sc)
	}
}

func TestNewCoreRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Gateway.Backend = "rpc"
	if _, err := NewCore(context.Background(), cfg, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestAppStartStop(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
http:
  addr: "127.0.0.1:0"
logging:
  level: error
  console: false
storage:
  path: "`+filepath.Join(dir, "services.db")+`"
snapshot:
  schedule: "@every 1h"
`)
	a, err := NewApp(context.Background(), path)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if a.snap == nil {
		t.Fatal("snapshot job not built")
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		comps, _ := a.health()["components"].([]supervisor.ComponentStatus)
		if len(comps) >= 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, ok := a.health()["snapshot"].(snapshot.Result); !ok {
		t.Fatalf("health = %v, want a snapshot entry", a.health())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
