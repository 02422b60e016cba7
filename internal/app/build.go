package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"svcwatch/internal/api"
	"svcwatch/internal/config"
	"svcwatch/internal/snapshot"
	"svcwatch/internal/storage"
	"svcwatch/internal/units"
	logx "svcwatch/pkg/logx"
	"svcwatch/pkg/systemdmanager"
)

// Core is the set of components every entry point works with. One-shot CLI
// commands build a Core, use it and Close it; serve wraps it in an App.
type Core struct {
	Gateway   systemdmanager.Gateway
	Status    *units.Normalizer
	Resources *units.Correlator
	Actions   *units.Executor
	Catalog   *units.Catalog
	Store     storage.Store
}

// NewCore opens the store and connects the configured gateway backend.
func NewCore(ctx context.Context, cfg *config.Config, log logx.Logger) (*Core, error) {
	gw, err := newGateway(ctx, cfg.Gateway, log)
	if err != nil {
		return nil, err
	}
	sc, err := mapStorageConfig(cfg.Storage)
	if err != nil {
		_ = gw.Close()
		return nil, err
	}
	st, err := storage.Open(sc, log)
	if err != nil {
		_ = gw.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	corr := units.NewCorrelator(gw, log)
	norm := units.NewNormalizer(gw, corr, units.ParseResourceSource(cfg.Gateway.ResourceSource), log)
	return &Core{
		Gateway:   gw,
		Status:    norm,
		Resources: corr,
		Actions:   units.NewExecutor(gw, log),
		Catalog:   units.NewCatalog(gw, norm, cfg.Gateway.LogLines, log),
		Store:     st,
	}, nil
}

func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	var first error
	if c.Store != nil {
		first = c.Store.Close()
	}
	if c.Gateway != nil {
		if err := c.Gateway.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newGateway(ctx context.Context, gc config.GatewayConfig, log logx.Logger) (systemdmanager.Gateway, error) {
	timeout, err := config.ParseDurationOrDefault("gateway.timeout", gc.Timeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ec := systemdmanager.ExecConfig{Timeout: timeout, Sudo: gc.UseSudo()}

	switch strings.ToLower(strings.TrimSpace(gc.Backend)) {
	case "", "exec":
		return systemdmanager.NewSystemctl(ec, log), nil
	case "dbus":
		gw, err := systemdmanager.NewDBus(ctx, ec, log)
		if err != nil {
			return nil, fmt.Errorf("dbus gateway: %w", err)
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("unknown gateway.backend: %s", gc.Backend)
	}
}

func mapStorageConfig(sc config.StorageConfig) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.TrimSpace(sc.Driver),
		Path:        strings.TrimSpace(sc.Path),
		BusyTimeout: busy,
	}, nil
}

func mapLoggingConfig(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
	}
}

func mapAPIConfig(hc config.HTTPConfig) (api.Config, error) {
	read, err := config.ParseDurationOrDefault("http.read_timeout", hc.ReadTimeout, 5*time.Second)
	if err != nil {
		return api.Config{}, err
	}
	write, err := config.ParseDurationOrDefault("http.write_timeout", hc.WriteTimeout, 30*time.Second)
	if err != nil {
		return api.Config{}, err
	}
	return api.Config{
		Addr:             hc.Addr,
		ReadTimeout:      read,
		WriteTimeout:     write,
		CORSOrigins:      hc.CORSOrigins,
		ActionRatePerSec: hc.ActionRatePerSec,
	}, nil
}

func mapSnapshotConfig(sc config.SnapshotConfig) snapshot.Config {
	return snapshot.Config{Schedule: sc.Schedule, Timezone: sc.Timezone}
}
