package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "svcwatch/pkg/logx"
)

// Store is the persistence API used by the api, cli and snapshot packages.
type Store interface {
	// ListMonitored returns the registry ordered by service name.
	ListMonitored(ctx context.Context) ([]MonitoredService, error)
	// ListMonitoredAll returns the registry in insertion order.
	ListMonitoredAll(ctx context.Context) ([]MonitoredService, error)
	// GetMonitored returns ErrNotFound for an unknown id.
	GetMonitored(ctx context.Context, id int64) (MonitoredService, error)
	// AddMonitoredIfAbsent inserts name unless it is already registered.
	AddMonitoredIfAbsent(ctx context.Context, name string, notifyOnFail bool) (created bool, err error)
	// AddMonitored inserts name and returns ErrConflict if it is already registered.
	AddMonitored(ctx context.Context, name string, notifyOnFail bool) (int64, error)
	// RemoveMonitored deletes by id; unknown ids are not an error.
	RemoveMonitored(ctx context.Context, id int64) error
	// RecordCheck stores the latest observed state for name.
	RecordCheck(ctx context.Context, name, status string, at time.Time) error

	// GetSettings reports ok=false when the singleton row is missing.
	GetSettings(ctx context.Context) (MonitorSettings, bool, error)
	UpsertSettings(ctx context.Context, u SettingsUpdate) error

	Ping(ctx context.Context) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "none":
		return nil, ErrDisabled
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
