package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"svcwatch/internal/storage"
	"svcwatch/internal/units"
	logx "svcwatch/pkg/logx"
)

type fakeSource map[string]units.ActiveState

func (f fakeSource) Status(ctx context.Context, name string) units.ServiceStatus {
	st, ok := f[name]
	if !ok {
		st = units.StateFailed
	}
	return units.ServiceStatus{Name: name, ActiveState: st}
}

func openStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "services.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestNewRequiresValidSchedule(t *testing.T) {
	if _, err := New(Config{}, nil, nil, logx.Nop()); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
	if _, err := New(Config{Schedule: "every tuesday"}, nil, nil, logx.Nop()); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := New(Config{Schedule: "@every 1m", Timezone: "Mars/Olympus"}, nil, nil, logx.Nop()); err == nil {
		t.Fatal("expected timezone error")
	}
	for _, spec := range []string{"*/5 * * * *", "30 */5 * * * *", "@hourly"} {
		if _, err := New(Config{Schedule: spec}, nil, nil, logx.Nop()); err != nil {
			t.Fatalf("%q: %v", spec, err)
		}
	}
}

func TestRunOnceRecordsStatus(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	for _, n := range []string{"nginx.service", "mariadb.service"} {
		if _, err := st.AddMonitored(ctx, n, true); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	job, err := New(Config{Schedule: "@every 1m"}, st, fakeSource{"nginx.service": units.StateActive}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return at }

	res, err := job.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res != (Result{Checked: 2, Down: 1}) || job.Last() != res {
		t.Fatalf("result = %+v", res)
	}

	rows, _ := st.ListMonitored(ctx)
	for _, r := range rows {
		switch r.ServiceName {
		case "nginx.service":
			if r.LastStatus != "ACTIVE" || r.DownSince != nil {
				t.Fatalf("nginx = %+v", r)
			}
		case "mariadb.service":
			if r.LastStatus != "FAILED" || r.DownSince == nil || !r.DownSince.Equal(at) {
				t.Fatalf("mariadb = %+v", r)
			}
		}
		if r.LastCheckedAt == nil || !r.LastCheckedAt.Equal(at) {
			t.Fatalf("%s last_checked_at = %v", r.ServiceName, r.LastCheckedAt)
		}
	}
}

func TestRunStopsWithContext(t *testing.T) {
	job, err := New(Config{Schedule: "@every 1h"}, openStore(t), fakeSource{}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- job.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
