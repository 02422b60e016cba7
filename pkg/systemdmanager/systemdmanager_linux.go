//go:build linux

package systemdmanager

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"

	logx "svcwatch/pkg/logx"
)

// DBus is the Gateway backend that talks to systemd over D-Bus.
//
// Unit properties are rendered into the same KEY=VALUE text systemctl show
// prints. Process-table and journal queries have no D-Bus equivalent and go
// through the embedded exec backend.
type DBus struct {
	mu      sync.RWMutex
	conn    *dbus.Conn
	exec    *Systemctl
	timeout time.Duration
	log     logx.Logger
}

// NewDBus opens a system bus connection using ctx.
func NewDBus(ctx context.Context, cfg ExecConfig, log logx.Logger) (*DBus, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	ex := NewSystemctl(cfg, log)
	return &DBus{conn: conn, exec: ex, timeout: ex.timeout, log: ex.log}, nil
}

// Close closes the systemd connection.
func (d *DBus) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	return nil
}

func (d *DBus) snapshot() (*dbus.Conn, error) {
	d.mu.RLock()
	conn := d.conn
	d.mu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("systemd connection is closed")
	}
	return conn, nil
}

func (d *DBus) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d.timeout)
}

func (d *DBus) ListUnits(ctx context.Context) (string, error) {
	conn, err := d.snapshot()
	if err != nil {
		return "", &ExecError{Verb: "list-units", Err: err}
	}
	cctx, cancel := d.bounded(ctx)
	defer cancel()

	units, err := conn.ListUnitsContext(cctx)
	if err != nil {
		return "", &ExecError{Verb: "list-units", Err: err}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })

	var b strings.Builder
	for _, u := range units {
		if !strings.HasSuffix(u.Name, ".service") {
			continue
		}
		fmt.Fprintf(&b, "%s %s %s %s %s\n", u.Name, u.LoadState, u.ActiveState, u.SubState, u.Description)
	}
	return b.String(), nil
}

func (d *DBus) ShowProperties(ctx context.Context, unit string) (string, error) {
	unit = UnitName(unit)
	conn, err := d.snapshot()
	if err != nil {
		return "", &ExecError{Verb: "show", Unit: unit, Err: err}
	}
	cctx, cancel := d.bounded(ctx)
	defer cancel()

	props, err := conn.GetUnitPropertiesContext(cctx, unit)
	if err != nil {
		if isNoSuchUnitErr(err) {
			return "", &ExecError{Verb: "show", Unit: unit, Err: ErrUnitNotFound, Stderr: err.Error()}
		}
		return "", &ExecError{Verb: "show", Unit: unit, Err: err}
	}
	if ls, _ := props["LoadState"].(string); ls == "not-found" {
		return "", &ExecError{Verb: "show", Unit: unit, Err: ErrUnitNotFound, Stderr: "Unit " + unit + " could not be found."}
	}

	// NRestarts, MemoryCurrent and CPUUsageNSec live on the Service interface.
	if strings.HasSuffix(unit, ".service") {
		if sprops, err := conn.GetUnitTypePropertiesContext(cctx, unit, "Service"); err == nil {
			for k, v := range sprops {
				if _, dup := props[k]; !dup {
					props[k] = v
				}
			}
		}
	}
	return renderProperties(props), nil
}

func (d *DBus) ProcessTable(ctx context.Context, procName string) (string, error) {
	return d.exec.ProcessTable(ctx, procName)
}

func (d *DBus) JournalTail(ctx context.Context, unit string, n int) (string, error) {
	return d.exec.JournalTail(ctx, unit, n)
}

func (d *DBus) Execute(ctx context.Context, verb, unit string) (string, error) {
	unit = UnitName(unit)
	conn, err := d.snapshot()
	if err != nil {
		return "", &ExecError{Verb: verb, Unit: unit, Err: err}
	}
	cctx, cancel := d.bounded(ctx)
	defer cancel()

	start := time.Now()
	out, err := d.execute(cctx, conn, verb, unit)
	d.log.Debug("gateway call",
		logx.String("verb", verb),
		logx.String("unit", unit),
		logx.Duration("took", time.Since(start)),
		logx.Err(err),
	)
	if err != nil {
		if xe, ok := err.(*ExecError); ok {
			return "", xe
		}
		return "", &ExecError{Verb: verb, Unit: unit, Stderr: err.Error(), Err: err}
	}
	return out, nil
}

func (d *DBus) execute(ctx context.Context, conn *dbus.Conn, verb, name string) (string, error) {
	switch verb {
	case "start", "stop", "restart", "reload":
		ch := make(chan string, 1)
		var err error
		switch verb {
		case "start":
			_, err = conn.StartUnitContext(ctx, name, "replace", ch)
		case "stop":
			_, err = conn.StopUnitContext(ctx, name, "replace", ch)
		case "restart":
			_, err = conn.RestartUnitContext(ctx, name, "replace", ch)
		case "reload":
			_, err = conn.ReloadUnitContext(ctx, name, "replace", ch)
		}
		if err != nil {
			return "", err
		}
		select {
		case res := <-ch:
			if res != "done" {
				return "", &ExecError{Verb: verb, Unit: name, Stderr: fmt.Sprintf("Job for %s finished with result %q.", name, res)}
			}
			return "", nil
		case <-ctx.Done():
			return "", &ExecError{Verb: verb, Unit: name, Err: ctx.Err()}
		}
	case "enable":
		_, changes, err := conn.EnableUnitFilesContext(ctx, []string{name}, false, true)
		if err != nil {
			return "", err
		}
		if err := conn.ReloadContext(ctx); err != nil {
			return "", fmt.Errorf("enabled %s but failed to reload systemd daemon: %w", name, err)
		}
		lines := make([]string, 0, len(changes))
		for _, c := range changes {
			lines = append(lines, fmt.Sprintf("Created symlink %s → %s.", c.Filename, c.Destination))
		}
		return strings.Join(lines, "\n"), nil
	case "disable":
		changes, err := conn.DisableUnitFilesContext(ctx, []string{name}, false)
		if err != nil {
			return "", err
		}
		if err := conn.ReloadContext(ctx); err != nil {
			return "", fmt.Errorf("disabled %s but failed to reload systemd daemon: %w", name, err)
		}
		lines := make([]string, 0, len(changes))
		for _, c := range changes {
			lines = append(lines, fmt.Sprintf("Removed %q.", c.Filename))
		}
		return strings.Join(lines, "\n"), nil
	default:
		return "", fmt.Errorf("unsupported verb %q", verb)
	}
}

func isNoSuchUnitErr(err error) bool {
	if err == nil {
		return false
	}
	es := err.Error()
	// systemd returns org.freedesktop.systemd1.NoSuchUnit for missing units.
	return strings.Contains(es, "NoSuchUnit") || strings.Contains(es, "not-found")
}

// renderProperties prints a D-Bus property map the way systemctl show does.
// Non-scalar values are skipped.
func renderProperties(props map[string]interface{}) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v, ok := renderValue(k, props[k])
		if !ok {
			continue
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	return b.String()
}

func renderValue(key string, v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		if x {
			return "yes", true
		}
		return "no", true
	case uint64:
		if strings.HasSuffix(key, "Timestamp") {
			if x == 0 {
				return "", true
			}
			// systemd timestamps are in microseconds since the Unix epoch.
			return time.Unix(int64(x/1_000_000), 0).Format("Mon 2006-01-02 15:04:05 MST"), true
		}
		// UINT64_MAX means "not set" (e.g. MemoryCurrent without accounting).
		if x == ^uint64(0) {
			return "[not set]", true
		}
		return strconv.FormatUint(x, 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	default:
		return "", false
	}
}
