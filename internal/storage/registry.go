package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	logx "svcwatch/pkg/logx"
)

const monitoredColumns = `id, service_name, notify_on_fail, last_status, last_checked_at, down_since, last_notified_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMonitored(r rowScanner) (MonitoredService, error) {
	var (
		m                       MonitoredService
		notify                  int
		checked, down, notified sql.NullString
		created                 string
	)
	if err := r.Scan(&m.ID, &m.ServiceName, &notify, &m.LastStatus, &checked, &down, &notified, &created); err != nil {
		return MonitoredService{}, err
	}
	m.NotifyOnFail = notify != 0
	m.LastCheckedAt = parseNullTime(checked)
	m.DownSince = parseNullTime(down)
	m.LastNotifiedAt = parseNullTime(notified)
	m.CreatedAt = parseTime(created)
	return m, nil
}

func (s *sqliteStore) ListMonitored(ctx context.Context) ([]MonitoredService, error) {
	return s.listMonitored(ctx, "service_name ASC")
}

func (s *sqliteStore) ListMonitoredAll(ctx context.Context) ([]MonitoredService, error) {
	return s.listMonitored(ctx, "id ASC")
}

func (s *sqliteStore) listMonitored(ctx context.Context, order string) ([]MonitoredService, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+monitoredColumns+` FROM monitored_services ORDER BY `+order)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MonitoredService, 0)
	for rows.Next() {
		m, err := scanMonitored(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetMonitored(ctx context.Context, id int64) (MonitoredService, error) {
	if s == nil || s.db == nil {
		return MonitoredService{}, ErrDisabled
	}
	m, err := scanMonitored(s.db.QueryRowContext(ctx,
		`SELECT `+monitoredColumns+` FROM monitored_services WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return MonitoredService{}, ErrNotFound
	}
	return m, err
}

// insertMonitored relies on the UNIQUE constraint: a conflicting insert
// returns no row, which is the only way a duplicate is detected.
func (s *sqliteStore) insertMonitored(ctx context.Context, name string, notifyOnFail bool) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO monitored_services(service_name, notify_on_fail, created_at)
		 VALUES(?,?,?)
		 ON CONFLICT(service_name) DO NOTHING
		 RETURNING id`,
		name, boolInt(notifyOnFail), formatTime(time.Now()),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrConflict
	}
	return id, err
}

func (s *sqliteStore) AddMonitoredIfAbsent(ctx context.Context, name string, notifyOnFail bool) (bool, error) {
	_, err := s.insertMonitored(ctx, name, notifyOnFail)
	switch {
	case errors.Is(err, ErrConflict):
		return false, nil
	case err != nil:
		return false, err
	}
	s.log.Info("monitored service added", logx.String("service", strings.TrimSpace(name)))
	return true, nil
}

func (s *sqliteStore) AddMonitored(ctx context.Context, name string, notifyOnFail bool) (int64, error) {
	id, err := s.insertMonitored(ctx, name, notifyOnFail)
	if err != nil {
		return 0, err
	}
	s.log.Info("monitored service added", logx.String("service", strings.TrimSpace(name)))
	return id, nil
}

func (s *sqliteStore) RemoveMonitored(ctx context.Context, id int64) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM monitored_services WHERE id = ?`, id)
	return err
}

// RecordCheck sets down_since on the first non-ACTIVE observation and clears
// it once the unit reports ACTIVE again. Unknown names are ignored.
func (s *sqliteStore) RecordCheck(ctx context.Context, name, status string, at time.Time) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if at.IsZero() {
		at = time.Now()
	}
	ts := formatTime(at)
	_, err := s.db.ExecContext(ctx,
		`UPDATE monitored_services
		 SET last_status = ?,
		     last_checked_at = ?,
		     down_since = CASE WHEN ? = 'ACTIVE' THEN NULL ELSE COALESCE(down_since, ?) END
		 WHERE service_name = ?`,
		status, ts, strings.ToUpper(status), ts, strings.TrimSpace(name),
	)
	return err
}
