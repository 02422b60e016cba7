package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

func (s *sqliteStore) GetSettings(ctx context.Context) (MonitorSettings, bool, error) {
	if s == nil || s.db == nil {
		return MonitorSettings{}, false, ErrDisabled
	}
	var (
		out                           MonitorSettings
		auto, alerts, whatsapp, email int
		number, primary, secondary    sql.NullString
		created, updated              string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT auto_restart, alerts_enabled, whatsapp_enabled, whatsapp_number,
		        email_enabled, primary_email, secondary_email, created_at, updated_at
		 FROM monitor_settings WHERE id = 1`,
	).Scan(&auto, &alerts, &whatsapp, &number, &email, &primary, &secondary, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return MonitorSettings{}, false, nil
	}
	if err != nil {
		return MonitorSettings{}, false, err
	}

	out.AutoRestart = auto != 0
	out.AlertsEnabled = alerts != 0
	out.WhatsAppEnabled = whatsapp != 0
	out.WhatsAppNumber = decodeChannel(number.String)
	out.EmailEnabled = email != 0
	out.PrimaryEmail = primary.String
	out.SecondaryEmail = secondary.String
	out.CreatedAt = parseTime(created)
	out.UpdatedAt = parseTime(updated)
	return out, true, nil
}

// UpsertSettings writes the singleton row. The insert is a no-op when the row
// exists, so the update always targets exactly one row; both statements run in
// one transaction.
func (s *sqliteStore) UpsertSettings(ctx context.Context, u SettingsUpdate) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	var number any
	if u.WhatsAppNumber != nil {
		b, err := encodeChannel(*u.WhatsAppNumber)
		if err != nil {
			return err
		}
		number = b
	}
	var primary, secondary any
	if u.PrimaryEmail != nil {
		primary = strings.TrimSpace(*u.PrimaryEmail)
	}
	if u.SecondaryEmail != nil {
		secondary = strings.TrimSpace(*u.SecondaryEmail)
	}
	now := formatTime(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO monitor_settings(id, created_at, updated_at) VALUES(1, ?, ?)
		 ON CONFLICT(id) DO NOTHING`, now, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE monitor_settings SET
		   auto_restart     = COALESCE(?, auto_restart),
		   alerts_enabled   = COALESCE(?, alerts_enabled),
		   whatsapp_enabled = COALESCE(?, whatsapp_enabled),
		   whatsapp_number  = COALESCE(?, whatsapp_number),
		   email_enabled    = COALESCE(?, email_enabled),
		   primary_email    = COALESCE(?, primary_email),
		   secondary_email  = COALESCE(?, secondary_email),
		   updated_at       = ?
		 WHERE id = 1`,
		nullBool(u.AutoRestart), nullBool(u.AlertsEnabled), nullBool(u.WhatsAppEnabled), number,
		nullBool(u.EmailEnabled), primary, secondary, now,
	); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("settings updated")
	return nil
}

func encodeChannel(c ChannelConfig) (string, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeChannel never fails: empty, corrupt or non-object payloads read as {}.
func decodeChannel(raw string) ChannelConfig {
	out := ChannelConfig{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return out
	}
	return ChannelConfig(m)
}
