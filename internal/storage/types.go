package storage

import (
	"errors"
	"time"
)

var (
	ErrDisabled  = errors.New("storage disabled")
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("already exists")
	ErrEmptyName = errors.New("service name is required")
)

// Config configures storage.
//
// Driver values:
//   - "sqlite" (default): SQLite database file at Path
//
// Use Path ":memory:" for a throwaway database.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// MonitoredService is an operator-registered unit.
//
// LastCheckedAt, DownSince and LastNotifiedAt are bookkeeping fields; only
// the snapshot job writes the first two and nothing writes LastNotifiedAt yet.
type MonitoredService struct {
	ID             int64      `json:"id"`
	ServiceName    string     `json:"service_name"`
	NotifyOnFail   bool       `json:"notify_on_fail"`
	LastStatus     string     `json:"last_status"`
	LastCheckedAt  *time.Time `json:"last_checked_at"`
	DownSince      *time.Time `json:"down_since"`
	LastNotifiedAt *time.Time `json:"last_notified_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ChannelConfig is free-form notification channel configuration.
type ChannelConfig map[string]any

// MonitorSettings is the singleton notification-policy record.
type MonitorSettings struct {
	AutoRestart     bool          `json:"auto_restart"`
	AlertsEnabled   bool          `json:"alerts_enabled"`
	WhatsAppEnabled bool          `json:"whatsapp_enabled"`
	WhatsAppNumber  ChannelConfig `json:"whatsapp_number"`
	EmailEnabled    bool          `json:"email_enabled"`
	PrimaryEmail    string        `json:"primary_email"`
	SecondaryEmail  string        `json:"secondary_email"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// SettingsUpdate is a partial write. A nil field keeps the current value, or
// takes its default when the row is being created:
// AutoRestart=false, AlertsEnabled=true, everything else false/empty.
type SettingsUpdate struct {
	AutoRestart     *bool          `json:"auto_restart,omitempty"`
	AlertsEnabled   *bool          `json:"alerts_enabled,omitempty"`
	WhatsAppEnabled *bool          `json:"whatsapp_enabled,omitempty"`
	WhatsAppNumber  *ChannelConfig `json:"whatsapp_number,omitempty"`
	EmailEnabled    *bool          `json:"email_enabled,omitempty"`
	PrimaryEmail    *string        `json:"primary_email,omitempty"`
	SecondaryEmail  *string        `json:"secondary_email,omitempty"`
}
