//go:build !linux

package systemdmanager

import (
	"context"
	"errors"

	logx "svcwatch/pkg/logx"
)

var ErrUnsupported = errors.New("systemdmanager: dbus backend unsupported on this OS (linux only)")

// DBus is unavailable outside linux; use the exec backend instead.
type DBus struct{ Systemctl }

func NewDBus(ctx context.Context, cfg ExecConfig, log logx.Logger) (*DBus, error) {
	_ = ctx
	_ = cfg
	_ = log
	return nil, ErrUnsupported
}
