// Package systemdmanager talks to the host service manager.
//
// Every backend speaks the same raw text shapes systemctl produces
// (list-units lines, "KEY=VALUE" property dumps, ps rows, journal lines),
// so parsing lives in exactly one place regardless of transport.
package systemdmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnitNotFound is returned when the manager cannot introspect a unit.
var ErrUnitNotFound = errors.New("unit not found")

// Gateway is the opaque, synchronous view of the host service manager,
// process table and journal.
//
// Every backend passes unit arguments through UnitName, so "nginx" and
// "nginx.service" address the same unit and show up the same in logs and
// errors.
type Gateway interface {
	// ListUnits returns one line per service unit: "NAME LOAD ACTIVE SUB DESCRIPTION...".
	ListUnits(ctx context.Context) (string, error)
	// ShowProperties returns newline-separated KEY=VALUE pairs for unit.
	ShowProperties(ctx context.Context, unit string) (string, error)
	// ProcessTable returns "PCPU PMEM NLWP" rows for every process named procName.
	// No match yields empty output and a nil error.
	ProcessTable(ctx context.Context, procName string) (string, error)
	// JournalTail returns the last n log lines for unit.
	JournalTail(ctx context.Context, unit string, n int) (string, error)
	// Execute runs a lifecycle verb with elevated privilege and returns captured stdout.
	// A failure is an *ExecError carrying the captured stderr.
	Execute(ctx context.Context, verb, unit string) (string, error)
	Close() error
}

// ExecError describes a failed or timed-out external invocation.
type ExecError struct {
	Verb     string
	Unit     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s %s: exit %d: %s", e.Verb, e.Unit, e.ExitCode, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Verb, e.Unit, msg)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Diagnostic returns the text a caller should show for this failure.
func (e *ExecError) Diagnostic() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return s
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

var unitSuffixes = []string{
	".service", ".socket", ".timer", ".target", ".mount", ".path",
	".slice", ".scope", ".device", ".swap", ".automount",
}

// UnitName returns name with a ".service" suffix unless it already carries a unit type.
func UnitName(name string) string {
	name = strings.TrimSpace(name)
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(name, suf) {
			return name
		}
	}
	return name + ".service"
}

// ProcessName derives the process-table candidate for a unit by stripping
// its unit-type suffix ("mariadb.service" -> "mariadb").
func ProcessName(unit string) string {
	unit = strings.TrimSpace(unit)
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(unit, suf) {
			return strings.TrimSuffix(unit, suf)
		}
	}
	return unit
}
