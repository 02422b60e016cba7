package systemdmanager

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	logx "svcwatch/pkg/logx"
)

// CommandRunner runs an external program and returns its captured output.
// A non-zero exit is reported as an *exec.ExitError.
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

func runCommand(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.String(), errb.String(), err
}

const defaultCallTimeout = 10 * time.Second

// ExecConfig configures the systemctl-based backend.
type ExecConfig struct {
	// Timeout bounds every external invocation (0 = default).
	Timeout time.Duration
	// Sudo prefixes lifecycle verbs with "sudo -n".
	Sudo bool
}

// Systemctl is the Gateway backend that shells out to systemctl, ps and journalctl.
type Systemctl struct {
	run     CommandRunner
	timeout time.Duration
	sudo    bool
	log     logx.Logger
}

// NewSystemctl returns an exec-based gateway.
func NewSystemctl(cfg ExecConfig, log logx.Logger) *Systemctl {
	return NewSystemctlWithRunner(cfg, log, runCommand)
}

// NewSystemctlWithRunner is NewSystemctl with an injected command runner.
func NewSystemctlWithRunner(cfg ExecConfig, log logx.Logger, run CommandRunner) *Systemctl {
	if run == nil {
		run = runCommand
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Systemctl{run: run, timeout: timeout, sudo: cfg.Sudo, log: log}
}

func (s *Systemctl) Close() error { return nil }

// invoke runs one bounded external call. Timeouts are reported as ExecError
// wrapping context.DeadlineExceeded.
func (s *Systemctl) invoke(ctx context.Context, verb, unit, name string, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := s.run(cctx, name, args...)
	s.log.Debug("gateway call",
		logx.String("verb", verb),
		logx.String("unit", unit),
		logx.Duration("took", time.Since(start)),
		logx.Err(err),
	)
	if err == nil {
		return stdout, nil
	}

	xe := &ExecError{Verb: verb, Unit: unit, Stderr: stderr, Err: err}
	if cctx.Err() != nil {
		xe.Err = cctx.Err()
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		xe.ExitCode = ee.ExitCode()
	} else if ec, ok := err.(interface{ ExitCode() int }); ok {
		xe.ExitCode = ec.ExitCode()
	}
	return stdout, xe
}

func (s *Systemctl) ListUnits(ctx context.Context) (string, error) {
	return s.invoke(ctx, "list-units", "", "systemctl", "list-units", "--type=service", "--all", "--no-legend", "--no-pager", "--plain")
}

func (s *Systemctl) ShowProperties(ctx context.Context, unit string) (string, error) {
	unit = UnitName(unit)
	out, err := s.invoke(ctx, "show", unit, "systemctl", "show", "--no-pager", "--", unit)
	if err != nil {
		return "", err
	}
	// systemctl exits 0 for unknown units and reports LoadState=not-found.
	if strings.Contains(out, "LoadState=not-found") {
		return "", &ExecError{Verb: "show", Unit: unit, Err: ErrUnitNotFound, Stderr: "Unit " + unit + " could not be found."}
	}
	return out, nil
}

func (s *Systemctl) ProcessTable(ctx context.Context, procName string) (string, error) {
	out, err := s.invoke(ctx, "ps", procName, "ps", "-C", procName, "-o", "pcpu=,pmem=,nlwp=")
	if err != nil {
		// ps exits 1 when nothing matched.
		var xe *ExecError
		if errors.As(err, &xe) && xe.ExitCode == 1 && strings.TrimSpace(out) == "" {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

func (s *Systemctl) JournalTail(ctx context.Context, unit string, n int) (string, error) {
	unit = UnitName(unit)
	return s.invoke(ctx, "journal", unit, "journalctl", "-u", unit, "-n", strconv.Itoa(n), "--no-pager", "--output=short-iso")
}

func (s *Systemctl) Execute(ctx context.Context, verb, unit string) (string, error) {
	unit = UnitName(unit)
	// "--" keeps a unit named like an option from reaching systemctl's flag parser.
	name, args := "systemctl", []string{verb, "--", unit}
	if s.sudo {
		name, args = "sudo", append([]string{"-n", "systemctl"}, args...)
	}
	return s.invoke(ctx, verb, unit, name, args...)
}
