package systemdmanager

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	logx "svcwatch/pkg/logx"
)

type exitErr int

func (e exitErr) Error() string { return "exit status " + string(rune('0'+int(e))) }
func (e exitErr) ExitCode() int { return int(e) }

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	stdout string
	stderr string
	err    error
	block  bool
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) (string, string, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.block {
		<-ctx.Done()
		return "", "", ctx.Err()
	}
	return f.stdout, f.stderr, f.err
}

func TestExecuteUsesSudoWhenConfigured(t *testing.T) {
	f := &fakeRunner{stdout: "ok\n"}
	g := NewSystemctlWithRunner(ExecConfig{Sudo: true}, logx.Nop(), f.run)

	out, err := g.Execute(context.Background(), "restart", "mariadb.service")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != "ok\n" {
		t.Fatalf("stdout = %q", out)
	}
	got := f.calls[0].name + " " + strings.Join(f.calls[0].args, " ")
	if got != "sudo -n systemctl restart -- mariadb.service" {
		t.Fatalf("command = %q", got)
	}
}

func TestExecuteFailureCarriesStderrAndExitCode(t *testing.T) {
	f := &fakeRunner{stderr: "Unit nope.service not found.\n", err: exitErr(5)}
	g := NewSystemctlWithRunner(ExecConfig{}, logx.Nop(), f.run)

	_, err := g.Execute(context.Background(), "start", "nope.service")
	var xe *ExecError
	if !errors.As(err, &xe) {
		t.Fatalf("expected *ExecError, got %T (%v)", err, err)
	}
	if xe.ExitCode != 5 {
		t.Fatalf("ExitCode = %d, want 5", xe.ExitCode)
	}
	if xe.Diagnostic() != "Unit nope.service not found." {
		t.Fatalf("Diagnostic = %q", xe.Diagnostic())
	}
	if f.calls[0].name != "systemctl" {
		t.Fatalf("expected plain systemctl without sudo, got %q", f.calls[0].name)
	}
}

func TestInvokeTimeoutIsExecError(t *testing.T) {
	f := &fakeRunner{block: true}
	g := NewSystemctlWithRunner(ExecConfig{Timeout: 20 * time.Millisecond}, logx.Nop(), f.run)

	_, err := g.ShowProperties(context.Background(), "slow.service")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestShowPropertiesNotFound(t *testing.T) {
	f := &fakeRunner{stdout: "Id=ghost.service\nLoadState=not-found\nActiveState=inactive\n"}
	g := NewSystemctlWithRunner(ExecConfig{}, logx.Nop(), f.run)

	_, err := g.ShowProperties(context.Background(), "ghost.service")
	if !errors.Is(err, ErrUnitNotFound) {
		t.Fatalf("expected ErrUnitNotFound, got %v", err)
	}
}

func TestProcessTableNoMatchIsEmpty(t *testing.T) {
	f := &fakeRunner{err: exitErr(1)}
	g := NewSystemctlWithRunner(ExecConfig{}, logx.Nop(), f.run)

	out, err := g.ProcessTable(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("ProcessTable error: %v", err)
	}
	if out != "" {
		t.Fatalf("out = %q, want empty", out)
	}
	if got := strings.Join(f.calls[0].args, " "); got != "-C nothing -o pcpu=,pmem=,nlwp=" {
		t.Fatalf("ps args = %q", got)
	}
}

func TestJournalTailArgs(t *testing.T) {
	f := &fakeRunner{stdout: "line\n"}
	g := NewSystemctlWithRunner(ExecConfig{}, logx.Nop(), f.run)

	if _, err := g.JournalTail(context.Background(), "nginx.service", 25); err != nil {
		t.Fatalf("JournalTail error: %v", err)
	}
	want := "-u nginx.service -n 25 --no-pager --output=short-iso"
	if got := strings.Join(f.calls[0].args, " "); got != want {
		t.Fatalf("journalctl args = %q, want %q", got, want)
	}
}

func TestUnitArgumentsCannotBeOptions(t *testing.T) {
	f := &fakeRunner{stdout: "ActiveState=active\n"}
	g := NewSystemctlWithRunner(ExecConfig{Sudo: true}, logx.Nop(), f.run)
	ctx := context.Background()

	if _, err := g.Execute(ctx, "start", "--version"); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if _, err := g.ShowProperties(ctx, "--version"); err != nil {
		t.Fatalf("ShowProperties error: %v", err)
	}
	if _, err := g.JournalTail(ctx, "--version", 5); err != nil {
		t.Fatalf("JournalTail error: %v", err)
	}

	want := []string{
		"sudo -n systemctl start -- --version.service",
		"systemctl show --no-pager -- --version.service",
		"journalctl -u --version.service -n 5 --no-pager --output=short-iso",
	}
	for i, w := range want {
		got := f.calls[i].name + " " + strings.Join(f.calls[i].args, " ")
		if got != w {
			t.Fatalf("call %d = %q, want %q", i, got, w)
		}
	}
}

func TestBareNamesGetServiceSuffix(t *testing.T) {
	f := &fakeRunner{stdout: "ok\n"}
	g := NewSystemctlWithRunner(ExecConfig{}, logx.Nop(), f.run)
	ctx := context.Background()

	if _, err := g.Execute(ctx, "restart", "nginx"); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if _, err := g.JournalTail(ctx, "nginx", 10); err != nil {
		t.Fatalf("JournalTail error: %v", err)
	}
	if got := strings.Join(f.calls[0].args, " "); got != "restart -- nginx.service" {
		t.Fatalf("systemctl args = %q", got)
	}
	if got := f.calls[1].args[1]; got != "nginx.service" {
		t.Fatalf("journal unit = %q", got)
	}
}

func TestUnitAndProcessName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, unit, proc string
	}{
		{in: "mariadb", unit: "mariadb.service", proc: "mariadb"},
		{in: "mariadb.service", unit: "mariadb.service", proc: "mariadb"},
		{in: "backup.timer", unit: "backup.timer", proc: "backup"},
		{in: " nginx.service ", unit: "nginx.service", proc: "nginx"},
	}
	for _, tt := range tests {
		if got := UnitName(tt.in); got != tt.unit {
			t.Fatalf("UnitName(%q) = %q, want %q", tt.in, got, tt.unit)
		}
		if got := ProcessName(tt.in); got != tt.proc {
			t.Fatalf("ProcessName(%q) = %q, want %q", tt.in, got, tt.proc)
		}
	}
}
