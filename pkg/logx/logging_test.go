package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "api"))

	log.Debug("hidden")
	log.Info("request", Int("status", 200), Err(errors.New("boom")), Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["comp"] != "api" || rec["message"] != "request" || rec["status"] != float64(200) || rec["err"] != "boom" {
		t.Fatalf("record = %v", rec)
	}
	if c, _ := rec["caller"].(string); !strings.HasPrefix(c, "logging_test.go:") {
		t.Fatalf("caller = %v", rec["caller"])
	}
}

func TestZeroLoggerIsNop(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero logger should report IsZero")
	}
	l.Info("ignored", String("k", "v"))
	Nop().Error("ignored")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"trace":   LevelTrace,
		" DEBUG ": LevelDebug,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in, LevelInfo); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestServiceApplySwapsFileSink(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.log")
	second := filepath.Join(dir, "b.log")

	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: first}})
	defer svc.Close()

	log.Info("one")
	svc.Apply(Config{Level: "error", File: FileConfig{Enabled: true, Path: second}})
	log.Info("two")
	log.Error("three")

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read a: %v", err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("read b: %v", err)
	}
	if !strings.Contains(string(a), `"one"`) || strings.Contains(string(a), "three") {
		t.Fatalf("a.log = %q", a)
	}
	if strings.Contains(string(b), "two") || !strings.Contains(string(b), `"three"`) {
		t.Fatalf("b.log = %q", b)
	}
	if !log.Enabled(LevelError) || log.Enabled(LevelInfo) {
		t.Fatalf("level not applied")
	}
}
