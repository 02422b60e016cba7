package units

import (
	"context"
	"errors"
	"testing"

	logx "svcwatch/pkg/logx"
)

func TestCorrelateSumsAllWorkers(t *testing.T) {
	gw := &spyGateway{procs: map[string]string{"mariadb": " 1.2  2.0    4\n 0.8  1.0    2\n"}}
	c := NewCorrelator(gw, logx.Nop())

	got := c.Correlate(context.Background(), "mariadb.service")
	want := Resources{CPUPercent: 2.00, MemoryPercent: 3.00, Threads: 6}
	if got != want {
		t.Fatalf("Correlate = %+v, want %+v", got, want)
	}
	if calls := gw.Calls(); len(calls) != 1 || calls[0] != "ps mariadb" {
		t.Fatalf("calls = %v, want [ps mariadb]", calls)
	}
}

func TestCorrelateNoMatchIsZero(t *testing.T) {
	gw := &spyGateway{procs: map[string]string{}}
	got := NewCorrelator(gw, logx.Nop()).Correlate(context.Background(), "idle.service")
	if got != (Resources{}) {
		t.Fatalf("Correlate = %+v, want zero", got)
	}
}

func TestCorrelateQueryFailureIsZero(t *testing.T) {
	gw := &spyGateway{procsErr: errors.New("boom")}
	got := NewCorrelator(gw, logx.Nop()).Correlate(context.Background(), "x.service")
	if got != (Resources{}) {
		t.Fatalf("Correlate = %+v, want zero", got)
	}
}

func TestAggregateSkipsMalformedRows(t *testing.T) {
	t.Parallel()
	raw := "1.5 0.5 3\n" +
		"abc 0.5 3\n" + // bad cpu
		"1.0 x 3\n" + // bad mem
		"1.0 0.5 2.5\n" + // bad threads
		"1.0 0.5\n" + // too few fields
		"1.0 0.5 3 extra\n" + // too many fields
		"\n" +
		"0.333 0.333 1\n"
	got := aggregateProcessRows(raw)
	want := Resources{CPUPercent: 1.83, MemoryPercent: 0.83, Threads: 4}
	if got != want {
		t.Fatalf("aggregate = %+v, want %+v", got, want)
	}
}
