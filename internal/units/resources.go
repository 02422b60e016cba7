package units

import (
	"context"
	"strconv"
	"strings"

	logx "svcwatch/pkg/logx"
	"svcwatch/pkg/systemdmanager"
)

// Correlator maps a unit onto its running processes and aggregates their
// resource usage from the process table.
type Correlator struct {
	gw  systemdmanager.Gateway
	log logx.Logger
}

func NewCorrelator(gw systemdmanager.Gateway, log logx.Logger) *Correlator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Correlator{gw: gw, log: log.With(logx.String("comp", "correlator"))}
}

// Correlate sums %CPU, %MEM and thread counts over every process whose name
// matches the unit (minus its type suffix). Malformed rows are skipped; a
// failed query or no match yields zeros.
func (c *Correlator) Correlate(ctx context.Context, name string) Resources {
	proc := systemdmanager.ProcessName(name)
	if proc == "" {
		return Resources{}
	}
	raw, err := c.gw.ProcessTable(ctx, proc)
	if err != nil {
		c.log.Debug("process table query failed", logx.String("unit", name), logx.Err(err))
		return Resources{}
	}
	return aggregateProcessRows(raw)
}

func aggregateProcessRows(raw string) Resources {
	var cpu, mem float64
	threads := 0
	for _, line := range strings.Split(raw, "\n") {
		parts := strings.Fields(line)
		if len(parts) != 3 {
			continue
		}
		pc, err1 := strconv.ParseFloat(parts[0], 64)
		pm, err2 := strconv.ParseFloat(parts[1], 64)
		nt, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || pc < 0 || pm < 0 || nt < 0 {
			continue
		}
		cpu += pc
		mem += pm
		threads += nt
	}
	return Resources{CPUPercent: round2(cpu), MemoryPercent: round2(mem), Threads: threads}
}
