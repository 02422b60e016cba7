package units

import (
	"context"
	"fmt"
	"strings"
	"sync"

	logx "svcwatch/pkg/logx"
	"svcwatch/pkg/systemdmanager"
)

const (
	DefaultLogLines = 100
	MaxLogLines     = 1000

	overviewWorkers = 8
)

// Catalog covers the pass-through reads: unit listing, the all-units
// overview and journal tails.
type Catalog struct {
	gw       systemdmanager.Gateway
	norm     *Normalizer
	log      logx.Logger
	logLines int
}

func NewCatalog(gw systemdmanager.Gateway, norm *Normalizer, logLines int, log logx.Logger) *Catalog {
	if log.IsZero() {
		log = logx.Nop()
	}
	if logLines <= 0 {
		logLines = DefaultLogLines
	}
	return &Catalog{gw: gw, norm: norm, logLines: min(logLines, MaxLogLines), log: log.With(logx.String("comp", "catalog"))}
}

// ListUnits returns every service unit the manager knows about.
func (c *Catalog) ListUnits(ctx context.Context) ([]UnitSummary, error) {
	raw, err := c.gw.ListUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return parseUnitList(raw), nil
}

func parseUnitList(raw string) []UnitSummary {
	out := make([]UnitSummary, 0, 64)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		// Failed units are prefixed with a status marker.
		line = strings.TrimSpace(strings.TrimLeft(line, "●*"))
		f := strings.Fields(line)
		if len(f) < 4 {
			continue
		}
		out = append(out, UnitSummary{
			Name:        f[0],
			LoadState:   f[1],
			ActiveState: f[2],
			SubState:    f[3],
			Description: strings.Join(f[4:], " "),
		})
	}
	return out
}

// Overview returns a process-table status for every listed unit, in listing order.
func (c *Catalog) Overview(ctx context.Context) ([]ServiceStatus, error) {
	list, err := c.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ServiceStatus, len(list))
	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(overviewWorkers, len(list)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				out[i] = c.norm.StatusFrom(ctx, list[i].Name, ProcessTable)
			}
		}()
	}
	for i := range list {
		idx <- i
	}
	close(idx)
	wg.Wait()
	return out, nil
}

// Logs returns the last n journal lines for name. n <= 0 uses the
// configured default; n is capped at MaxLogLines.
func (c *Catalog) Logs(ctx context.Context, name string, n int) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "service", Reason: ErrEmptyServiceName}
	}
	if n <= 0 {
		n = c.logLines
	}
	n = min(n, MaxLogLines)

	raw, err := c.gw.JournalTail(ctx, name, n)
	if err != nil {
		c.log.Warn("journal query failed", logx.String("unit", name), logx.Err(err))
		return []string{}, fmt.Errorf("logs for %s: %w", name, err)
	}
	lines := make([]string, 0, n)
	for _, l := range strings.Split(strings.TrimSpace(raw), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}
