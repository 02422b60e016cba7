package units

import (
	"context"
	"sync"

	"svcwatch/pkg/systemdmanager"
)

// spyGateway is a scripted Gateway that records every call.
type spyGateway struct {
	mu    sync.Mutex
	calls []string

	units      string
	unitsErr   error
	props      map[string]string
	propsErr   map[string]error
	procs      map[string]string
	procsErr   error
	journal    string
	journalErr error
	journalN   int
	execOut    string
	execErr    error
}

var _ systemdmanager.Gateway = (*spyGateway)(nil)

func (g *spyGateway) note(s string) {
	g.mu.Lock()
	g.calls = append(g.calls, s)
	g.mu.Unlock()
}

func (g *spyGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *spyGateway) ListUnits(ctx context.Context) (string, error) {
	g.note("list-units")
	return g.units, g.unitsErr
}

func (g *spyGateway) ShowProperties(ctx context.Context, unit string) (string, error) {
	g.note("show " + unit)
	if err := g.propsErr[unit]; err != nil {
		return "", err
	}
	return g.props[unit], nil
}

func (g *spyGateway) ProcessTable(ctx context.Context, procName string) (string, error) {
	g.note("ps " + procName)
	if g.procsErr != nil {
		return "", g.procsErr
	}
	return g.procs[procName], nil
}

func (g *spyGateway) JournalTail(ctx context.Context, unit string, n int) (string, error) {
	g.note("journal " + unit)
	g.mu.Lock()
	g.journalN = n
	g.mu.Unlock()
	return g.journal, g.journalErr
}

func (g *spyGateway) Execute(ctx context.Context, verb, unit string) (string, error) {
	g.note(verb + " " + unit)
	return g.execOut, g.execErr
}

func (g *spyGateway) Close() error { return nil }
