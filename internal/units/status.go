package units

import (
	"context"
	"strings"

	logx "svcwatch/pkg/logx"
	"svcwatch/pkg/systemdmanager"
)

// Normalizer turns the manager's property dump into a ServiceStatus.
type Normalizer struct {
	gw     systemdmanager.Gateway
	corr   *Correlator
	source ResourceSource
	log    logx.Logger
}

func NewNormalizer(gw systemdmanager.Gateway, corr *Correlator, source ResourceSource, log logx.Logger) *Normalizer {
	if log.IsZero() {
		log = logx.Nop()
	}
	if corr == nil {
		corr = NewCorrelator(gw, log)
	}
	if source == "" {
		source = ManagerCounters
	}
	return &Normalizer{gw: gw, corr: corr, source: source, log: log.With(logx.String("comp", "normalizer"))}
}

// Source returns the default resource source used by Status.
func (n *Normalizer) Source() ResourceSource { return n.source }

// Status returns the status of name using the configured resource source.
func (n *Normalizer) Status(ctx context.Context, name string) ServiceStatus {
	return n.StatusFrom(ctx, name, n.source)
}

// StatusFrom never fails: a unit the manager cannot introspect comes back
// as a FAILED record and any missing or malformed property degrades to its
// default.
func (n *Normalizer) StatusFrom(ctx context.Context, name string, src ResourceSource) ServiceStatus {
	name = strings.TrimSpace(name)
	raw, err := n.gw.ShowProperties(ctx, name)
	if err != nil {
		n.log.Debug("unit introspection failed", logx.String("unit", name), logx.Err(err))
		return failedStatus(name, src)
	}
	props := parseProperties(raw)

	st := ServiceStatus{
		Name:         name,
		ActiveState:  ParseActiveState(props["ActiveState"]),
		SubState:     strings.ToUpper(propString(props, "SubState", string(StateUnknown))),
		Uptime:       propString(props, "ActiveEnterTimestamp", NotAvailable),
		RestartCount: propInt(props, "NRestarts"),
		Source:       src,
	}

	res := n.corr.Correlate(ctx, name)
	st.Threads = res.Threads
	switch src {
	case ProcessTable:
		st.CPU = res.CPUPercent
		st.Memory = res.MemoryPercent
	default:
		st.CPU = nanosToSeconds(propUint(props, "CPUUsageNSec"))
		st.Memory = bytesToMB(propUint(props, "MemoryCurrent"))
	}
	return st
}
