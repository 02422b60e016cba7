// Package snapshot records the latest observed state of every registered
// service on a cron schedule.
//
// The job only keeps the registry's bookkeeping columns current. It sends no
// alerts and restarts nothing.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"svcwatch/internal/storage"
	"svcwatch/internal/units"
	logx "svcwatch/pkg/logx"
)

var ErrDisabled = errors.New("snapshot schedule not configured")

// Registry is the slice of storage.Store the job needs.
type Registry interface {
	ListMonitoredAll(ctx context.Context) ([]storage.MonitoredService, error)
	RecordCheck(ctx context.Context, name, status string, at time.Time) error
}

// StatusSource resolves a unit to its normalized status.
type StatusSource interface {
	Status(ctx context.Context, name string) units.ServiceStatus
}

type Config struct {
	// Schedule accepts standard 5-field cron, an optional leading seconds
	// field, or descriptors such as "@every 1m".
	Schedule string
	Timezone string
	// RunTimeout bounds one pass over the registry. 0 means 1 minute.
	RunTimeout time.Duration
}

// Result summarizes one pass.
type Result struct {
	Checked int `json:"checked"`
	Down    int `json:"down"`
	Failed  int `json:"failed"`
}

type Job struct {
	cfg    Config
	spec   string
	loc    *time.Location
	parser cron.Parser
	reg    Registry
	src    StatusSource
	log    logx.Logger
	now    func() time.Time

	mu   sync.Mutex
	last Result
}

func New(cfg Config, reg Registry, src StatusSource, log logx.Logger) (*Job, error) {
	spec := strings.TrimSpace(cfg.Schedule)
	if spec == "" {
		return nil, ErrDisabled
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("snapshot.schedule %q: %w", spec, err)
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("snapshot.timezone %q: %w", tz, err)
		}
		loc = l
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = time.Minute
	}
	return &Job{
		cfg:    cfg,
		spec:   spec,
		loc:    loc,
		parser: parser,
		reg:    reg,
		src:    src,
		log:    log.With(logx.String("comp", "snapshot")),
		now:    time.Now,
	}, nil
}

// Once runs a single pass without a schedule.
func Once(ctx context.Context, reg Registry, src StatusSource, log logx.Logger) (Result, error) {
	j := &Job{reg: reg, src: src, log: log.With(logx.String("comp", "snapshot")), now: time.Now}
	return j.RunOnce(ctx)
}

// Run schedules passes until ctx is done. Overlapping passes are skipped.
func (j *Job) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithParser(j.parser),
		cron.WithLocation(j.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(j.spec, func() {
		rctx, cancel := context.WithTimeout(ctx, j.cfg.RunTimeout)
		defer cancel()
		if _, err := j.RunOnce(rctx); err != nil {
			j.log.Warn("snapshot pass failed", logx.Err(err))
		}
	}); err != nil {
		return err
	}
	c.Start()
	j.log.Info("snapshot job started", logx.String("schedule", j.spec), logx.String("tz", j.loc.String()))

	<-ctx.Done()
	<-c.Stop().Done()
	j.log.Info("snapshot job stopped")
	return nil
}

// RunOnce walks the registry in insertion order and records each unit's
// active state. A failed write for one unit does not stop the pass.
func (j *Job) RunOnce(ctx context.Context) (Result, error) {
	services, err := j.reg.ListMonitoredAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list monitored: %w", err)
	}

	var res Result
	for _, svc := range services {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		st := j.src.Status(ctx, svc.ServiceName)
		if err := j.reg.RecordCheck(ctx, svc.ServiceName, string(st.ActiveState), j.now()); err != nil {
			res.Failed++
			j.log.Warn("record check failed", logx.String("service", svc.ServiceName), logx.Err(err))
			continue
		}
		res.Checked++
		if st.ActiveState != units.StateActive {
			res.Down++
		}
	}

	j.mu.Lock()
	j.last = res
	j.mu.Unlock()
	j.log.Debug("snapshot pass done",
		logx.Int("checked", res.Checked), logx.Int("down", res.Down), logx.Int("failed", res.Failed))
	return res, nil
}

// Last returns the result of the most recent completed pass.
func (j *Job) Last() Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}
