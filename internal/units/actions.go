package units

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "svcwatch/pkg/logx"
	"svcwatch/pkg/systemdmanager"
)

// Action is a lifecycle verb accepted by Executor.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
	ActionReload  Action = "reload"
	ActionEnable  Action = "enable"
	ActionDisable Action = "disable"
)

// Actions is the allow-list, in display order.
var Actions = []Action{ActionStart, ActionStop, ActionRestart, ActionReload, ActionEnable, ActionDisable}

// ParseAction accepts exactly the allow-listed verbs.
func ParseAction(s string) (Action, bool) {
	s = strings.TrimSpace(s)
	for _, a := range Actions {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// Executor runs validated lifecycle actions through the gateway.
//
// Every successful dispatch changes live system state; callers must not
// retry blindly.
type Executor struct {
	gw  systemdmanager.Gateway
	log logx.Logger
}

func NewExecutor(gw systemdmanager.Gateway, log logx.Logger) *Executor {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Executor{gw: gw, log: log.With(logx.String("comp", "executor"))}
}

// Execute validates serviceName and action, in that order, before touching
// the gateway. The only error it returns is a *ValidationError; gateway
// failures come back as ActionResult{Success: false}.
func (e *Executor) Execute(ctx context.Context, serviceName, action string) (ActionResult, error) {
	name := strings.TrimSpace(serviceName)
	if name == "" {
		return ActionResult{}, &ValidationError{Field: "service", Reason: ErrEmptyServiceName}
	}
	act, ok := ParseAction(action)
	if !ok {
		return ActionResult{}, &ValidationError{Field: "action", Value: action, Reason: ErrInvalidAction}
	}

	start := time.Now()
	out, err := e.gw.Execute(ctx, string(act), name)
	took := time.Since(start)
	if err != nil {
		diag := err.Error()
		var xe *systemdmanager.ExecError
		if errors.As(err, &xe) {
			diag = xe.Diagnostic()
		}
		e.log.Warn("service action failed",
			logx.String("unit", name),
			logx.String("action", string(act)),
			logx.Duration("took", took),
			logx.Err(err),
		)
		return ActionResult{Success: false, Output: strings.TrimSpace(diag)}, nil
	}

	e.log.Info("service action done",
		logx.String("unit", name),
		logx.String("action", string(act)),
		logx.Duration("took", took),
	)
	return ActionResult{Success: true, Output: strings.TrimSpace(out)}, nil
}
