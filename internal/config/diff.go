package config

import (
	"reflect"
	"sort"
	"strings"

	logx "svcwatch/pkg/logx"
)

// SummarizeConfigChange returns the changed sections and safe structured attrs
// for logging. Only the logging section is applied live; the returned attrs
// flag the rest with restart_required.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 8)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.HTTP, newCfg.HTTP) {
		changed = append(changed, "http")
		attrs = append(attrs, logx.String("http.addr", strings.TrimSpace(newCfg.HTTP.Addr)))
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs, logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""))
	}
	if !reflect.DeepEqual(oldCfg.Gateway, newCfg.Gateway) {
		changed = append(changed, "gateway")
		attrs = append(attrs,
			logx.String("gateway.backend", newCfg.Gateway.Backend),
			logx.String("gateway.resource_source", newCfg.Gateway.ResourceSource),
		)
	}
	if oldCfg.Snapshot != newCfg.Snapshot {
		changed = append(changed, "snapshot")
		attrs = append(attrs, logx.String("snapshot.schedule", strings.TrimSpace(newCfg.Snapshot.Schedule)))
	}
	if oldCfg.Debug != newCfg.Debug {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.pprof_enabled", newCfg.Debug.PprofEnabled),
			logx.Bool("debug.pprof_token_set", newCfg.Debug.PprofToken != ""),
		)
	}

	sort.Strings(changed)
	restart := false
	for _, s := range changed {
		if s != "logging" {
			restart = true
			break
		}
	}
	if restart {
		attrs = append(attrs, logx.Bool("restart_required", true))
	}
	return changed, attrs
}
