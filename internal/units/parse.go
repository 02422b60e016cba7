package units

import (
	"math"
	"strconv"
	"strings"
)

// parseProperties splits systemctl-show output into a map.
// Lines without '=' are ignored; the first '=' separates key and value.
func parseProperties(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func propInt(props map[string]string, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(props[key]))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func propUint(props map[string]string, key string) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(props[key]), 10, 64)
	if err != nil || n == math.MaxUint64 {
		return 0
	}
	return n
}

func propString(props map[string]string, key, def string) string {
	v := strings.TrimSpace(props[key])
	if v == "" {
		return def
	}
	return v
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return math.Round(v*100) / 100
}

const (
	bytesPerMB  = 1024 * 1024
	nanosPerSec = 1_000_000_000
)

func bytesToMB(b uint64) float64 { return round2(float64(b) / bytesPerMB) }

func nanosToSeconds(ns uint64) float64 { return round2(float64(ns) / nanosPerSec) }
