package okx

import (
	"net/http"
	"strconv"
	"strings"

	metrics "contextgate/internal/metrics"
	"contextgate/logger"
)

const (
	defaultLimitPerWindow = 20.0
	defaultWindowSeconds  = 2.0
)

// RateLimitSnapshot captures the rate-limit metadata returned by OKX.
type RateLimitSnapshot struct {
	Limit        float64
	Remaining    float64
	ResetUnixMs  float64
	WindowSecond float64
	Present      bool
}

// ExtractRateLimit pulls the rate-limit headers from an OKX REST response.
// Missing values fall back to the documented public market limits.
func ExtractRateLimit(header http.Header) RateLimitSnapshot {
	rl := RateLimitSnapshot{Limit: defaultLimitPerWindow, Remaining: -1, WindowSecond: defaultWindowSeconds}
	if header == nil {
		return rl
	}

	if v := header.Get("Rate-Limit-Limit"); v != "" {
		rl.Limit = parseFloat(v, defaultLimitPerWindow)
		rl.Present = true
	}
	if v := header.Get("Rate-Limit-Remaining"); v != "" {
		rl.Remaining = parseFloat(v, -1)
		rl.Present = true
	}
	if v := header.Get("Rate-Limit-Reset"); v != "" {
		rl.ResetUnixMs = parseFloat(v, 0)
		if rl.ResetUnixMs > 0 && rl.ResetUnixMs < 1e12 {
			rl.ResetUnixMs *= 1000
		}
	}
	if v := header.Get("Rate-Limit-Interval"); v != "" {
		if secs := parseIntervalSeconds(v); secs > 0 {
			rl.WindowSecond = secs
		}
	}
	return rl
}

// reportRateLimit emits the remaining request budget when OKX sent one.
func reportRateLimit(log *logger.Log, endpoint, instID string, rl RateLimitSnapshot) bool {
	if !rl.Present || rl.Remaining < 0 {
		return false
	}
	fields := logger.Fields{
		"exchange": "okx",
		"endpoint": endpoint,
		"inst_id":  instID,
	}
	metrics.EmitMetric(log, "okx_client", "request_remaining_window", rl.Remaining, "gauge", fields)
	if rl.Limit > 0 {
		used := rl.Limit - rl.Remaining
		if used < 0 {
			used = 0
		}
		metrics.EmitMetric(log, "okx_client", "requests_used_window", used, "gauge", fields)
	}
	return true
}

func parseFloat(val string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		return f
	}
	return fallback
}

func parseIntervalSeconds(val string) float64 {
	lower := strings.ToLower(strings.TrimSpace(val))
	if strings.HasSuffix(lower, "ms") {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(lower, "ms"), 64); err == nil {
			return f / 1000
		}
	}
	if strings.HasSuffix(lower, "s") {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(lower, "s"), 64); err == nil {
			return f
		}
	}
	return parseFloat(lower, 0)
}
