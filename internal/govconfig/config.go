// Package govconfig is the runtime's boot-time configuration, loaded from
// the environment the way the teacher's config.LoadEnvConfig does:
// accumulate every error found, then return them joined, rather than
// failing fast on the first bad variable.
package govconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every environment-variable-driven setting a Runtime needs
// at boot. None of it is hot-swappable; per-resource rules are (see each
// rule package's RuleManager).
type Config struct {
	// AppName names this process. It is loaded and validated; no other
	// package reads it.
	AppName string

	// SecondWindowSampleCount/SecondWindowLengthMs describe the
	// trailing-second sliding window (design §2's MetricWindow), and
	// MinuteWindowSampleCount/MinuteWindowLengthMs the trailing-minute
	// window used for TotalException/TotalSuccess. They are loaded and
	// validated, but node.StatisticNode does not read them: its windows are
	// fixed at 2 buckets over 1000 ms and 60 buckets over 60 000 ms, the
	// same as these fields' defaults.
	SecondWindowSampleCount int
	SecondWindowLengthMs    int64
	MinuteWindowSampleCount int
	MinuteWindowLengthMs    int64

	// StatisticMaxRT is loaded but not read by any other package:
	// StatisticSlot records each call's response time without clamping it.
	StatisticMaxRT int64

	// ParamCacheCapacity bounds each hot-parameter rule's per-value LRU
	// maps (design §4.7's "LRU-bounded").
	ParamCacheCapacity int

	// ClusterHeartbeatTimeoutMs is loaded and validated but not read by
	// NewRuntime; a cluster.DefaultTokenServer takes its heartbeat timeout
	// from cluster.ServerConfig.HeartbeatTimeoutMs instead.
	ClusterHeartbeatTimeoutMs int64
	// ClusterSweepTickSpec is the cron schedule NewRuntime starts the local
	// circuit breakers' reset sweep on.
	ClusterSweepTickSpec string
}

// LoadConfig reads environment variables with the WARDEN_ prefix and
// returns a validated Config, or every validation failure joined into one
// error (mirroring LoadEnvConfig's accumulate-then-report style).
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	var errs []string

	cfg.AppName = envStr("WARDEN_APP_NAME", "warden")
	cfg.SecondWindowSampleCount = envInt("WARDEN_SECOND_WINDOW_SAMPLE_COUNT", 2, &errs)
	cfg.SecondWindowLengthMs = envInt64("WARDEN_SECOND_WINDOW_LENGTH_MS", 500, &errs)
	cfg.MinuteWindowSampleCount = envInt("WARDEN_MINUTE_WINDOW_SAMPLE_COUNT", 60, &errs)
	cfg.MinuteWindowLengthMs = envInt64("WARDEN_MINUTE_WINDOW_LENGTH_MS", 1000, &errs)
	cfg.StatisticMaxRT = envInt64("WARDEN_STATISTIC_MAX_RT", 60_000, &errs)
	cfg.ParamCacheCapacity = envInt("WARDEN_PARAM_CACHE_CAPACITY", 200_000, &errs)
	cfg.ClusterHeartbeatTimeoutMs = envInt64("WARDEN_CLUSTER_HEARTBEAT_TIMEOUT_MS", 5000, &errs)
	cfg.ClusterSweepTickSpec = envStr("WARDEN_CLUSTER_SWEEP_TICK_SPEC", "@every 1s")

	if cfg.AppName == "" {
		errs = append(errs, "WARDEN_APP_NAME must not be empty")
	}
	validatePositive("WARDEN_SECOND_WINDOW_SAMPLE_COUNT", cfg.SecondWindowSampleCount, &errs)
	validatePositive64("WARDEN_SECOND_WINDOW_LENGTH_MS", cfg.SecondWindowLengthMs, &errs)
	validatePositive("WARDEN_MINUTE_WINDOW_SAMPLE_COUNT", cfg.MinuteWindowSampleCount, &errs)
	validatePositive64("WARDEN_MINUTE_WINDOW_LENGTH_MS", cfg.MinuteWindowLengthMs, &errs)
	validatePositive("WARDEN_PARAM_CACHE_CAPACITY", cfg.ParamCacheCapacity, &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("govconfig: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envInt64(key string, defaultVal int64, errs *[]string) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}

func validatePositive64(name string, value int64, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}
