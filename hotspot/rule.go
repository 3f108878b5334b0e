// Package hotspot implements per-parameter-value flow control: ParamFlowRule,
// ParameterMetric, ParamFlowChecker, and ParamFlowSlot (design §4.7).
package hotspot

import "github.com/Resinat/warden/base"

// Grade selects what a checker compares against Count.
type Grade int

const (
	// QPS token-buckets per parameter value, shaped by ControlBehavior.
	QPS Grade = iota
	// Thread compares a value's concurrent-call count against Count.
	Thread
)

// ControlBehavior selects the QPS-grade shaping algorithm.
type ControlBehavior int

const (
	// Default is the per-value token bucket (design §4.7 "QPS / DEFAULT").
	Default ControlBehavior = iota
	// RateLimiter is the per-value virtual queue (design §4.7
	// "QPS / RATE_LIMITER").
	RateLimiter
)

// Rule is one hot-parameter rule for one resource.
type Rule struct {
	Resource base.Resource

	// ParamIdx indexes into the call's Args. Negative values count from
	// the end (design §4.7: "if negative index, translate by
	// length + paramIdx").
	ParamIdx int
	Grade    Grade
	Count    float64

	ControlBehavior ControlBehavior
	// DurationInSec is the token bucket's refill window (DEFAULT) or the
	// time base for per-request cost (RATE_LIMITER).
	DurationInSec int
	// BurstCount extends DEFAULT's bucket capacity beyond Count.
	BurstCount float64
	// MaxQueueingTimeMs bounds RATE_LIMITER's queue wait.
	MaxQueueingTimeMs int64

	// ParsedHotItems overrides Count/threshold for specific parameter
	// values, keyed by their canonical string form.
	ParsedHotItems map[string]float64

	ClusterMode bool
	// FallbackToLocalWhenFail selects what happens when the cluster leg
	// answers with anything other than OK or Blocked (NoRuleExists,
	// BadRequest, Fail, TooManyRequest, ShouldWait): true falls through to
	// this rule's own local per-value checker, false passes the call
	// without a local check (design §4.9's "fall back to local if
	// configured, else pass"). Only meaningful when ClusterMode is set.
	FallbackToLocalWhenFail bool
}

// resolvedIndex translates a possibly-negative ParamIdx against argLen,
// returning ok=false when it is out of range (design §4.7: "clamped to
// illegal if out of range, so the rule becomes inert").
func (r *Rule) resolvedIndex(argLen int) (idx int, ok bool) {
	idx = r.ParamIdx
	if idx < 0 {
		idx = argLen + idx
	}
	if idx < 0 || idx >= argLen {
		return 0, false
	}
	return idx, true
}

// thresholdFor returns the rule's effective per-value threshold, applying
// a ParsedHotItems override when present.
func (r *Rule) thresholdFor(key string) float64 {
	if v, ok := r.ParsedHotItems[key]; ok {
		return v
	}
	return r.Count
}
