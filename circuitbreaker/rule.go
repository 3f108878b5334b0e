// Package circuitbreaker implements the three degrade (circuit-breaking)
// strategies of design §4.5 — RT, exception-ratio, and exception-count —
// plus the shared tripped/reset state machine and DegradeSlot.
package circuitbreaker

import (
	"sync/atomic"

	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/govlog"
)

// Grade selects which signal a rule trips on.
type Grade int

const (
	// RT trips when average response time stays at or above Count for
	// RTSlowRequestAmount consecutive observations.
	RT Grade = iota
	// ExceptionRatio trips when exception/success reaches Count.
	ExceptionRatio
	// ExceptionCount trips when the minute window's total exceptions
	// reaches Count.
	ExceptionCount
)

// Rule is one circuit-breaker rule for one resource.
type Rule struct {
	Resource base.Resource
	Grade    Grade
	Count    float64

	// TimeWindowSec is how long a trip lasts before the rule resets.
	TimeWindowSec int
	// RTSlowRequestAmount configures Grade == RT.
	RTSlowRequestAmount int
	// MinRequestAmount configures Grade == ExceptionRatio: below this
	// total QPS, the rule always passes (design §4.5).
	MinRequestAmount float64

	slowCount   atomic.Int32
	tripped     atomic.Bool
	trippedAtMs atomic.Int64
}

// Tripped reports whether the rule is currently open.
func (r *Rule) Tripped() bool { return r.tripped.Load() }

// trip CASes the rule open and records when, returning true iff this call
// performed the transition (design §5: "DegradeRule.tripped: CAS; its
// reset timer may preempt a future trip, which is acceptable").
func (r *Rule) trip(nowMs int64) bool {
	if r.tripped.CompareAndSwap(false, true) {
		r.trippedAtMs.Store(nowMs)
		govlog.Printf("circuit breaker tripped: resource=%s grade=%d count=%v", r.Resource.Name, r.Grade, r.Count)
		return true
	}
	return false
}

// maybeReset closes the rule if timeWindowSec has elapsed since it
// tripped. Called by the shared sweeper, not per-request.
func (r *Rule) maybeReset(nowMs int64) {
	if !r.tripped.Load() {
		return
	}
	if nowMs-r.trippedAtMs.Load() < int64(r.TimeWindowSec)*1000 {
		return
	}
	if r.tripped.CompareAndSwap(true, false) {
		r.slowCount.Store(0)
		govlog.Printf("circuit breaker reset: resource=%s", r.Resource.Name)
	}
}
