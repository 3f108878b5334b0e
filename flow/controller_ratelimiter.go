package flow

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/timesource"
)

// RateLimiterController admits requests into a virtual leaky-bucket queue,
// spacing them costTime apart rather than rejecting bursts outright
// (design §4.4 "RateLimiterController (leaky-bucket queue)").
type RateLimiterController struct {
	rule             *Rule
	latestPassedTime atomic.Int64
}

// NewRateLimiterController builds a RateLimiterController for rule.
func NewRateLimiterController(rule *Rule) *RateLimiterController {
	c := &RateLimiterController{rule: rule}
	// No request has passed yet: seed far in the past so the first request
	// passes immediately whatever the clock reads.
	c.latestPassedTime.Store(math.MinInt64 / 2)
	return c
}

func (c *RateLimiterController) CanPass(clock timesource.Source, node base.StatNode, acquireCount uint32, prioritized bool) *base.TokenResult {
	return rateLimiterCanPass(&c.latestPassedTime, c.rule.Count, c.rule.MaxQueueingTimeMs, clock, acquireCount, c.rule)
}

// rateLimiterCanPass is the CAS queueing algorithm shared by
// RateLimiterController and WarmUpRateLimiterController (whose effective
// count varies call to call).
func rateLimiterCanPass(latestPassedTime *atomic.Int64, count float64, maxQueueingTimeMs int64, clock timesource.Source, acquireCount uint32, rule *Rule) *base.TokenResult {
	if count <= 0 {
		return base.Blocked(base.NewBlockError(base.BlockTypeFlow, rule))
	}
	costTime := int64(1000*float64(acquireCount)/count + 0.5)

	for {
		now := clock.CurrentTimeMillis()
		last := latestPassedTime.Load()
		expected := costTime + last
		if expected <= now {
			if latestPassedTime.CompareAndSwap(last, now) {
				return base.Pass()
			}
			continue
		}

		waitTime := expected - now
		if waitTime > maxQueueingTimeMs {
			return base.Blocked(base.NewBlockError(base.BlockTypeFlow, rule))
		}

		newLast := last + costTime
		if !latestPassedTime.CompareAndSwap(last, newLast) {
			continue
		}
		waitTime = newLast - now
		if waitTime > maxQueueingTimeMs {
			// Raced past the limit after committing; revert and reject.
			latestPassedTime.CompareAndSwap(newLast, last)
			return base.Blocked(base.NewBlockError(base.BlockTypeFlow, rule))
		}
		if waitTime > 0 {
			time.Sleep(time.Duration(waitTime) * time.Millisecond)
		}
		// Unlike DefaultController's priority occupation, a queued pass here
		// was never reserved out of a future bucket's quota, so it counts as
		// an ordinary PASS once woken rather than OCCUPIED_PASS.
		return base.Pass()
	}
}

var _ Controller = (*RateLimiterController)(nil)
