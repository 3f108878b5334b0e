package flow

import (
	"sync/atomic"

	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/timesource"
)

// WarmUpRateLimiterController combines WarmUp's cold-start-adjusted
// admission threshold with RateLimiter's queueing semantics: each request's
// queueing cost is computed from the current warmed-up count rather than a
// fixed rule.Count (design §4.4 "WarmUpRateLimiterController: combination —
// uses WarmUp's adaptive count to compute a per-request cost, then queues
// via RateLimiter semantics against that dynamic cost").
type WarmUpRateLimiterController struct {
	rule             *Rule
	warmUp           *WarmUpController
	latestPassedTime atomic.Int64
}

// NewWarmUpRateLimiterController builds a WarmUpRateLimiterController for rule.
func NewWarmUpRateLimiterController(rule *Rule) *WarmUpRateLimiterController {
	return &WarmUpRateLimiterController{rule: rule, warmUp: NewWarmUpController(rule)}
}

func (c *WarmUpRateLimiterController) CanPass(clock timesource.Source, node base.StatNode, acquireCount uint32, prioritized bool) *base.TokenResult {
	adaptiveCount := c.warmUp.currentCount(clock, node)
	return rateLimiterCanPass(&c.latestPassedTime, adaptiveCount, c.rule.MaxQueueingTimeMs, clock, acquireCount, c.rule)
}

var _ Controller = (*WarmUpRateLimiterController)(nil)
