package flow

import (
	"math"
	"sync"

	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/timesource"
)

// WarmUpController ramps admission up from count/coldFactor to count over
// warmUpSec of sustained load, modeling a token bucket that cools down
// while idle and drains while busy (design §4.4 "WarmUpController (token
// bucket with cold-start)"). State sync happens at most once per second,
// so a plain mutex (rather than a CAS loop) is sufficient and keeps the
// formula's multi-field update atomic.
type WarmUpController struct {
	rule *Rule

	warningToken float64
	maxToken     float64
	slope        float64

	mu           sync.Mutex
	storedTokens float64
	lastFilledMs int64
	initialized  bool
}

// NewWarmUpController builds a WarmUpController for rule.
func NewWarmUpController(rule *Rule) *WarmUpController {
	count := rule.Count
	warmUpSec := float64(rule.WarmUpSec)
	coldFactor := float64(rule.ColdFactor)
	if coldFactor < 2 {
		coldFactor = 2
	}

	warningToken := warmUpSec * count / (coldFactor - 1)
	maxToken := warningToken + 2*warmUpSec*count/(1+coldFactor)
	slope := (coldFactor - 1) / (count * (maxToken - warningToken))

	return &WarmUpController{
		rule:         rule,
		warningToken: warningToken,
		maxToken:     maxToken,
		slope:        slope,
	}
}

// currentCount syncs the stored tokens and returns the adaptive admission
// threshold for "now" given node's current second-window pass QPS — used
// by WarmUpRateLimiterController to derive a per-request cost. CanPass
// below performs the same sync and threshold computation.
func (c *WarmUpController) currentCount(clock timesource.Source, node base.StatNode) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync(clock, node)
	return c.admissionThreshold(node.PassQPS())
}

func (c *WarmUpController) sync(clock timesource.Source, node base.StatNode) {
	now := clock.CurrentTimeMillis()
	now -= now % 1000
	passQps := node.PassQPS()

	if !c.initialized {
		c.storedTokens = c.maxToken
		c.lastFilledMs = now
		c.initialized = true
	}
	if now <= c.lastFilledMs {
		return
	}

	elapsedMs := now - c.lastFilledMs
	add := float64(elapsedMs) * c.rule.Count / 1000

	switch {
	case c.storedTokens < c.warningToken:
		c.storedTokens += add
	case c.storedTokens > c.warningToken:
		if passQps < c.rule.Count/float64(c.rule.ColdFactor) {
			c.storedTokens += add
		}
	}
	if c.storedTokens > c.maxToken {
		c.storedTokens = c.maxToken
	}
	c.lastFilledMs = now

	c.storedTokens -= passQps
	if c.storedTokens < 0 {
		c.storedTokens = 0
	}
}

func (c *WarmUpController) admissionThreshold(passQps float64) float64 {
	if c.storedTokens >= c.warningToken {
		return math.Nextafter(1/((c.storedTokens-c.warningToken)*c.slope+1/c.rule.Count), math.Inf(1))
	}
	return c.rule.Count
}

func (c *WarmUpController) CanPass(clock timesource.Source, node base.StatNode, acquireCount uint32, prioritized bool) *base.TokenResult {
	c.mu.Lock()
	c.sync(clock, node)
	threshold := c.admissionThreshold(node.PassQPS())
	c.mu.Unlock()

	if node.PassQPS()+float64(acquireCount) <= threshold {
		return base.Pass()
	}
	return base.Blocked(base.NewBlockError(base.BlockTypeFlow, c.rule))
}

var _ Controller = (*WarmUpController)(nil)
