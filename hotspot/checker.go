package hotspot

import (
	"runtime"
	"sync/atomic"
	"time"
)

// checkDefault is the per-value token bucket of design §4.7
// "QPS / DEFAULT (token bucket per value)".
func checkDefault(rule *Rule, pm *ParameterMetric, key valueKey, canonical string, nowMs int64, acquireCount uint32) bool {
	tokenCount := int64(rule.thresholdFor(canonical))
	if tokenCount <= 0 {
		return false
	}
	maxCount := tokenCount + int64(rule.BurstCount)
	if int64(acquireCount) > maxCount {
		return false
	}

	state, created := pm.getOrCreateTokenState(key)
	if created {
		state.lastFill.Store(nowMs)
		state.tokens.Store(maxCount - int64(acquireCount))
		return true
	}

	durationMs := int64(rule.DurationInSec) * 1000
	if durationMs <= 0 {
		durationMs = 1000
	}

	for {
		lastFill := state.lastFill.Load()
		passTimeMs := nowMs - lastFill

		if passTimeMs > durationMs {
			rest := state.tokens.Load()
			refilled := rest + passTimeMs*tokenCount/durationMs
			if refilled > maxCount {
				refilled = maxCount
			}
			if !state.lastFill.CompareAndSwap(lastFill, nowMs) {
				runtime.Gosched()
				continue
			}
			if refilled < int64(acquireCount) {
				state.tokens.Store(refilled)
				return false
			}
			state.tokens.Store(refilled - int64(acquireCount))
			return true
		}

		cur := state.tokens.Load()
		if cur < int64(acquireCount) {
			return false
		}
		if !state.tokens.CompareAndSwap(cur, cur-int64(acquireCount)) {
			runtime.Gosched()
			continue
		}
		return true
	}
}

// checkRateLimiter is the per-value virtual queue of design §4.7
// "QPS / RATE_LIMITER (virtual queue per value)".
func checkRateLimiter(rule *Rule, pm *ParameterMetric, key valueKey, canonical string, nowMs int64, acquireCount uint32) bool {
	tokenCount := rule.thresholdFor(canonical)
	if tokenCount <= 0 {
		return false
	}
	costTime := int64(1000*float64(acquireCount)*float64(rule.DurationInSec)/tokenCount + 0.5)
	state := pm.getOrCreateQueueState(key)

	for {
		lastPass := state.expectedPassMs.Load()
		expected := lastPass + costTime
		if expected <= nowMs {
			if !state.expectedPassMs.CompareAndSwap(lastPass, nowMs) {
				runtime.Gosched()
				continue
			}
			return true
		}

		wait := expected - nowMs
		if wait > rule.MaxQueueingTimeMs {
			return false
		}

		if !state.expectedPassMs.CompareAndSwap(lastPass, expected) {
			runtime.Gosched()
			continue
		}
		if wait > 0 {
			time.Sleep(time.Duration(wait) * time.Millisecond)
		}
		return true
	}
}

// checkThread implements design §4.7 "THREAD grade": threshold is a
// per-value override or rule.Count; pass iff threadCount+1 <= threshold.
// Returns the counter so the caller's Exit can decrement it.
func checkThread(rule *Rule, pm *ParameterMetric, key valueKey, canonical string) (pass bool, counter *atomic.Int64) {
	threshold := int64(rule.thresholdFor(canonical))
	state := pm.getOrCreateThreadCount(key)
	cur := state.Load()
	if cur+1 > threshold {
		return false, nil
	}
	state.Add(1)
	return true, state
}
