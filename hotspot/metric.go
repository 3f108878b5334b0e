package hotspot

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/maypok86/otter"
	"github.com/zeebo/xxh3"
)

// valueKey is a 128-bit xxh3 digest of a parameter value's canonical string
// form, used as the otter cache key (grounded on the teacher's node.Hash:
// xxh3.Hash128 packed into a fixed-size comparable array).
type valueKey [16]byte

func hashValue(v any) (valueKey, string) {
	canonical := fmt.Sprint(v)
	h := xxh3.HashString128(canonical)
	var k valueKey
	binary.LittleEndian.PutUint64(k[:8], h.Lo)
	binary.LittleEndian.PutUint64(k[8:], h.Hi)
	return k, canonical
}

// tokenState is one parameter value's token-bucket state for DEFAULT
// control (design §3 ParameterMetric: "ruleTokenCounters", "ruleTimeCounters").
type tokenState struct {
	tokens   atomic.Int64 // remaining tokens, fixed-point: real count
	lastFill atomic.Int64 // ms
}

// queueState is one parameter value's virtual-queue state for RATE_LIMITER
// control.
type queueState struct {
	expectedPassMs atomic.Int64
}

// ParameterMetric is the per-rule set of LRU-bounded, per-value maps the
// checker reads and mutates (design §3; the design's "unbounded in the
// source" growth is explicitly capped here, per design §9's open question
// on parameter-value map growth).
type ParameterMetric struct {
	tokenStates otter.Cache[valueKey, *tokenState]
	queueStates otter.Cache[valueKey, *queueState]
	threadCount otter.Cache[valueKey, *atomic.Int64]

	// insertMu guards only the create-on-miss path for each map; readers
	// and writers of already-installed states never block on it.
	insertMu sync.Mutex
}

// defaultParamCacheCapacity bounds each per-rule parameter-value map when
// the owning RuleManager was not given an explicit capacity.
const defaultParamCacheCapacity = 200_000

// newParameterMetric builds a bounded ParameterMetric. capacity <= 0 falls
// back to defaultParamCacheCapacity.
func newParameterMetric(capacity int) *ParameterMetric {
	if capacity <= 0 {
		capacity = defaultParamCacheCapacity
	}
	tokenStates, err := otter.MustBuilder[valueKey, *tokenState](capacity).
		Cost(func(valueKey, *tokenState) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("hotspot: failed to build token-state cache: " + err.Error())
	}
	queueStates, err := otter.MustBuilder[valueKey, *queueState](capacity).
		Cost(func(valueKey, *queueState) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("hotspot: failed to build queue-state cache: " + err.Error())
	}
	threadCount, err := otter.MustBuilder[valueKey, *atomic.Int64](capacity).
		Cost(func(valueKey, *atomic.Int64) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("hotspot: failed to build thread-count cache: " + err.Error())
	}
	return &ParameterMetric{tokenStates: tokenStates, queueStates: queueStates, threadCount: threadCount}
}

// getOrCreateTokenState returns the existing state for key, or atomically
// installs and returns a fresh one.
func (m *ParameterMetric) getOrCreateTokenState(key valueKey) (state *tokenState, created bool) {
	if s, ok := m.tokenStates.Get(key); ok {
		return s, false
	}
	m.insertMu.Lock()
	defer m.insertMu.Unlock()
	if s, ok := m.tokenStates.Get(key); ok {
		return s, false
	}
	s := &tokenState{}
	m.tokenStates.Set(key, s)
	return s, true
}

func (m *ParameterMetric) getOrCreateQueueState(key valueKey) *queueState {
	if s, ok := m.queueStates.Get(key); ok {
		return s
	}
	m.insertMu.Lock()
	defer m.insertMu.Unlock()
	if s, ok := m.queueStates.Get(key); ok {
		return s
	}
	s := &queueState{}
	// An empty queue: seed far in the past so the value's first request
	// passes immediately.
	s.expectedPassMs.Store(math.MinInt64 / 2)
	m.queueStates.Set(key, s)
	return s
}

func (m *ParameterMetric) getOrCreateThreadCount(key valueKey) *atomic.Int64 {
	if s, ok := m.threadCount.Get(key); ok {
		return s
	}
	m.insertMu.Lock()
	defer m.insertMu.Unlock()
	if s, ok := m.threadCount.Get(key); ok {
		return s
	}
	s := &atomic.Int64{}
	m.threadCount.Set(key, s)
	return s
}
