package cluster

import (
	"sync"

	"github.com/Resinat/warden/internal/slidingwindow"
	"github.com/Resinat/warden/internal/timesource"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ThresholdType selects how a ServerRule's Count is scaled into an
// effective cluster-wide threshold (design §4.9 step 3).
type ThresholdType int

const (
	// Global treats Count as the cluster-wide threshold directly.
	Global ThresholdType = iota
	// AvgLocal treats Count as a per-client threshold, scaled by the
	// number of currently connected clients.
	AvgLocal
)

// ServerRule is the server-side rule a FlowID resolves to.
type ServerRule struct {
	FlowID        uint64
	Count         float64
	ThresholdType ThresholdType
	// ExceedCount scales the effective threshold beyond ThresholdType's
	// base computation (design §4.9 step 3: "scale by exceedCount").
	ExceedCount float64

	metric         *slidingwindow.Metric
	occupiedMetric *slidingwindow.Metric
}

func newServerRule(r ServerRule, clock timesource.Source) *ServerRule {
	r.metric = slidingwindow.NewMetric(2, 1000, clock)
	r.occupiedMetric = slidingwindow.NewMetric(2, 1000, clock)
	if r.ExceedCount <= 0 {
		r.ExceedCount = 1
	}
	return &r
}

// DefaultTokenServer is a reference in-process implementation of
// TokenService (design §4.9 "Server-side decision"). Real deployments
// expose this over a transport the core never sees.
type DefaultTokenServer struct {
	clock timesource.Source

	mu    sync.RWMutex
	rules map[uint64]*ServerRule

	globalQPS        float64
	globalMetric     *slidingwindow.Metric
	maxOccupyRatio   float64
	occupyBucketMs   int64

	clients *clientRegistry
	sweeper *cron.Cron
}

// ServerConfig configures a DefaultTokenServer.
type ServerConfig struct {
	// GlobalQPS is the namespace-wide admission ceiling, checked before
	// any per-rule threshold (design §4.9 step 2).
	GlobalQPS float64
	// MaxOccupyRatio bounds the fraction of threshold that may be tied up
	// in priority pre-occupation before the server stops granting
	// SHOULD_WAIT (design §4.9 step 5).
	MaxOccupyRatio float64
	// OccupyBucketMs is the reservation granularity returned as WaitInMs
	// on a SHOULD_WAIT response.
	OccupyBucketMs int64
	// HeartbeatTimeoutMs is how long a client may go silent before it is
	// dropped from connectedClientCount.
	HeartbeatTimeoutMs int64
}

// NewDefaultTokenServer builds a server with no rules registered yet.
func NewDefaultTokenServer(cfg ServerConfig, clock timesource.Source) *DefaultTokenServer {
	if clock == nil {
		clock = timesource.Default
	}
	if cfg.MaxOccupyRatio <= 0 {
		cfg.MaxOccupyRatio = 0.2
	}
	if cfg.OccupyBucketMs <= 0 {
		cfg.OccupyBucketMs = 1000
	}
	if cfg.HeartbeatTimeoutMs <= 0 {
		cfg.HeartbeatTimeoutMs = 5000
	}
	return &DefaultTokenServer{
		clock:          clock,
		rules:          make(map[uint64]*ServerRule),
		globalQPS:      cfg.GlobalQPS,
		globalMetric:   slidingwindow.NewMetric(2, 1000, clock),
		maxOccupyRatio: cfg.MaxOccupyRatio,
		occupyBucketMs: cfg.OccupyBucketMs,
		clients:        newClientRegistry(cfg.HeartbeatTimeoutMs, clock),
		sweeper:        cron.New(cron.WithSeconds()),
	}
}

// LoadRules replaces the server's rule set.
func (s *DefaultTokenServer) LoadRules(rules []ServerRule) {
	built := make(map[uint64]*ServerRule, len(rules))
	for _, r := range rules {
		built[r.FlowID] = newServerRule(r, s.clock)
	}
	s.mu.Lock()
	s.rules = built
	s.mu.Unlock()
}

// StartSweeper begins the heartbeat-expiry sweep on tickSpec (a
// robfig/cron schedule spec, e.g. "@every 1s").
func (s *DefaultTokenServer) StartSweeper(tickSpec string) error {
	if _, err := s.sweeper.AddFunc(tickSpec, s.clients.sweep); err != nil {
		return err
	}
	s.sweeper.Start()
	return nil
}

// StopSweeper halts the heartbeat sweep.
func (s *DefaultTokenServer) StopSweeper() { s.sweeper.Stop() }

// Heartbeat registers or refreshes a client's liveness for connected-count
// accounting. Returns a client ID to reuse on subsequent heartbeats.
func (s *DefaultTokenServer) Heartbeat(clientID string) string {
	if clientID == "" {
		clientID = uuid.NewString()
	}
	s.clients.touch(clientID)
	return clientID
}

func (s *DefaultTokenServer) ruleFor(flowID uint64) (*ServerRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[flowID]
	return r, ok
}

// RequestToken implements design §4.9's server-side decision.
func (s *DefaultTokenServer) RequestToken(req Request) Response {
	if req.AcquireCount <= 0 {
		return Response{Status: BadRequest}
	}
	rule, ok := s.ruleFor(req.FlowID)
	if !ok {
		return Response{Status: NoRuleExists}
	}

	if s.globalQPS > 0 {
		globalPass := s.globalMetric.QPS(slidingwindow.MetricPass)
		if globalPass+float64(req.AcquireCount) > s.globalQPS {
			return Response{Status: TooManyRequest}
		}
	}

	threshold := s.effectiveThreshold(rule)
	latestPassQps := rule.metric.QPS(slidingwindow.MetricPass)
	acquire := float64(req.AcquireCount)

	if threshold-latestPassQps-acquire >= 0 {
		rule.metric.Add(slidingwindow.MetricPass, int64(req.AcquireCount))
		s.globalMetric.Add(slidingwindow.MetricPass, int64(req.AcquireCount))
		remaining := int32(threshold - latestPassQps - acquire)
		return Response{Status: OK, Remaining: remaining}
	}

	if req.Prioritized {
		occupied := rule.occupiedMetric.QPS(slidingwindow.MetricOccupiedPass)
		if occupied < s.maxOccupyRatio*threshold {
			rule.occupiedMetric.Add(slidingwindow.MetricOccupiedPass, int64(req.AcquireCount))
			return Response{Status: ShouldWait, WaitInMs: int32(s.occupyBucketMs)}
		}
	}

	rule.metric.Add(slidingwindow.MetricBlock, int64(req.AcquireCount))
	return Response{Status: Blocked}
}

// RequestParamToken applies the same namespace/threshold decision as
// RequestToken; per-value accounting is left to the caller's local
// checker, since the design specifies only the pass/block contract for
// the cluster leg of hot-parameter flow control (design §4.7 "Cluster
// parameter check").
func (s *DefaultTokenServer) RequestParamToken(req Request) Response {
	return s.RequestToken(req)
}

func (s *DefaultTokenServer) effectiveThreshold(rule *ServerRule) float64 {
	switch rule.ThresholdType {
	case AvgLocal:
		return rule.Count * float64(s.clients.count()) * rule.ExceedCount
	default:
		return rule.Count * rule.ExceedCount
	}
}

var _ TokenService = (*DefaultTokenServer)(nil)
