package cluster

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/Resinat/warden/internal/timesource"
)

// clientRegistry tracks which clients have sent a heartbeat recently, for
// connectedClientCount(ruleId) in AVG_LOCAL threshold scaling (design
// §4.9 step 3). Expiry is swept periodically rather than checked per
// heartbeat, via DefaultTokenServer's cron tick.
type clientRegistry struct {
	timeoutMs int64
	clock     timesource.Source

	lastSeenMs *xsync.Map[string, int64]
}

func newClientRegistry(timeoutMs int64, clock timesource.Source) *clientRegistry {
	return &clientRegistry{timeoutMs: timeoutMs, clock: clock, lastSeenMs: xsync.NewMap[string, int64]()}
}

func (r *clientRegistry) touch(clientID string) {
	r.lastSeenMs.Store(clientID, r.clock.CurrentTimeMillis())
}

func (r *clientRegistry) count() int {
	return r.lastSeenMs.Size()
}

func (r *clientRegistry) sweep() {
	now := r.clock.CurrentTimeMillis()
	r.lastSeenMs.Range(func(id string, last int64) bool {
		if now-last > r.timeoutMs {
			r.lastSeenMs.Delete(id)
		}
		return true
	})
}
