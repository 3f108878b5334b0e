package cluster

import (
	"time"

	"github.com/Resinat/warden/base"
)

// LocalFallback runs the caller's local (in-process) admission check when
// the cluster leg cannot answer authoritatively (design §4.9 step 6:
// "fallback to local control when the cluster request fails or the rule
// does not exist, if fallbackToLocalWhenFail is set").
type LocalFallback func(acquireCount uint32, prioritized bool) *base.TokenResult

// TokenClient is the flow/circuitbreaker-facing side of the cluster
// protocol: it sends Request messages to a TokenService and maps the
// Response back into a base.TokenResult, resolving SHOULD_WAIT by sleeping
// itself (design §4.9: "the client performs the sleep for SHOULD_WAIT").
type TokenClient struct {
	service TokenService
	flowID  uint64

	fallbackToLocalWhenFail bool
	localFallback           LocalFallback
}

// NewTokenClient builds a client bound to one FlowID. fallbackToLocalWhenFail
// and localFallback mirror a ClusterConfig's FallbackToLocalWhenFail: when
// true, any outcome other than OK/Blocked/ShouldWait runs localFallback;
// when false (or localFallback is nil), such an outcome passes the call.
func NewTokenClient(service TokenService, flowID uint64, fallbackToLocalWhenFail bool, localFallback LocalFallback) *TokenClient {
	return &TokenClient{
		service:                 service,
		flowID:                  flowID,
		fallbackToLocalWhenFail: fallbackToLocalWhenFail,
		localFallback:           localFallback,
	}
}

// RequestToken asks the cluster for acquireCount tokens on this client's
// FlowID (design §4.9's client-side outcome mapping).
func (c *TokenClient) RequestToken(acquireCount uint32, prioritized bool) *base.TokenResult {
	req := Request{FlowID: c.flowID, AcquireCount: int32(acquireCount), Prioritized: prioritized}
	return c.resolve(c.service.RequestToken(req), acquireCount, prioritized)
}

// RequestParamToken asks the cluster for acquireCount tokens on this
// client's FlowID, keyed additionally by the hot-parameter value(s)
// (design §4.7 "Cluster parameter check"). It returns the raw Response
// rather than resolving it through c.fallbackToLocalWhenFail/localFallback:
// LocalFallback's signature has no way to carry the parameter value a
// per-value local check needs, so the fallback-or-pass decision for
// ParamFlow rules is made by the caller against its own per-value state
// (hotspot.Rule.FallbackToLocalWhenFail, consulted in hotspot.Slot).
func (c *TokenClient) RequestParamToken(req Request) Response {
	req.FlowID = c.flowID
	return c.service.RequestParamToken(req)
}

func (c *TokenClient) resolve(resp Response, acquireCount uint32, prioritized bool) *base.TokenResult {
	switch resp.Status {
	case OK:
		return base.Pass()
	case ShouldWait:
		waitMs := int64(resp.WaitInMs)
		if waitMs > 0 {
			time.Sleep(time.Duration(waitMs) * time.Millisecond)
		}
		return base.PassAfterOccupy(waitMs)
	case Blocked:
		return base.Blocked(base.NewBlockError(base.BlockTypeFlow, c.flowID))
	default:
		// BadRequest/NoRuleExists/Fail/TooManyRequest: the cluster leg
		// could not admit authoritatively.
		if c.fallbackToLocalWhenFail && c.localFallback != nil {
			return c.localFallback(acquireCount, prioritized)
		}
		return base.Pass()
	}
}
