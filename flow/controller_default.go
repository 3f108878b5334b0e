package flow

import (
	"time"

	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/timesource"
)

// DefaultController rejects immediately once the selected metric would
// exceed count, except for prioritized QPS requests, which may pre-occupy
// a future bucket's quota and sleep instead (design §4.4 "DefaultController
// (reject)").
type DefaultController struct {
	rule *Rule
}

// NewDefaultController builds a DefaultController for rule.
func NewDefaultController(rule *Rule) *DefaultController {
	return &DefaultController{rule: rule}
}

func (c *DefaultController) current(node base.StatNode) float64 {
	if c.rule.Grade == Thread {
		return float64(node.CurThreadNum())
	}
	return node.PassQPS()
}

func (c *DefaultController) CanPass(clock timesource.Source, node base.StatNode, acquireCount uint32, prioritized bool) *base.TokenResult {
	current := c.current(node)
	if current+float64(acquireCount) <= c.rule.Count {
		return base.Pass()
	}
	if prioritized && c.rule.Grade == QPS {
		now := clock.CurrentTimeMillis()
		waitMs := node.TryOccupyNext(now, acquireCount, c.rule.Count)
		if waitMs < c.rule.occupyTimeoutMs() {
			node.AddOccupiedPass(acquireCount)
			time.Sleep(time.Duration(waitMs) * time.Millisecond)
			return base.PassAfterOccupy(waitMs)
		}
	}
	return base.Blocked(base.NewBlockError(base.BlockTypeFlow, c.rule))
}

var _ Controller = (*DefaultController)(nil)
