package flow

import (
	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/timesource"
)

// Controller is the shaping strategy contract (design §4.4:
// "canPass(node, acquireCount, prioritized) -> bool", widened to the
// three-valued TokenResult per the design's REDESIGN FLAGS guidance).
type Controller interface {
	CanPass(clock timesource.Source, node base.StatNode, acquireCount uint32, prioritized bool) *base.TokenResult
}
