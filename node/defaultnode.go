package node

import (
	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/timesource"
	"github.com/puzpuzpuz/xsync/v4"
)

// DefaultNode is the per-resource-per-Context node (design §3): every
// Context name that enters a resource gets its own DefaultNode, and every
// write to it mirrors to the resource's single process-wide ClusterNode.
type DefaultNode struct {
	*StatisticNode

	resource base.Resource
	cluster  *ClusterNode
	children *xsync.Map[*DefaultNode, struct{}]
}

func newDefaultNode(resource base.Resource, cluster *ClusterNode, clock timesource.Source) *DefaultNode {
	return &DefaultNode{
		StatisticNode: NewStatisticNode(clock),
		resource:      resource,
		cluster:       cluster,
		children:      xsync.NewMap[*DefaultNode, struct{}](),
	}
}

// Resource returns the resource this node tracks.
func (d *DefaultNode) Resource() base.Resource { return d.resource }

// ClusterNode returns the process-wide aggregate this node mirrors into.
func (d *DefaultNode) ClusterNode() *ClusterNode { return d.cluster }

// AddChild records child as invoked from within this node's call (building
// the per-chain invocation tree described in design §4.1 item 1).
func (d *DefaultNode) AddChild(child *DefaultNode) {
	d.children.Store(child, struct{}{})
}

// Children returns the direct children recorded via AddChild.
func (d *DefaultNode) Children() []*DefaultNode {
	out := make([]*DefaultNode, 0, d.children.Size())
	d.children.Range(func(c *DefaultNode, _ struct{}) bool {
		out = append(out, c)
		return true
	})
	return out
}

// Every write below mirrors to the ClusterNode, per design §3: "Every write
// to a DefaultNode is mirrored to its ClusterNode."

func (d *DefaultNode) AddPass(count uint32) {
	d.StatisticNode.AddPass(count)
	d.cluster.AddPass(count)
}

func (d *DefaultNode) AddBlock(count uint32) {
	d.StatisticNode.AddBlock(count)
	d.cluster.AddBlock(count)
}

func (d *DefaultNode) AddException(count uint32) {
	d.StatisticNode.AddException(count)
	d.cluster.AddException(count)
}

func (d *DefaultNode) AddRTAndSuccess(rt uint64, count uint32) {
	d.StatisticNode.AddRTAndSuccess(rt, count)
	d.cluster.AddRTAndSuccess(rt, count)
}

func (d *DefaultNode) AddOccupiedPass(count uint32) {
	d.StatisticNode.AddOccupiedPass(count)
	d.cluster.AddOccupiedPass(count)
}

func (d *DefaultNode) IncreaseThreadNum() {
	d.StatisticNode.IncreaseThreadNum()
	d.cluster.IncreaseThreadNum()
}

func (d *DefaultNode) DecreaseThreadNum() {
	d.StatisticNode.DecreaseThreadNum()
	d.cluster.DecreaseThreadNum()
}

var _ base.StatNode = (*DefaultNode)(nil)
