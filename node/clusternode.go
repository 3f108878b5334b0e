package node

import (
	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/timesource"
	"github.com/puzpuzpuz/xsync/v4"
)

// ClusterNode is the single, process-wide aggregate for one resource name
// (design §3: "one per resource name, process-wide"), plus a per-origin
// breakdown. Every DefaultNode for that resource — one per Context name
// that has entered it — mirrors its writes here.
type ClusterNode struct {
	*StatisticNode

	resourceName string
	clock        timesource.Source
	origins      *xsync.Map[string, *StatisticNode]
}

// NewClusterNode builds the process-wide aggregate node for a resource.
func NewClusterNode(resourceName string, clock timesource.Source) *ClusterNode {
	return &ClusterNode{
		StatisticNode: NewStatisticNode(clock),
		resourceName:  resourceName,
		clock:         clock,
		origins:       xsync.NewMap[string, *StatisticNode](),
	}
}

// ResourceName returns the resource this node aggregates.
func (c *ClusterNode) ResourceName() string { return c.resourceName }

// OriginNode returns (creating if necessary) the StatisticNode tracking
// calls tagged with the given origin under this resource.
func (c *ClusterNode) OriginNode(origin string) *StatisticNode {
	var result *StatisticNode
	c.origins.Compute(origin, func(cur *StatisticNode, loaded bool) (*StatisticNode, xsync.ComputeOp) {
		if loaded {
			result = cur
			return cur, xsync.CancelOp
		}
		result = NewStatisticNode(c.clock)
		return result, xsync.UpdateOp
	})
	return result
}

// RangeOrigins iterates every known origin's node. Returning false from fn
// stops iteration early.
func (c *ClusterNode) RangeOrigins(fn func(origin string, n *StatisticNode) bool) {
	c.origins.Range(fn)
}

// clusterNodeRegistry is the process-wide resource-name -> ClusterNode map
// (design §5: "ClusterNode map... published via single-check-then-double-
// check under a per-map mutex" — xsync.Map.Compute is that primitive,
// lock-light rather than mutex-guarded).
type clusterNodeRegistry struct {
	nodes *xsync.Map[string, *ClusterNode]
	clock timesource.Source
}

func newClusterNodeRegistry(clock timesource.Source) *clusterNodeRegistry {
	return &clusterNodeRegistry{nodes: xsync.NewMap[string, *ClusterNode](), clock: clock}
}

func (r *clusterNodeRegistry) getOrCreate(resourceName string) *ClusterNode {
	var result *ClusterNode
	r.nodes.Compute(resourceName, func(cur *ClusterNode, loaded bool) (*ClusterNode, xsync.ComputeOp) {
		if loaded {
			result = cur
			return cur, xsync.CancelOp
		}
		result = NewClusterNode(resourceName, r.clock)
		return result, xsync.UpdateOp
	})
	return result
}

func (r *clusterNodeRegistry) get(resourceName string) (*ClusterNode, bool) {
	return r.nodes.Load(resourceName)
}

func (r *clusterNodeRegistry) Range(fn func(resourceName string, n *ClusterNode) bool) {
	r.nodes.Range(fn)
}

var _ base.StatNode = (*ClusterNode)(nil)
