package node

import (
	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/timesource"
	"github.com/puzpuzpuz/xsync/v4"
)

// defaultNodeKey identifies one (Context name, resource) pair: the
// granularity at which DefaultNodes are created (design §3).
type defaultNodeKey struct {
	contextName  string
	resourceName string
}

// Registry owns every node family map for one runtime: the process-wide
// ClusterNode-by-resource map, the EntranceNode-by-Context-name map, and
// the DefaultNode-by-(Context, resource) map. A runtime holds exactly one
// Registry; tests construct their own to stay isolated from each other.
type Registry struct {
	clock    timesource.Source
	clusters *clusterNodeRegistry
	entries  *xsync.Map[string, *EntranceNode]
	defaults *xsync.Map[defaultNodeKey, *DefaultNode]

	// inbound is the single process-wide aggregate over every Inbound-typed
	// resource (design §3: "the ENTRY_NODE... global statistics node").
	inbound *StatisticNode
}

// NewRegistry builds an empty Registry against clock. Pass nil for clock to
// use the real wall clock.
func NewRegistry(clock timesource.Source) *Registry {
	if clock == nil {
		clock = timesource.Default
	}
	return &Registry{
		clock:    clock,
		clusters: newClusterNodeRegistry(clock),
		entries:  xsync.NewMap[string, *EntranceNode](),
		defaults: xsync.NewMap[defaultNodeKey, *DefaultNode](),
		inbound:  NewStatisticNode(clock),
	}
}

// InboundNode returns the process-wide aggregate over every Inbound
// resource ever entered through this Registry.
func (reg *Registry) InboundNode() *StatisticNode { return reg.inbound }

// ClusterNode returns (creating if necessary) the process-wide aggregate
// node for a resource name.
func (reg *Registry) ClusterNode(resourceName string) *ClusterNode {
	return reg.clusters.getOrCreate(resourceName)
}

// ClusterStatNode is ClusterNode widened to base.StatNode, for packages
// (flow's RELATE strategy) that only depend on the node contract rather
// than the concrete node package.
func (reg *Registry) ClusterStatNode(resourceName string) base.StatNode {
	return reg.ClusterNode(resourceName)
}

// EntranceNode returns (creating if necessary) the read-only aggregate node
// for a Context name.
func (reg *Registry) EntranceNode(contextName string) *EntranceNode {
	var result *EntranceNode
	reg.entries.Compute(contextName, func(cur *EntranceNode, loaded bool) (*EntranceNode, xsync.ComputeOp) {
		if loaded {
			result = cur
			return cur, xsync.CancelOp
		}
		result = newEntranceNode(contextName)
		return result, xsync.UpdateOp
	})
	return result
}

// DefaultNode returns (creating if necessary) the node tracking calls to
// resource made under the Context named contextName, wiring it to the
// resource's ClusterNode and the owning EntranceNode on first creation.
func (reg *Registry) DefaultNode(contextName string, resource base.Resource) *DefaultNode {
	key := defaultNodeKey{contextName: contextName, resourceName: resource.Name}
	var result *DefaultNode
	reg.defaults.Compute(key, func(cur *DefaultNode, loaded bool) (*DefaultNode, xsync.ComputeOp) {
		if loaded {
			result = cur
			return cur, xsync.CancelOp
		}
		cluster := reg.ClusterNode(resource.Name)
		result = newDefaultNode(resource, cluster, reg.clock)
		reg.EntranceNode(contextName).AddChild(result)
		return result, xsync.UpdateOp
	})
	return result
}

// RangeClusters iterates every known resource's ClusterNode.
func (reg *Registry) RangeClusters(fn func(resourceName string, n *ClusterNode) bool) {
	reg.clusters.Range(fn)
}
