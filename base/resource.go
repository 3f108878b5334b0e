// Package base defines the contracts shared by every rule package and by
// the slot chain: resource identity, the statistic-node interface, the
// slot pipeline, and the typed block/result values that replace the
// source's exception-based control flow with idiomatic Go error returns.
package base

// TrafficType distinguishes inbound calls (a resource this process serves)
// from outbound calls (a resource this process calls into).
type TrafficType int

const (
	Inbound TrafficType = iota
	Outbound
)

func (t TrafficType) String() string {
	if t == Outbound {
		return "Outbound"
	}
	return "Inbound"
}

// ResourceType classifies what kind of call a resource represents. The
// runtime does not interpret this beyond reporting it; framework adapters
// set it for operator visibility.
type ResourceType int

const (
	ResourceTypeCommon ResourceType = iota
	ResourceTypeWeb
	ResourceTypeRPC
	ResourceTypeAPIGateway
	ResourceTypeDBSQL
	ResourceTypeCache
)

// Resource identifies a guard point. It is globally unique by Name alone;
// EntryType and ResourceType are descriptive metadata carried alongside it.
type Resource struct {
	Name         string
	EntryType    TrafficType
	ResourceType ResourceType
}

// String returns the resource name, since that is what rules and node
// registries key on.
func (r Resource) String() string {
	return r.Name
}
