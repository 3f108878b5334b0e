package base

import "fmt"

// BlockType identifies which rule checker rejected a call.
type BlockType int

const (
	BlockTypeFlow BlockType = iota
	BlockTypeDegrade
	BlockTypeAuthority
	BlockTypeParamFlow
	BlockTypeSystem
)

func (t BlockType) String() string {
	switch t {
	case BlockTypeFlow:
		return "FlowControl"
	case BlockTypeDegrade:
		return "CircuitBreaking"
	case BlockTypeAuthority:
		return "Authority"
	case BlockTypeParamFlow:
		return "ParamFlow"
	case BlockTypeSystem:
		return "System"
	default:
		return "Unknown"
	}
}

// BlockError is the single rejection type surfaced to callers. It is the
// idiomatic-Go rendering of the design's "typed block condition with
// {kind, ruleRef, triggeredValue}" — an ordinary error value instead of a
// thrown exception hierarchy, matching Go's explicit-error-return idiom.
type BlockError struct {
	Type  BlockType
	Rule  any // the concrete *flow.Rule / *circuitbreaker.Rule / etc. that tripped
	// TriggeredValue holds the hot-parameter value for BlockTypeParamFlow
	// and the rejected origin for BlockTypeAuthority; it is nil for the
	// other block types.
	TriggeredValue any
}

func (e *BlockError) Error() string {
	if e.TriggeredValue != nil {
		return fmt.Sprintf("warden: blocked by %s rule (value=%v)", e.Type, e.TriggeredValue)
	}
	return fmt.Sprintf("warden: blocked by %s rule", e.Type)
}

// NewBlockError builds a BlockError for the given type and triggering rule.
func NewBlockError(t BlockType, rule any) *BlockError {
	return &BlockError{Type: t, Rule: rule}
}

// WithTriggeredValue attaches the value that triggered the block (the
// hot-parameter value, or the origin for an authority block) and returns
// the same error for chaining.
func (e *BlockError) WithTriggeredValue(v any) *BlockError {
	e.TriggeredValue = v
	return e
}
