package warden

import (
	"errors"

	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/node"
)

var (
	// ErrResourceNameEmpty is returned by Entry when the resource carries no
	// name; every node and rule lookup is keyed on it.
	ErrResourceNameEmpty = errors.New("warden: resource name is empty")
	// ErrContextNameEmpty is returned by EnterContext: an unnamed Context
	// cannot be attributed to an EntranceNode.
	ErrContextNameEmpty = errors.New("warden: context name is empty")
	// ErrEntryPairMismatch is returned by Exit when called more than once on
	// the same Entry, or on an Entry that still has an open child Entry —
	// the Entry/Exit pairing that design §3's invocation tree assumes has
	// been violated.
	ErrEntryPairMismatch = errors.New("warden: entry/exit pair mismatch")
)

// Context is one invocation chain: a named origin of calls (an inbound
// request handler, a scheduled job, a CLI command) under which nested
// Entry calls build a call tree for per-Context statistics (design §3's
// "Context", §2's EntranceNode). A Context is not safe for concurrent use
// by multiple goroutines; each logical call path gets its own.
type Context struct {
	rt      *Runtime
	name    string
	origin  string
	current *base.SlotContext
}

// EnterContext starts a new invocation chain named name, attributing every
// Entry nested under it to an EntranceNode keyed on that name. origin tags
// the caller for AuthoritySlot and per-origin statistics; pass "" when the
// caller is unknown or irrelevant.
func (rt *Runtime) EnterContext(name, origin string) (*Context, error) {
	if name == "" {
		return nil, ErrContextNameEmpty
	}
	return &Context{rt: rt, name: name, origin: origin}, nil
}

// Entry is one guarded call in flight: the handle returned by Context.Entry,
// whose Exit must be called exactly once to unwind bookkeeping, typically
// via defer.
type Entry struct {
	ctx    *Context
	sc     *base.SlotContext
	exited bool
}

// Entry runs resource through the slot chain. count is the number of
// permits this call consumes (1 for an ordinary call; higher for a
// pre-batched operation). args feeds ParamFlowSlot's indexed hot-parameter
// extraction (design §4.7) and is otherwise unused.
//
// A nil error means the call may proceed; the returned *Entry must have
// Exit called on it, typically deferred. A non-nil error means the call was
// rejected — inspect it with errors.As for *base.BlockError — and the
// returned *Entry is nil; there is nothing to exit.
func (ctx *Context) Entry(resource base.Resource, count uint32, prioritized bool, args ...any) (*Entry, error) {
	if resource.Name == "" {
		return nil, ErrResourceNameEmpty
	}
	if count == 0 {
		count = 1
	}

	sc := &base.SlotContext{
		Resource:     resource,
		Name:         ctx.name,
		Origin:       ctx.origin,
		CreateTimeMs: ctx.rt.clock.CurrentTimeMillis(),
		Count:        count,
		Prioritized:  prioritized,
		Args:         args,
		Parent:       ctx.current,
	}
	if ctx.current != nil {
		ctx.current.Child = sc
	}
	ctx.current = sc

	result := ctx.rt.chain.Entry(sc)
	if !result.IsPass() {
		ctx.unwind(sc)
		return nil, result.BlockErr
	}
	return &Entry{ctx: ctx, sc: sc}, nil
}

// Exit completes the call, running every slot's OnExit in reverse
// registration order and popping this Entry off its Context's call tree.
// Calling Exit more than once, or out of order with a still-open child
// Entry, returns ErrEntryPairMismatch without re-running OnExit.
func (e *Entry) Exit() error {
	if e.exited {
		return ErrEntryPairMismatch
	}
	if e.sc.Child != nil {
		return ErrEntryPairMismatch
	}
	e.exited = true
	e.ctx.rt.chain.Exit(e.sc)
	e.ctx.unwind(e.sc)
	return nil
}

// TraceEntry records a business error against this Entry's nodes without
// rejecting the call (design §3's traceEntry / §7): the call already
// proceeded, but its outcome is an error the circuit breakers and exception
// counters must see. Call it before Exit; calling it more than once double-
// counts the exception.
func (e *Entry) TraceEntry(err error) {
	if err == nil {
		return
	}
	e.sc.TraceErr = err
	node.RecordException(e.ctx.rt.registry, e.sc)
}

// CurrentNode exposes this Entry's resolved StatNode, for callers that want
// to read live QPS/RT without waiting for an introspection snapshot.
func (e *Entry) CurrentNode() base.StatNode { return e.sc.CurNode }

func (ctx *Context) unwind(sc *base.SlotContext) {
	ctx.current = sc.Parent
	if sc.Parent != nil {
		sc.Parent.Child = nil
	}
}
