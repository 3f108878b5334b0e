package warden

import "github.com/Resinat/warden/base"

// GuardConfig describes one adapter-contract call site (design §6's
// "resource annotation/adapter contract"): enough to resolve a Context and
// Resource, classify errors for tracing, and optionally substitute a
// fallback result instead of surfacing a block.
type GuardConfig struct {
	ContextName string
	Origin      string
	Resource    base.Resource
	Count       uint32
	Prioritized bool
	Args        []any

	// ShouldTrace classifies a business error returned by the guarded
	// callable as trace-worthy (counts toward EXCEPTION and circuit-breaker
	// decisions) or not — the Go rendering of the source's
	// exceptionsToTrace/exceptionsToIgnore class-membership test. nil traces
	// every non-nil error.
	ShouldTrace func(err error) bool
}

// Guard wraps fn with entry/exit bookkeeping and error tracing (design §6):
// Entry runs before fn, Exit runs after, and any error fn returns is traced
// (subject to cfg.ShouldTrace) before being handed back to the caller
// alongside fn's own result. A block is reported through the returned error
// exactly as Context.Entry reports it; callers that want a substituted
// result instead of surfacing the block should check for *base.BlockError
// with errors.As and apply their own fallback.
func Guard[T any](rt *Runtime, cfg GuardConfig, fn func() (T, error)) (T, error) {
	var zero T

	ctx, err := rt.EnterContext(cfg.ContextName, cfg.Origin)
	if err != nil {
		return zero, err
	}

	entry, err := ctx.Entry(cfg.Resource, cfg.Count, cfg.Prioritized, cfg.Args...)
	if err != nil {
		return zero, err
	}
	defer entry.Exit()

	result, callErr := fn()
	if callErr != nil && (cfg.ShouldTrace == nil || cfg.ShouldTrace(callErr)) {
		entry.TraceEntry(callErr)
	}
	return result, callErr
}
