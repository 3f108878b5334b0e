// Command wardendemo wires one resource through a flow rule and a circuit
// breaker and drives it with synthetic calls, the way cmd/resin exercises
// its internal packages end to end at startup.
package main

import (
	"errors"
	"math/rand"
	"time"

	"github.com/Resinat/warden"
	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/circuitbreaker"
	"github.com/Resinat/warden/flow"
	"github.com/Resinat/warden/internal/govlog"
)

func main() {
	rt, err := warden.NewRuntime(warden.Config{})
	if err != nil {
		govlog.Printf("runtime init failed: %v", err)
		return
	}
	defer rt.Close()

	resource := base.Resource{Name: "demo.Checkout", EntryType: base.Inbound}

	if err := rt.Flow.LoadRules([]flow.Rule{{
		Resource: resource,
		Grade:    flow.QPS,
		Count:    5,
	}}); err != nil {
		govlog.Printf("flow.LoadRules: %v", err)
	}
	if err := rt.CircuitBreaker.LoadRules([]circuitbreaker.Rule{{
		Resource:         resource,
		Grade:            circuitbreaker.ExceptionRatio,
		Count:            0.5,
		TimeWindowSec:    10,
		MinRequestAmount: 5,
	}}); err != nil {
		govlog.Printf("circuitbreaker.LoadRules: %v", err)
	}

	ctx, err := rt.EnterContext("demo-worker", "")
	if err != nil {
		govlog.Printf("EnterContext failed: %v", err)
		return
	}

	var passed, blocked int
	for i := 0; i < 200; i++ {
		entry, err := ctx.Entry(resource, 1, false)
		if err != nil {
			blocked++
			var blockErr *base.BlockError
			if errors.As(err, &blockErr) {
				govlog.Printf("call %d blocked: %s", i, blockErr)
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		passed++

		if rand.Float64() < 0.1 {
			entry.TraceEntry(errors.New("simulated downstream failure"))
		}
		entry.Exit()

		time.Sleep(10 * time.Millisecond)
	}

	govlog.Printf("done: %d passed, %d blocked", passed, blocked)
}
