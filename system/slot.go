// Package system is the slot-chain placeholder for global system
// protection (design §4.1 item 5: "SystemSlot — optional global protection
// (not specified here)"). The design deliberately leaves this checker's
// rule shape and thresholds unspecified; this package only carries its
// fixed position in the chain and a Rule type whose Enabled field the Slot
// does not read, so a resource owner
// can wire a real global-load check in later without moving every other
// slot's registration order.
package system

import "github.com/Resinat/warden/base"

// Rule is intentionally minimal: Enabled is the only knob the design
// specifies. A future global-load checker would add fields here without
// changing the slot's position in the chain.
type Rule struct {
	Enabled bool
}

// Slot always passes. Wired into the chain at its fixed position so a real
// global-protection check can be dropped in later without reordering the
// rest of the pipeline.
type Slot struct{}

// NewSlot builds the system protection placeholder slot.
func NewSlot() *Slot { return &Slot{} }

func (s *Slot) Name() string { return "SystemSlot" }

func (s *Slot) OnEntry(sc *base.SlotContext) *base.TokenResult { return nil }

func (s *Slot) OnExit(sc *base.SlotContext) {}

var _ base.Slot = (*Slot)(nil)
