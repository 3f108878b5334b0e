package circuitbreaker

import (
	"github.com/Resinat/warden/internal/timesource"
	"github.com/robfig/cron/v3"
)

// Sweeper periodically resets every tripped rule whose timeWindowSec has
// elapsed, via a single shared cron tick rather than one timer per trip
// (design §9's "small shared timer wheel" hint, resolved in favor of a
// batched sweep for the case where many resources trip in the same
// window).
type Sweeper struct {
	manager *RuleManager
	clock   timesource.Source
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewSweeper builds a Sweeper over manager's rules. Call Start to begin
// ticking and Stop to shut it down; a Sweeper with no Start call never
// resets a tripped rule (callers that don't want reset-timer behavior, e.g.
// tests driving maybeReset manually, can simply not Start it).
func NewSweeper(manager *RuleManager, clock timesource.Source) *Sweeper {
	if clock == nil {
		clock = timesource.Default
	}
	return &Sweeper{manager: manager, clock: clock, cron: cron.New(cron.WithSeconds())}
}

// Start begins sweeping every tickSpec (a robfig/cron schedule spec, e.g.
// "@every 1s").
func (s *Sweeper) Start(tickSpec string) error {
	id, err := s.cron.AddFunc(tickSpec, s.sweep)
	if err != nil {
		return err
	}
	s.entryID = id
	s.cron.Start()
	return nil
}

// Stop halts the sweeper, waiting for any in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	now := s.clock.CurrentTimeMillis()
	for _, r := range s.manager.allRules() {
		r.maybeReset(now)
	}
}
