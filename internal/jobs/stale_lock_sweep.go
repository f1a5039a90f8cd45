// Package jobs holds scheduler.Job implementations that run maintenance
// sweeps over the registered portfolio set. They observe state; none of them
// mutate a portfolio's lock or holdings — recovery from a stuck lock stays an
// operator decision.
package jobs

import (
	"time"

	"github.com/rs/zerolog"
)

// lockInspectable is the narrow shape a registered portfolio must expose for
// the sweep to report on it, without jobs importing the portfolio package
// directly (it already depends on registry.Rebalancer's shape for ID()). It
// is an alias of an interface literal so callers outside this package can
// supply a source returning a slice of the same unnamed interface type.
type lockInspectable = interface {
	ID() string
	LockHeldSince() (time.Duration, bool)
	LockTTL() time.Duration
}

// StaleLockSweep periodically scans every registered portfolio and logs a
// warning for any whose rebalance lock has been held past its TTL. It never
// force-releases a lock.
type StaleLockSweep struct {
	source func() []lockInspectable
	log    zerolog.Logger
}

// NewStaleLockSweep constructs the job. source should return every portfolio
// currently registered, type-asserted to the lock-inspection shape.
func NewStaleLockSweep(source func() []lockInspectable, log zerolog.Logger) *StaleLockSweep {
	return &StaleLockSweep{
		source: source,
		log:    log.With().Str("component", "stale_lock_sweep").Logger(),
	}
}

func (j *StaleLockSweep) Name() string { return "stale_lock_sweep" }

func (j *StaleLockSweep) Run() error {
	for _, p := range j.source() {
		held, locked := p.LockHeldSince()
		if !locked {
			continue
		}
		if held >= p.LockTTL() {
			j.log.Warn().
				Str("portfolio_id", p.ID()).
				Dur("held_for", held).
				Dur("ttl", p.LockTTL()).
				Msg("rebalance lock held past TTL")
		}
	}
	return nil
}
