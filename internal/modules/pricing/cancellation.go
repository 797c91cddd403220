// README: Tiered cancellation fee schedule, driven by configuration.
package pricing

import "time"

// CancellationPolicy maps elapsed-time-since-acceptance to a fixed fee.
// The schedule is a configuration table so operators can retune tiers without
// touching the lifecycle controller.
type CancellationPolicy struct {
    GraceWindow time.Duration // cancellations inside this window are free
    Tier1Window time.Duration // up to and including this elapsed time: Tier1Fee
    Tier1Fee    int64
    Tier2Fee    int64
}

// FeeForElapsed returns the cancellation fee for a booking whose worker
// accepted `elapsed` ago. Boundary semantics: exactly GraceWindow charges
// tier 1, exactly Tier1Window still charges tier 1.
func (p CancellationPolicy) FeeForElapsed(elapsed time.Duration) int64 {
    if elapsed < p.GraceWindow {
        return 0
    }
    if elapsed <= p.Tier1Window {
        return p.Tier1Fee
    }
    return p.Tier2Fee
}

// Fee returns the cancellation fee at `now` for a booking accepted at
// acceptedAt. If no worker ever accepted, the fee is unconditionally zero.
func (p CancellationPolicy) Fee(acceptedAt *time.Time, now time.Time) int64 {
    if acceptedAt == nil {
        return 0
    }
    return p.FeeForElapsed(now.Sub(*acceptedAt))
}
