// README: In-memory processor for tests and DSN-less local runs.
package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// minHoldAmount mirrors a typical processor floor (50 minor units).
const minHoldAmount = 50

// MemProcessor implements Processor entirely in memory. It enforces the same
// terminal-state rules as a real processor and never lets captured exceed
// authorized, so tests can assert money invariants against it directly.
type MemProcessor struct {
	mu    sync.Mutex
	holds map[string]*Hold

	// DeclineTokens lists method tokens that are always declined.
	DeclineTokens map[string]bool
	// Unavailable forces every call to fail transiently when set.
	Unavailable bool
}

func NewMemProcessor() *MemProcessor {
	return &MemProcessor{
		holds:         make(map[string]*Hold),
		DeclineTokens: make(map[string]bool),
	}
}

func (p *MemProcessor) CreateHold(_ context.Context, amount int64, currency, methodToken, ownerRef string) (Hold, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Unavailable {
		return Hold{}, ErrUnavailable
	}
	if amount < minHoldAmount {
		return Hold{}, ErrInvalidAmount
	}
	if p.DeclineTokens[methodToken] {
		return Hold{}, ErrDeclined
	}
	h := &Hold{
		Ref:      "hold_" + uuid.NewString(),
		OwnerRef: ownerRef,
		Amount:   amount,
		Currency: currency,
		State:    HoldAuthorized,
	}
	p.holds[h.Ref] = h
	return *h, nil
}

func (p *MemProcessor) GetHold(_ context.Context, ref string) (Hold, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Unavailable {
		return Hold{}, ErrUnavailable
	}
	h, ok := p.holds[ref]
	if !ok {
		return Hold{}, ErrHoldNotFound
	}
	return *h, nil
}

func (p *MemProcessor) CaptureHold(_ context.Context, ref string, amount *int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Unavailable {
		return ErrUnavailable
	}
	h, ok := p.holds[ref]
	if !ok {
		return ErrHoldNotFound
	}
	if h.State != HoldAuthorized {
		return ErrNotCapturable
	}
	capture := h.Amount
	if amount != nil {
		capture = *amount
	}
	if capture <= 0 || capture > h.Amount {
		return ErrInvalidAmount
	}
	// Partial capture releases the remainder; either way the hold is spent.
	h.CapturedAmount = capture
	h.State = HoldCaptured
	return nil
}

func (p *MemProcessor) VoidHold(_ context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Unavailable {
		return ErrUnavailable
	}
	h, ok := p.holds[ref]
	if !ok {
		return ErrHoldNotFound
	}
	if h.State != HoldAuthorized {
		return ErrNotVoidable
	}
	h.State = HoldVoided
	return nil
}

func (p *MemProcessor) UpdateHoldAmount(_ context.Context, ref string, amount int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Unavailable {
		return ErrUnavailable
	}
	h, ok := p.holds[ref]
	if !ok {
		return ErrHoldNotFound
	}
	if h.State != HoldAuthorized {
		return ErrAlreadyCaptured
	}
	if amount < minHoldAmount {
		return ErrInvalidAmount
	}
	h.Amount = amount
	return nil
}

// Snapshot returns a copy of the hold for test assertions.
func (p *MemProcessor) Snapshot(ref string) (Hold, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.holds[ref]
	if !ok {
		return Hold{}, false
	}
	return *h, true
}
