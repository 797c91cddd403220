// README: Payment gateway adapter: authorize / capture / void / adjust on card holds.
package payment

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"lustre/internal/types"
)

var (
	ErrDeclined          = errors.New("card declined")
	ErrUnavailable       = errors.New("payment processor unavailable")
	ErrInvalidAmount     = errors.New("amount below processor minimum")
	ErrNotCapturable     = errors.New("hold is not capturable")
	ErrNotVoidable       = errors.New("hold is not voidable")
	ErrAlreadyCaptured   = errors.New("hold already captured")
	ErrOwnershipMismatch = errors.New("hold owner mismatch")
	ErrHoldNotFound      = errors.New("hold not found")
)

type HoldState string

const (
	HoldAuthorized HoldState = "authorized"
	HoldCaptured   HoldState = "captured"
	HoldVoided     HoldState = "voided"
	HoldExpired    HoldState = "expired"
)

// Hold is the processor-side view of a funds reservation. The processor is the
// source of truth for hold state; the adapter never caches it.
type Hold struct {
	Ref            string
	OwnerRef       string
	Amount         int64
	Currency       string
	CapturedAmount int64
	State          HoldState
}

// Processor is the external card processor's API surface. Implemented by the
// HTTP client in production and by the in-memory processor in tests/dev.
type Processor interface {
	CreateHold(ctx context.Context, amount int64, currency, methodToken, ownerRef string) (Hold, error)
	GetHold(ctx context.Context, ref string) (Hold, error)
	CaptureHold(ctx context.Context, ref string, amount *int64) error
	VoidHold(ctx context.Context, ref string) error
	UpdateHoldAmount(ctx context.Context, ref string, amount int64) error
}

// Adapter wraps the processor with ownership verification. Every mutating
// operation reads the hold and compares its embedded owner reference against
// the caller's claimed identity before touching the hold, so one party cannot
// manipulate another's hold via a guessed or leaked reference.
type Adapter struct {
	proc Processor
	log  *logrus.Logger
}

func NewAdapter(proc Processor, log *logrus.Logger) *Adapter {
	if log == nil {
		log = logrus.New()
	}
	return &Adapter{proc: proc, log: log}
}

// Authorize places a hold for amount on behalf of ownerRef and returns the
// external hold reference.
func (a *Adapter) Authorize(ctx context.Context, amount types.Money, methodToken, ownerRef string) (string, error) {
	h, err := a.proc.CreateHold(ctx, amount.Amount, amount.Currency, methodToken, ownerRef)
	if err != nil {
		return "", err
	}
	a.log.WithFields(logrus.Fields{"hold": h.Ref, "amount": amount.Amount}).Info("authorization placed")
	return h.Ref, nil
}

// Capture converts the hold into a transfer. A nil amount captures the full
// authorized amount; a lesser amount captures partially and the processor
// releases the remainder.
func (a *Adapter) Capture(ctx context.Context, ref, ownerRef string, amount *int64) error {
	if err := a.verifyOwner(ctx, ref, ownerRef); err != nil {
		return err
	}
	if err := a.proc.CaptureHold(ctx, ref, amount); err != nil {
		return err
	}
	a.log.WithField("hold", ref).Info("hold captured")
	return nil
}

// Void releases the hold with zero capture.
func (a *Adapter) Void(ctx context.Context, ref, ownerRef string) error {
	if err := a.verifyOwner(ctx, ref, ownerRef); err != nil {
		return err
	}
	if err := a.proc.VoidHold(ctx, ref); err != nil {
		return err
	}
	a.log.WithField("hold", ref).Info("hold voided")
	return nil
}

// AdjustAuthorizedAmount re-sizes an uncaptured hold. Once captured the
// processor refuses with ErrAlreadyCaptured; raising a captured amount needs a
// fresh authorization for the delta, which this adapter does not attempt.
func (a *Adapter) AdjustAuthorizedAmount(ctx context.Context, ref, ownerRef string, newAmount int64) error {
	if err := a.verifyOwner(ctx, ref, ownerRef); err != nil {
		return err
	}
	if err := a.proc.UpdateHoldAmount(ctx, ref, newAmount); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"hold": ref, "amount": newAmount}).Info("authorized amount adjusted")
	return nil
}

func (a *Adapter) verifyOwner(ctx context.Context, ref, ownerRef string) error {
	h, err := a.proc.GetHold(ctx, ref)
	if err != nil {
		return err
	}
	if h.OwnerRef != ownerRef {
		a.log.WithFields(logrus.Fields{"hold": ref, "claimed": ownerRef}).Warn("hold ownership mismatch")
		return ErrOwnershipMismatch
	}
	return nil
}
