// README: Booking lifecycle controller; orchestrates state transitions with the
// pricing resolver, payment gateway, assignment coordinator, and store.
package booking

import (
    "context"
    "crypto/rand"
    "encoding/hex"
    "errors"
    "fmt"
    "sort"
    "time"

    "github.com/sirupsen/logrus"

    "lustre/internal/modules/payment"
    "lustre/internal/modules/pricing"
    "lustre/internal/types"
)

var (
    ErrBadRequest            = errors.New("bad request")
    ErrNotFound              = errors.New("booking not found")
    ErrConflict              = errors.New("booking state conflict")
    ErrInvalidState          = errors.New("invalid state transition")
    ErrAlreadyTerminal       = errors.New("booking already terminal")
    ErrActiveBooking         = errors.New("customer has an active booking")
    ErrNotOwner              = errors.New("caller is not the booking owner")
    ErrNotAssignee           = errors.New("caller is not the assigned worker")
    ErrPaymentRequired       = errors.New("payment authorization failed")
    ErrAdjustmentUnsupported = errors.New("adjustment not supported after capture")
)

// Event kinds published to the notification exchange.
const (
    EventBookingCreated   = "booking.created"
    EventBookingCompleted = "booking.completed"
    EventBookingCancelled = "booking.cancelled"
)

// Cancellation reasons recorded on the row.
const (
    reasonCustomerRequest   = "customer_request"
    reasonAdjustmentDecline = "adjustment_declined"
    reasonAdminOverride     = "admin_override"
)

// Pricer computes the authoritative price. Implemented by pricing.Resolver.
type Pricer interface {
    Quote(req pricing.QuoteRequest) (pricing.Breakdown, pricing.Tier, error)
}

// Gateway is the card-payment hold protocol. Implemented by payment.Adapter.
type Gateway interface {
    Authorize(ctx context.Context, amount types.Money, methodToken, ownerRef string) (string, error)
    Capture(ctx context.Context, ref, ownerRef string, amount *int64) error
    Void(ctx context.Context, ref, ownerRef string) error
    AdjustAuthorizedAmount(ctx context.Context, ref, ownerRef string, newAmount int64) error
}

// Coordinator arbitrates worker claims and maintains the open-job pool.
// Implemented by assignment.Service.
type Coordinator interface {
    Claim(ctx context.Context, bookingID, workerID types.ID) error
    OpenJob(ctx context.Context, bookingID types.ID) error
    CloseJob(ctx context.Context, bookingID types.ID) error
    OpenJobs(ctx context.Context) ([]types.ID, error)
}

// Notifier emits fire-and-forget events on create and terminal transitions.
// A publish failure never rolls back a booking transition.
type Notifier interface {
    Publish(ctx context.Context, kind string, b *Booking) error
}

type Deps struct {
    Store        Store
    Gateway      Gateway
    Pricing      Pricer
    Coordinator  Coordinator
    CancelPolicy pricing.CancellationPolicy
    DeclineFee   int64
    Notifier     Notifier
    Log          *logrus.Logger
}

type Service struct {
    store        Store
    gateway      Gateway
    pricing      Pricer
    coord        Coordinator
    cancelPolicy pricing.CancellationPolicy
    declineFee   int64
    notifier     Notifier
    log          *logrus.Logger
}

func NewService(deps Deps) *Service {
    log := deps.Log
    if log == nil {
        log = logrus.New()
    }
    return &Service{
        store:        deps.Store,
        gateway:      deps.Gateway,
        pricing:      deps.Pricing,
        coord:        deps.Coordinator,
        cancelPolicy: deps.CancelPolicy,
        declineFee:   deps.DeclineFee,
        notifier:     deps.Notifier,
        log:          log,
    }
}

// Caller is the authenticated identity issuing an intent.
type Caller struct {
    Role       string // "customer", "worker", "admin"
    ID         types.ID
    GuestEmail string
}

type CreateCommand struct {
    CustomerID         types.ID
    Guest              *GuestContact
    ServiceType        string
    VehicleMake        string
    VehicleModel       string
    RequestedTier      pricing.Tier
    AddOnIDs           []string
    Condition          pricing.Condition
    PaymentMethodToken string
}

type ClaimCommand struct {
    BookingID types.ID
    WorkerID  types.ID
}

type StartCommand struct {
    BookingID types.ID
    WorkerID  types.ID
}

type RequestAdjustmentCommand struct {
    BookingID types.ID
    WorkerID  types.ID
    NewTotal  int64
    Reason    string
}

type ApproveAdjustmentCommand struct {
    BookingID  types.ID
    CustomerID types.ID
    GuestEmail string
}

type DeclineAdjustmentCommand struct {
    BookingID  types.ID
    CustomerID types.ID
    GuestEmail string
}

type CompleteCommand struct {
    BookingID types.ID
    WorkerID  types.ID
}

type CancelCommand struct {
    BookingID  types.ID
    CustomerID types.ID
    GuestEmail string
}

type DeclineAssignmentCommand struct {
    BookingID types.ID
    WorkerID  types.ID
}

type AdminCancelCommand struct {
    BookingID types.ID
    AdminID   types.ID
    Reason    string
}

// Create prices the request, authorizes a hold for the total, and only then
// persists the booking as pending. If authorization fails nothing is
// persisted: payment not charged, booking not created.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Booking, error) {
    if err := validateOwner(cmd.CustomerID, cmd.Guest); err != nil {
        return nil, err
    }
    if cmd.VehicleMake == "" && cmd.VehicleModel == "" {
        return nil, fmt.Errorf("%w: missing vehicle data", ErrBadRequest)
    }
    if cmd.PaymentMethodToken == "" {
        return nil, fmt.Errorf("%w: missing payment method", ErrBadRequest)
    }
    if cmd.CustomerID != "" {
        active, err := s.store.HasActiveByCustomer(ctx, cmd.CustomerID)
        if err != nil {
            return nil, err
        }
        if active {
            return nil, ErrActiveBooking
        }
    }

    quote, tier, err := s.pricing.Quote(pricing.QuoteRequest{
        ServiceType:   cmd.ServiceType,
        VehicleMake:   cmd.VehicleMake,
        VehicleModel:  cmd.VehicleModel,
        RequestedTier: cmd.RequestedTier,
        AddOnIDs:      cmd.AddOnIDs,
        Condition:     cmd.Condition,
    })
    if err != nil {
        return nil, err
    }

    now := time.Now()
    b := &Booking{
        ID:           newID(),
        ServiceType:  cmd.ServiceType,
        VehicleMake:  cmd.VehicleMake,
        VehicleModel: cmd.VehicleModel,
        VehicleTier:  tier,
        AddOns:       cmd.AddOnIDs,
        Condition:    cmd.Condition,
        Price:        quote,
        Status:       StatusPending,
        CreatedAt:    now,
    }
    if cmd.CustomerID != "" {
        id := cmd.CustomerID
        b.CustomerID = &id
    } else {
        g := *cmd.Guest
        b.Guest = &g
    }

    ref, err := s.gateway.Authorize(ctx, types.Money{Amount: quote.Total, Currency: quote.Currency}, cmd.PaymentMethodToken, b.OwnerRef())
    if err != nil {
        if errors.Is(err, payment.ErrUnavailable) {
            return nil, err
        }
        return nil, fmt.Errorf("%w: %w", ErrPaymentRequired, err)
    }
    b.PaymentRef = &ref

    if err := s.store.Create(ctx, b); err != nil {
        // The hold would otherwise dangle until processor expiry.
        if verr := s.gateway.Void(ctx, ref, b.OwnerRef()); verr != nil {
            s.log.WithError(verr).WithField("hold", ref).Error("void after failed insert")
        }
        return nil, err
    }

    if err := s.coord.OpenJob(ctx, b.ID); err != nil {
        s.log.WithError(err).WithField("booking", b.ID).Warn("publish open job")
    }
    s.appendEvent(ctx, b.ID, StatusNone, StatusPending, "customer", b.CustomerID)
    s.publish(ctx, EventBookingCreated, b)
    return b, nil
}

// Claim delegates the race to the coordinator's conditional write. The losing
// side of a concurrent claim observes assignment.ErrAlreadyClaimed.
func (s *Service) Claim(ctx context.Context, cmd ClaimCommand) (*Booking, error) {
    if cmd.WorkerID == "" {
        return nil, fmt.Errorf("%w: missing worker id", ErrBadRequest)
    }
    if _, err := s.store.Get(ctx, cmd.BookingID); err != nil {
        return nil, err
    }
    if err := s.coord.Claim(ctx, cmd.BookingID, cmd.WorkerID); err != nil {
        return nil, err
    }
    w := cmd.WorkerID
    s.appendEvent(ctx, cmd.BookingID, StatusPending, StatusAssigned, "worker", &w)
    return s.store.Get(ctx, cmd.BookingID)
}

// Start moves an assigned booking to in_progress.
func (s *Service) Start(ctx context.Context, cmd StartCommand) (*Booking, error) {
    b, err := s.store.Get(ctx, cmd.BookingID)
    if err != nil {
        return nil, err
    }
    if err := requireAssignee(b, cmd.WorkerID); err != nil {
        return nil, err
    }
    if b.Status != StatusAssigned {
        return nil, stateError(b.Status)
    }
    ok, err := s.store.UpdateStatus(ctx, b.ID, StatusAssigned, StatusInProgress, b.StatusVersion)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrConflict
    }
    s.appendEvent(ctx, b.ID, StatusAssigned, StatusInProgress, "worker", b.WorkerID)
    return s.store.Get(ctx, b.ID)
}

// RequestAdjustment records a proposed new total without touching the payment
// hold; the hold is only mutated on approval.
func (s *Service) RequestAdjustment(ctx context.Context, cmd RequestAdjustmentCommand) (*Booking, error) {
    if cmd.NewTotal <= 0 {
        return nil, fmt.Errorf("%w: proposed total must be positive", ErrBadRequest)
    }
    b, err := s.store.Get(ctx, cmd.BookingID)
    if err != nil {
        return nil, err
    }
    if err := requireAssignee(b, cmd.WorkerID); err != nil {
        return nil, err
    }
    if b.Status != StatusAssigned && b.Status != StatusInProgress {
        return nil, stateError(b.Status)
    }
    ok, err := s.store.SetAdjustment(ctx, b.ID, b.Status, b.StatusVersion, cmd.NewTotal, cmd.Reason, time.Now())
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrConflict
    }
    s.appendEvent(ctx, b.ID, b.Status, StatusPendingApproval, "worker", b.WorkerID)
    return s.store.Get(ctx, b.ID)
}

// ApproveAdjustment re-sizes the hold to the proposed total and commits it to
// the breakdown. If the hold was already captured the processor cannot adjust
// it; that surfaces as ErrAdjustmentUnsupported rather than silently passing.
func (s *Service) ApproveAdjustment(ctx context.Context, cmd ApproveAdjustmentCommand) (*Booking, error) {
    b, err := s.store.Get(ctx, cmd.BookingID)
    if err != nil {
        return nil, err
    }
    if err := requireOwner(b, cmd.CustomerID, cmd.GuestEmail); err != nil {
        return nil, err
    }
    if b.Status != StatusPendingApproval || b.Adjustment == nil {
        return nil, stateError(b.Status)
    }
    if b.PaymentRef == nil {
        return nil, ErrInvalidState
    }
    if err := s.gateway.AdjustAuthorizedAmount(ctx, *b.PaymentRef, b.OwnerRef(), b.Adjustment.ProposedTotal); err != nil {
        if errors.Is(err, payment.ErrAlreadyCaptured) {
            return nil, fmt.Errorf("%w: %w", ErrAdjustmentUnsupported, err)
        }
        return nil, err
    }
    ok, err := s.store.CommitAdjustment(ctx, b.ID, b.StatusVersion, b.Adjustment.ProposedTotal)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrConflict
    }
    s.appendEvent(ctx, b.ID, StatusPendingApproval, StatusInProgress, "customer", b.CustomerID)
    return s.store.Get(ctx, b.ID)
}

// DeclineAdjustment cancels the booking and captures the fixed decline fee;
// the processor releases the remainder of the hold.
func (s *Service) DeclineAdjustment(ctx context.Context, cmd DeclineAdjustmentCommand) (*Booking, error) {
    b, err := s.store.Get(ctx, cmd.BookingID)
    if err != nil {
        return nil, err
    }
    if err := requireOwner(b, cmd.CustomerID, cmd.GuestEmail); err != nil {
        return nil, err
    }
    if b.Status != StatusPendingApproval {
        return nil, stateError(b.Status)
    }
    if b.PaymentRef == nil {
        return nil, ErrInvalidState
    }
    fee := s.declineFee
    if err := s.gateway.Capture(ctx, *b.PaymentRef, b.OwnerRef(), &fee); err != nil {
        return nil, err
    }
    ok, err := s.store.Cancel(ctx, b.ID, StatusPendingApproval, b.StatusVersion, reasonAdjustmentDecline, fee)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrConflict
    }
    s.appendEvent(ctx, b.ID, StatusPendingApproval, StatusCancelled, "customer", b.CustomerID)
    out, err := s.store.Get(ctx, b.ID)
    if err != nil {
        return nil, err
    }
    s.publish(ctx, EventBookingCancelled, out)
    return out, nil
}

// Complete captures the full current total; only after the capture succeeds
// does the booking move to completed. A failed capture leaves it in_progress
// so the caller can retry the same intent.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Booking, error) {
    b, err := s.store.Get(ctx, cmd.BookingID)
    if err != nil {
        return nil, err
    }
    if Terminal(b.Status) {
        return nil, ErrAlreadyTerminal
    }
    if err := requireAssignee(b, cmd.WorkerID); err != nil {
        return nil, err
    }
    if b.Status != StatusInProgress {
        return nil, ErrInvalidState
    }
    if b.PaymentRef == nil {
        return nil, ErrInvalidState
    }
    if err := s.gateway.Capture(ctx, *b.PaymentRef, b.OwnerRef(), nil); err != nil {
        return nil, err
    }
    ok, err := s.store.UpdateStatus(ctx, b.ID, StatusInProgress, StatusCompleted, b.StatusVersion)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrConflict
    }
    s.appendEvent(ctx, b.ID, StatusInProgress, StatusCompleted, "worker", b.WorkerID)
    out, err := s.store.Get(ctx, b.ID)
    if err != nil {
        return nil, err
    }
    s.publish(ctx, EventBookingCompleted, out)
    return out, nil
}

// Cancel applies the tiered cancellation fee schedule. A nonzero fee is
// captured before the status write; the zero-fee void runs after the commit,
// so a booking that loses the status race keeps a live hold.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Booking, error) {
    b, err := s.store.Get(ctx, cmd.BookingID)
    if err != nil {
        return nil, err
    }
    if err := requireOwner(b, cmd.CustomerID, cmd.GuestEmail); err != nil {
        return nil, err
    }
    if Terminal(b.Status) {
        return nil, ErrAlreadyTerminal
    }
    if b.Status != StatusPending && b.Status != StatusAssigned {
        return nil, ErrInvalidState
    }

    fee := s.cancelPolicy.Fee(b.AcceptedAt, time.Now())
    if fee > 0 && b.PaymentRef != nil {
        f := fee
        if err := s.gateway.Capture(ctx, *b.PaymentRef, b.OwnerRef(), &f); err != nil {
            return nil, err
        }
    }

    wasPending := b.Status == StatusPending
    ok, err := s.store.Cancel(ctx, b.ID, b.Status, b.StatusVersion, reasonCustomerRequest, fee)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrConflict
    }
    if fee == 0 && b.PaymentRef != nil {
        // The booking is already cancelled; if the void fails the hold
        // expires on the processor side.
        if err := s.gateway.Void(ctx, *b.PaymentRef, b.OwnerRef()); err != nil {
            s.log.WithError(err).WithField("booking", b.ID).Warn("void hold after cancel")
        }
    }
    if wasPending {
        if err := s.coord.CloseJob(ctx, b.ID); err != nil {
            s.log.WithError(err).WithField("booking", b.ID).Warn("close job in pool")
        }
    }
    s.appendEvent(ctx, b.ID, b.Status, StatusCancelled, "customer", b.CustomerID)
    out, err := s.store.Get(ctx, b.ID)
    if err != nil {
        return nil, err
    }
    s.publish(ctx, EventBookingCancelled, out)
    return out, nil
}

// DeclineAssignment returns an assigned booking to the open pool. No payment
// action; the hold stays in place for the next claimer.
func (s *Service) DeclineAssignment(ctx context.Context, cmd DeclineAssignmentCommand) (*Booking, error) {
    b, err := s.store.Get(ctx, cmd.BookingID)
    if err != nil {
        return nil, err
    }
    if err := requireAssignee(b, cmd.WorkerID); err != nil {
        return nil, err
    }
    if b.Status != StatusAssigned {
        return nil, stateError(b.Status)
    }
    ok, err := s.store.ReleaseClaim(ctx, b.ID, cmd.WorkerID, b.StatusVersion)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrConflict
    }
    if err := s.coord.OpenJob(ctx, b.ID); err != nil {
        s.log.WithError(err).WithField("booking", b.ID).Warn("reopen job in pool")
    }
    s.appendEvent(ctx, b.ID, StatusAssigned, StatusPending, "worker", b.WorkerID)
    return s.store.Get(ctx, b.ID)
}

// AdminCancel is the administrative override: full void, zero fee, any
// non-terminal state.
func (s *Service) AdminCancel(ctx context.Context, cmd AdminCancelCommand) (*Booking, error) {
    b, err := s.store.Get(ctx, cmd.BookingID)
    if err != nil {
        return nil, err
    }
    if Terminal(b.Status) {
        return nil, ErrAlreadyTerminal
    }
    if b.PaymentRef != nil {
        err := s.gateway.Void(ctx, *b.PaymentRef, b.OwnerRef())
        switch {
        case err == nil:
        case errors.Is(err, payment.ErrNotVoidable), errors.Is(err, payment.ErrAlreadyCaptured):
            // Hold already settled out of band; the override still has to land.
            s.log.WithError(err).WithField("booking", b.ID).Warn("hold already settled")
        default:
            return nil, err
        }
    }
    reason := cmd.Reason
    if reason == "" {
        reason = reasonAdminOverride
    }
    wasPending := b.Status == StatusPending
    ok, err := s.store.Cancel(ctx, b.ID, b.Status, b.StatusVersion, reason, 0)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrConflict
    }
    if wasPending {
        if err := s.coord.CloseJob(ctx, b.ID); err != nil {
            s.log.WithError(err).WithField("booking", b.ID).Warn("close job in pool")
        }
    }
    admin := cmd.AdminID
    s.appendEvent(ctx, b.ID, b.Status, StatusCancelled, "admin", &admin)
    out, err := s.store.Get(ctx, b.ID)
    if err != nil {
        return nil, err
    }
    s.publish(ctx, EventBookingCancelled, out)
    return out, nil
}

// Get returns the booking if the caller is the owner, the assignee, an admin,
// or if the booking is still pending and the caller is a worker browsing the
// pool.
func (s *Service) Get(ctx context.Context, id types.ID, caller Caller) (*Booking, error) {
    b, err := s.store.Get(ctx, id)
    if err != nil {
        return nil, err
    }
    switch caller.Role {
    case "admin":
        return b, nil
    case "worker":
        if b.Status == StatusPending {
            return b, nil
        }
        if b.WorkerID != nil && *b.WorkerID == caller.ID {
            return b, nil
        }
        return nil, ErrNotAssignee
    default:
        if err := requireOwner(b, caller.ID, caller.GuestEmail); err != nil {
            return nil, err
        }
        return b, nil
    }
}

// ListOpen returns pending bookings workers can claim, oldest first.
func (s *Service) ListOpen(ctx context.Context) ([]*Booking, error) {
    ids, err := s.coord.OpenJobs(ctx)
    if err != nil {
        return nil, err
    }
    out := make([]*Booking, 0, len(ids))
    for _, id := range ids {
        b, err := s.store.Get(ctx, id)
        if errors.Is(err, ErrNotFound) {
            continue
        }
        if err != nil {
            return nil, err
        }
        if b.Status == StatusPending {
            out = append(out, b)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
    return out, nil
}

// ListByStatus is the admin console listing.
func (s *Service) ListByStatus(ctx context.Context, st Status) ([]*Booking, error) {
    return s.store.ListByStatus(ctx, st)
}

func (s *Service) appendEvent(ctx context.Context, id types.ID, from, to Status, actorType string, actorID *types.ID) {
    _ = s.store.AppendEvent(ctx, &Event{
        BookingID:  id,
        FromStatus: from,
        ToStatus:   to,
        ActorType:  actorType,
        ActorID:    actorID,
        CreatedAt:  time.Now(),
    })
}

func (s *Service) publish(ctx context.Context, kind string, b *Booking) {
    if s.notifier == nil {
        return
    }
    if err := s.notifier.Publish(ctx, kind, b); err != nil {
        s.log.WithError(err).WithFields(logrus.Fields{"event": kind, "booking": b.ID}).Warn("publish event")
    }
}

func validateOwner(customerID types.ID, guest *GuestContact) error {
    if customerID != "" && guest != nil {
        return fmt.Errorf("%w: both customer id and guest contact set", ErrBadRequest)
    }
    if customerID == "" && guest == nil {
        return fmt.Errorf("%w: missing customer id or guest contact", ErrBadRequest)
    }
    if guest != nil && (guest.Name == "" || guest.Email == "" || guest.Phone == "") {
        return fmt.Errorf("%w: incomplete guest contact", ErrBadRequest)
    }
    return nil
}

func requireOwner(b *Booking, customerID types.ID, guestEmail string) error {
    if b.CustomerID != nil {
        if customerID != "" && *b.CustomerID == customerID {
            return nil
        }
        return ErrNotOwner
    }
    if b.Guest != nil && guestEmail != "" && b.Guest.Email == guestEmail {
        return nil
    }
    return ErrNotOwner
}

func requireAssignee(b *Booking, workerID types.ID) error {
    if workerID == "" || b.WorkerID == nil || *b.WorkerID != workerID {
        return ErrNotAssignee
    }
    return nil
}

func stateError(s Status) error {
    if Terminal(s) {
        return ErrAlreadyTerminal
    }
    return ErrInvalidState
}

func newID() types.ID {
    var b [16]byte
    _, _ = rand.Read(b[:])
    return types.ID(hex.EncodeToString(b[:]))
}
