// README: Booking aggregate, status machine, and audit event definitions.
package booking

import (
    "time"

    "lustre/internal/modules/pricing"
    "lustre/internal/types"
)

type Status string

const (
    StatusNone            Status = "none"
    StatusPending         Status = "pending"
    StatusAssigned        Status = "assigned"
    StatusInProgress      Status = "in_progress"
    StatusPendingApproval Status = "pending_approval"
    StatusCompleted       Status = "completed"
    StatusCancelled       Status = "cancelled"
)

// AllowedTransitions represents the booking state flow (diagram) as code.
// en_route/arrived are customer-facing display refinements of assigned and
// in_progress; they carry no authorization semantics and do not appear here.
var AllowedTransitions = map[Status][]Status{
    StatusPending:         {StatusAssigned, StatusCancelled},
    StatusAssigned:        {StatusInProgress, StatusPendingApproval, StatusPending, StatusCancelled},
    StatusInProgress:      {StatusPendingApproval, StatusCompleted, StatusCancelled},
    StatusPendingApproval: {StatusInProgress, StatusCancelled},
}

func CanTransition(from, to Status) bool {
    next, ok := AllowedTransitions[from]
    if !ok {
        return false
    }
    for _, s := range next {
        if s == to {
            return true
        }
    }
    return false
}

func Terminal(s Status) bool {
    return s == StatusCompleted || s == StatusCancelled
}

// GuestContact identifies an unregistered customer. A booking carries either a
// customer id or a guest bundle, never both.
type GuestContact struct {
    Name  string
    Email string
    Phone string
}

// Adjustment is the mid-job price renegotiation sub-state, present only while
// the booking sits in pending_approval.
type Adjustment struct {
    ProposedTotal int64
    Reason        string
    RequestedAt   time.Time
}

type Booking struct {
    ID         types.ID
    CustomerID *types.ID
    Guest      *GuestContact

    ServiceType  string
    VehicleMake  string
    VehicleModel string
    VehicleTier  pricing.Tier
    AddOns       []string
    Condition    pricing.Condition

    Price      pricing.Breakdown
    PaymentRef *string

    WorkerID   *types.ID
    AssignedAt *time.Time
    // AcceptedAt starts the cancellation-fee clock; distinct from AssignedAt.
    AcceptedAt *time.Time

    Status        Status
    StatusVersion int
    Adjustment    *Adjustment

    CancelReason    *string
    CancellationFee int64

    CreatedAt   time.Time
    StartedAt   *time.Time
    CompletedAt *time.Time
    CancelledAt *time.Time
}

// OwnerRef is the identity string embedded in the payment hold's metadata and
// compared on every hold mutation.
func (b *Booking) OwnerRef() string {
    if b.CustomerID != nil {
        return "customer:" + string(*b.CustomerID)
    }
    if b.Guest != nil {
        return "guest:" + b.Guest.Email
    }
    return ""
}

// Event is one append-only audit row per state transition.
type Event struct {
    ID         int64
    BookingID  types.ID
    FromStatus Status
    ToStatus   Status
    ActorType  string
    ActorID    *types.ID
    CreatedAt  time.Time
}
