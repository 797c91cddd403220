// README: Mutex-guarded in-memory store honoring the same compare-and-swap
// contract as the PostgreSQL store. Used by tests and DSN-less local runs.
package booking

import (
    "context"
    "sync"
    "time"

    "lustre/internal/types"
)

type MemStore struct {
    mu       sync.Mutex
    bookings map[types.ID]*Booking
    events   []Event
}

func NewMemStore() *MemStore {
    return &MemStore{bookings: make(map[types.ID]*Booking)}
}

func (s *MemStore) Create(_ context.Context, b *Booking) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    cp := cloneBooking(b)
    s.bookings[b.ID] = cp
    return nil
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return nil, ErrNotFound
    }
    return cloneBooking(b), nil
}

func (s *MemStore) ClaimPending(_ context.Context, id, workerID types.ID, now time.Time) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok || b.Status != StatusPending || b.WorkerID != nil {
        return false, nil
    }
    w := workerID
    t := now
    b.Status = StatusAssigned
    b.StatusVersion++
    b.WorkerID = &w
    b.AssignedAt = &t
    b.AcceptedAt = &t
    return true, nil
}

func (s *MemStore) ReleaseClaim(_ context.Context, id, workerID types.ID, version int) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok || b.Status != StatusAssigned || b.StatusVersion != version {
        return false, nil
    }
    if b.WorkerID == nil || *b.WorkerID != workerID {
        return false, nil
    }
    b.Status = StatusPending
    b.StatusVersion++
    b.WorkerID = nil
    b.AssignedAt = nil
    b.AcceptedAt = nil
    return true, nil
}

func (s *MemStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok || b.Status != from || b.StatusVersion != version {
        return false, nil
    }
    now := time.Now()
    b.Status = to
    b.StatusVersion++
    if to == StatusInProgress && b.StartedAt == nil {
        b.StartedAt = &now
    }
    if to == StatusCompleted {
        b.CompletedAt = &now
    }
    return true, nil
}

func (s *MemStore) SetAdjustment(_ context.Context, id types.ID, from Status, version int, proposed int64, reason string, now time.Time) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok || b.Status != from || b.StatusVersion != version {
        return false, nil
    }
    b.Status = StatusPendingApproval
    b.StatusVersion++
    b.Adjustment = &Adjustment{ProposedTotal: proposed, Reason: reason, RequestedAt: now}
    return true, nil
}

func (s *MemStore) CommitAdjustment(_ context.Context, id types.ID, version int, newTotal int64) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok || b.Status != StatusPendingApproval || b.StatusVersion != version {
        return false, nil
    }
    b.Status = StatusInProgress
    b.StatusVersion++
    b.Price.Total = newTotal
    b.Adjustment = nil
    return true, nil
}

func (s *MemStore) Cancel(_ context.Context, id types.ID, from Status, version int, reason string, fee int64) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok || b.Status != from || b.StatusVersion != version {
        return false, nil
    }
    now := time.Now()
    b.Status = StatusCancelled
    b.StatusVersion++
    b.CancelReason = &reason
    b.CancellationFee = fee
    b.CancelledAt = &now
    b.Adjustment = nil
    return true, nil
}

func (s *MemStore) ListByStatus(_ context.Context, st Status) ([]*Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []*Booking
    for _, b := range s.bookings {
        if b.Status == st {
            out = append(out, cloneBooking(b))
        }
    }
    return out, nil
}

func (s *MemStore) HasActiveByCustomer(_ context.Context, customerID types.ID) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, b := range s.bookings {
        if b.CustomerID != nil && *b.CustomerID == customerID && !Terminal(b.Status) {
            return true, nil
        }
    }
    return false, nil
}

func (s *MemStore) AppendEvent(_ context.Context, e *Event) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    e.ID = int64(len(s.events) + 1)
    s.events = append(s.events, *e)
    return nil
}

// Events returns a copy of the audit log for test assertions.
func (s *MemStore) Events() []Event {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]Event, len(s.events))
    copy(out, s.events)
    return out
}

// mutate applies fn to the stored booking under the lock; test helper for
// backdating timestamps.
func (s *MemStore) mutate(id types.ID, fn func(*Booking)) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return false
    }
    fn(b)
    return true
}

func cloneBooking(b *Booking) *Booking {
    cp := *b
    if b.CustomerID != nil {
        v := *b.CustomerID
        cp.CustomerID = &v
    }
    if b.Guest != nil {
        v := *b.Guest
        cp.Guest = &v
    }
    if b.AddOns != nil {
        cp.AddOns = append([]string(nil), b.AddOns...)
    }
    if b.PaymentRef != nil {
        v := *b.PaymentRef
        cp.PaymentRef = &v
    }
    if b.WorkerID != nil {
        v := *b.WorkerID
        cp.WorkerID = &v
    }
    cp.AssignedAt = copyTime(b.AssignedAt)
    cp.AcceptedAt = copyTime(b.AcceptedAt)
    cp.StartedAt = copyTime(b.StartedAt)
    cp.CompletedAt = copyTime(b.CompletedAt)
    cp.CancelledAt = copyTime(b.CancelledAt)
    if b.Adjustment != nil {
        v := *b.Adjustment
        cp.Adjustment = &v
    }
    if b.CancelReason != nil {
        v := *b.CancelReason
        cp.CancelReason = &v
    }
    return &cp
}

func copyTime(t *time.Time) *time.Time {
    if t == nil {
        return nil
    }
    v := *t
    return &v
}
