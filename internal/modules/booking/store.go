// README: Booking store contract and the PostgreSQL implementation.
package booking

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"

    "lustre/internal/modules/pricing"
    "lustre/internal/types"
)

// Store is the durable record of bookings. Every status-changing write is
// conditioned on the previously-read status and version (compare-and-swap);
// implementations report ok=false when the row moved underneath the caller.
type Store interface {
    Create(ctx context.Context, b *Booking) error
    Get(ctx context.Context, id types.ID) (*Booking, error)

    // ClaimPending atomically assigns a worker to a still-pending booking and
    // stamps the acceptance time. Exactly one concurrent claimer wins.
    ClaimPending(ctx context.Context, id, workerID types.ID, now time.Time) (bool, error)
    // ReleaseClaim reopens an assigned booking, clearing assignment fields.
    ReleaseClaim(ctx context.Context, id, workerID types.ID, version int) (bool, error)

    UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
    SetAdjustment(ctx context.Context, id types.ID, from Status, version int, proposed int64, reason string, now time.Time) (bool, error)
    CommitAdjustment(ctx context.Context, id types.ID, version int, newTotal int64) (bool, error)
    Cancel(ctx context.Context, id types.ID, from Status, version int, reason string, fee int64) (bool, error)

    ListByStatus(ctx context.Context, st Status) ([]*Booking, error)
    HasActiveByCustomer(ctx context.Context, customerID types.ID) (bool, error)
    AppendEvent(ctx context.Context, e *Event) error
}

const bookingColumns = `
        id, customer_id, guest_name, guest_email, guest_phone,
        service_type, vehicle_make, vehicle_model, vehicle_tier, add_ons, condition,
        subtotal, surcharge, tax, total, currency, payment_ref,
        worker_id, assigned_at, accepted_at,
        status, status_version,
        adj_proposed_total, adj_reason, adj_requested_at,
        cancel_reason, cancellation_fee,
        created_at, started_at, completed_at, cancelled_at`

// PGStore is the production store backed by PostgreSQL.
type PGStore struct {
    db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
    return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, b *Booking) error {
    var guestName, guestEmail, guestPhone *string
    if b.Guest != nil {
        guestName, guestEmail, guestPhone = &b.Guest.Name, &b.Guest.Email, &b.Guest.Phone
    }
    _, err := s.db.Exec(ctx, `
        INSERT INTO bookings (
            id, customer_id, guest_name, guest_email, guest_phone,
            service_type, vehicle_make, vehicle_model, vehicle_tier, add_ons, condition,
            subtotal, surcharge, tax, total, currency, payment_ref,
            status, status_version, created_at
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8, $9, $10, $11,
            $12, $13, $14, $15, $16, $17,
            $18, $19, $20
        )`,
        string(b.ID),
        idPtr(b.CustomerID),
        guestName, guestEmail, guestPhone,
        b.ServiceType, b.VehicleMake, b.VehicleModel, string(b.VehicleTier), b.AddOns, string(b.Condition),
        b.Price.Subtotal, b.Price.Surcharge, b.Price.Tax, b.Price.Total, b.Price.Currency, b.PaymentRef,
        string(b.Status), b.StatusVersion, b.CreatedAt,
    )
    return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
    row := s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
    b, err := scanBooking(row)
    if err != nil {
        return nil, err
    }
    return b, nil
}

func (s *PGStore) ClaimPending(ctx context.Context, id, workerID types.ID, now time.Time) (bool, error) {
    tag, err := s.db.Exec(ctx, `
        UPDATE bookings
        SET status = $1,
            status_version = status_version + 1,
            worker_id = $2,
            assigned_at = $3,
            accepted_at = $3
        WHERE id = $4 AND status = $5 AND worker_id IS NULL`,
        string(StatusAssigned), string(workerID), now, string(id), string(StatusPending),
    )
    if err != nil {
        return false, err
    }
    return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ReleaseClaim(ctx context.Context, id, workerID types.ID, version int) (bool, error) {
    tag, err := s.db.Exec(ctx, `
        UPDATE bookings
        SET status = $1,
            status_version = status_version + 1,
            worker_id = NULL,
            assigned_at = NULL,
            accepted_at = NULL
        WHERE id = $2 AND status = $3 AND worker_id = $4 AND status_version = $5`,
        string(StatusPending), string(id), string(StatusAssigned), string(workerID), version,
    )
    if err != nil {
        return false, err
    }
    return tag.RowsAffected() == 1, nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
    tag, err := s.db.Exec(ctx, `
        UPDATE bookings
        SET status = $1,
            status_version = status_version + 1,
            started_at = CASE WHEN $1 = 'in_progress' AND started_at IS NULL THEN NOW() ELSE started_at END,
            completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
        WHERE id = $2 AND status = $3 AND status_version = $4`,
        string(to), string(id), string(from), version,
    )
    if err != nil {
        return false, err
    }
    return tag.RowsAffected() == 1, nil
}

func (s *PGStore) SetAdjustment(ctx context.Context, id types.ID, from Status, version int, proposed int64, reason string, now time.Time) (bool, error) {
    tag, err := s.db.Exec(ctx, `
        UPDATE bookings
        SET status = $1,
            status_version = status_version + 1,
            adj_proposed_total = $2,
            adj_reason = $3,
            adj_requested_at = $4
        WHERE id = $5 AND status = $6 AND status_version = $7`,
        string(StatusPendingApproval), proposed, reason, now, string(id), string(from), version,
    )
    if err != nil {
        return false, err
    }
    return tag.RowsAffected() == 1, nil
}

func (s *PGStore) CommitAdjustment(ctx context.Context, id types.ID, version int, newTotal int64) (bool, error) {
    tag, err := s.db.Exec(ctx, `
        UPDATE bookings
        SET status = $1,
            status_version = status_version + 1,
            total = $2,
            adj_proposed_total = NULL,
            adj_reason = NULL,
            adj_requested_at = NULL
        WHERE id = $3 AND status = $4 AND status_version = $5`,
        string(StatusInProgress), newTotal, string(id), string(StatusPendingApproval), version,
    )
    if err != nil {
        return false, err
    }
    return tag.RowsAffected() == 1, nil
}

func (s *PGStore) Cancel(ctx context.Context, id types.ID, from Status, version int, reason string, fee int64) (bool, error) {
    tag, err := s.db.Exec(ctx, `
        UPDATE bookings
        SET status = $1,
            status_version = status_version + 1,
            cancel_reason = $2,
            cancellation_fee = $3,
            cancelled_at = NOW(),
            adj_proposed_total = NULL,
            adj_reason = NULL,
            adj_requested_at = NULL
        WHERE id = $4 AND status = $5 AND status_version = $6`,
        string(StatusCancelled), reason, fee, string(id), string(from), version,
    )
    if err != nil {
        return false, err
    }
    return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ListByStatus(ctx context.Context, st Status) ([]*Booking, error) {
    rows, err := s.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status = $1 ORDER BY created_at`, string(st))
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []*Booking
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

func (s *PGStore) HasActiveByCustomer(ctx context.Context, customerID types.ID) (bool, error) {
    row := s.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM bookings
            WHERE customer_id = $1
              AND status IN ('pending','assigned','in_progress','pending_approval')
        )`, string(customerID),
    )
    var exists bool
    if err := row.Scan(&exists); err != nil {
        return false, err
    }
    return exists, nil
}

func (s *PGStore) AppendEvent(ctx context.Context, e *Event) error {
    _, err := s.db.Exec(ctx, `
        INSERT INTO booking_state_events (
            booking_id, from_status, to_status, actor_type, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
        string(e.BookingID), string(e.FromStatus), string(e.ToStatus),
        e.ActorType, idPtr(e.ActorID), e.CreatedAt,
    )
    return err
}

type rowScanner interface {
    Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
    var b Booking
    var customerID, guestName, guestEmail, guestPhone sql.NullString
    var tier, condition string
    var paymentRef, workerID, adjReason, cancelReason sql.NullString
    var assignedAt, acceptedAt, adjRequestedAt, startedAt, completedAt, cancelledAt sql.NullTime
    var adjProposed sql.NullInt64

    err := row.Scan(
        &b.ID, &customerID, &guestName, &guestEmail, &guestPhone,
        &b.ServiceType, &b.VehicleMake, &b.VehicleModel, &tier, &b.AddOns, &condition,
        &b.Price.Subtotal, &b.Price.Surcharge, &b.Price.Tax, &b.Price.Total, &b.Price.Currency, &paymentRef,
        &workerID, &assignedAt, &acceptedAt,
        &b.Status, &b.StatusVersion,
        &adjProposed, &adjReason, &adjRequestedAt,
        &cancelReason, &b.CancellationFee,
        &b.CreatedAt, &startedAt, &completedAt, &cancelledAt,
    )
    if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }

    b.VehicleTier = pricing.Tier(tier)
    b.Condition = pricing.Condition(condition)
    if customerID.Valid {
        id := types.ID(customerID.String)
        b.CustomerID = &id
    }
    if guestEmail.Valid {
        b.Guest = &GuestContact{Name: guestName.String, Email: guestEmail.String, Phone: guestPhone.String}
    }
    if paymentRef.Valid {
        b.PaymentRef = &paymentRef.String
    }
    if workerID.Valid {
        id := types.ID(workerID.String)
        b.WorkerID = &id
    }
    b.AssignedAt = timePtr(assignedAt)
    b.AcceptedAt = timePtr(acceptedAt)
    b.StartedAt = timePtr(startedAt)
    b.CompletedAt = timePtr(completedAt)
    b.CancelledAt = timePtr(cancelledAt)
    if adjProposed.Valid {
        b.Adjustment = &Adjustment{
            ProposedTotal: adjProposed.Int64,
            Reason:        adjReason.String,
        }
        if adjRequestedAt.Valid {
            b.Adjustment.RequestedAt = adjRequestedAt.Time
        }
    }
    if cancelReason.Valid {
        b.CancelReason = &cancelReason.String
    }
    return &b, nil
}

func idPtr(v *types.ID) *string {
    if v == nil {
        return nil
    }
    s := string(*v)
    return &s
}

func timePtr(v sql.NullTime) *time.Time {
    if !v.Valid {
        return nil
    }
    t := v.Time
    return &t
}
