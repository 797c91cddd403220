package booking

import (
	"context"
	"testing"
	"time"

	"lustre/internal/types"
)

func seedBooking(t *testing.T, s *MemStore, st Status, version int) *Booking {
	t.Helper()
	cid := types.ID("c1")
	b := &Booking{
		ID:            newID(),
		CustomerID:    &cid,
		ServiceType:   "exterior_wash",
		Status:        st,
		StatusVersion: version,
		CreatedAt:     time.Now(),
	}
	if st != StatusPending {
		w := types.ID("w1")
		now := time.Now()
		b.WorkerID = &w
		b.AssignedAt = &now
		b.AcceptedAt = &now
	}
	if err := s.Create(context.Background(), b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return b
}

// The in-memory store must honor the same compare-and-swap contract as the
// PostgreSQL store: a stale version or a mismatched from-status writes nothing.
func TestMemStore_ConditionalWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("claim only from unassigned pending", func(t *testing.T) {
		s := NewMemStore()
		b := seedBooking(t, s, StatusPending, 0)

		ok, err := s.ClaimPending(ctx, b.ID, "w1", time.Now())
		if err != nil || !ok {
			t.Fatalf("first claim = %v, %v", ok, err)
		}
		ok, err = s.ClaimPending(ctx, b.ID, "w2", time.Now())
		if err != nil || ok {
			t.Fatalf("second claim = %v, %v, want rejection", ok, err)
		}
		got, _ := s.Get(ctx, b.ID)
		if *got.WorkerID != "w1" || got.StatusVersion != 1 {
			t.Errorf("booking = %+v, want w1 at version 1", got)
		}
	})

	t.Run("stale version writes nothing", func(t *testing.T) {
		s := NewMemStore()
		b := seedBooking(t, s, StatusAssigned, 3)

		ok, err := s.UpdateStatus(ctx, b.ID, StatusAssigned, StatusInProgress, 2)
		if err != nil || ok {
			t.Fatalf("stale update = %v, %v, want rejection", ok, err)
		}
		ok, err = s.UpdateStatus(ctx, b.ID, StatusAssigned, StatusInProgress, 3)
		if err != nil || !ok {
			t.Fatalf("fresh update = %v, %v", ok, err)
		}
		got, _ := s.Get(ctx, b.ID)
		if got.Status != StatusInProgress || got.StatusVersion != 4 {
			t.Errorf("booking = %s v%d, want in_progress v4", got.Status, got.StatusVersion)
		}
	})

	t.Run("mismatched from-status writes nothing", func(t *testing.T) {
		s := NewMemStore()
		b := seedBooking(t, s, StatusAssigned, 1)

		ok, err := s.Cancel(ctx, b.ID, StatusPending, 1, "customer_request", 0)
		if err != nil || ok {
			t.Fatalf("cancel with wrong from = %v, %v, want rejection", ok, err)
		}
		got, _ := s.Get(ctx, b.ID)
		if got.Status != StatusAssigned {
			t.Errorf("status = %s, want untouched assigned", got.Status)
		}
	})

	t.Run("release only by the holder", func(t *testing.T) {
		s := NewMemStore()
		b := seedBooking(t, s, StatusAssigned, 1)

		ok, err := s.ReleaseClaim(ctx, b.ID, "w2", 1)
		if err != nil || ok {
			t.Fatalf("release by stranger = %v, %v, want rejection", ok, err)
		}
		ok, err = s.ReleaseClaim(ctx, b.ID, "w1", 1)
		if err != nil || !ok {
			t.Fatalf("release by holder = %v, %v", ok, err)
		}
		got, _ := s.Get(ctx, b.ID)
		if got.Status != StatusPending || got.WorkerID != nil || got.AcceptedAt != nil {
			t.Errorf("booking = %+v, want unassigned pending with cleared timestamps", got)
		}
	})

	t.Run("cancel clears pending adjustment", func(t *testing.T) {
		s := NewMemStore()
		b := seedBooking(t, s, StatusInProgress, 2)

		ok, err := s.SetAdjustment(ctx, b.ID, StatusInProgress, 2, 18000, "extra work", time.Now())
		if err != nil || !ok {
			t.Fatalf("SetAdjustment = %v, %v", ok, err)
		}
		ok, err = s.Cancel(ctx, b.ID, StatusPendingApproval, 3, "adjustment_declined", 1500)
		if err != nil || !ok {
			t.Fatalf("Cancel = %v, %v", ok, err)
		}
		got, _ := s.Get(ctx, b.ID)
		if got.Adjustment != nil || got.CancellationFee != 1500 {
			t.Errorf("booking = %+v, want adjustment cleared and fee recorded", got)
		}
	})
}

func TestMemStore_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	b := seedBooking(t, s, StatusPending, 0)

	first, _ := s.Get(ctx, b.ID)
	first.Status = StatusCancelled
	first.AddOns = append(first.AddOns, "wax_seal")

	second, _ := s.Get(ctx, b.ID)
	if second.Status != StatusPending {
		t.Errorf("stored booking mutated through a returned copy")
	}
}

func TestMemStore_HasActiveByCustomer(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	b := seedBooking(t, s, StatusPending, 0)

	active, err := s.HasActiveByCustomer(ctx, "c1")
	if err != nil || !active {
		t.Fatalf("HasActiveByCustomer = %v, %v, want true", active, err)
	}
	if active, _ := s.HasActiveByCustomer(ctx, "c2"); active {
		t.Error("unrelated customer reported active")
	}

	if ok, _ := s.Cancel(ctx, b.ID, StatusPending, 0, "customer_request", 0); !ok {
		t.Fatal("Cancel rejected")
	}
	if active, _ := s.HasActiveByCustomer(ctx, "c1"); active {
		t.Error("terminal booking still counts as active")
	}
}
