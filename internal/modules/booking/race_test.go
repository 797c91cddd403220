package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"lustre/internal/modules/assignment"
	"lustre/internal/types"
)

// Many workers race for the same pending booking; the conditional write must
// admit exactly one.
func TestClaim_ConcurrentWorkers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := mustCreate(t, env, createCmd("c1"))

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := env.svc.Claim(ctx, ClaimCommand{
				BookingID: b.ID,
				WorkerID:  types.ID(fmt.Sprintf("w%d", n)),
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, assignment.ErrAlreadyClaimed):
			losses++
		default:
			t.Errorf("unexpected claim error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if losses != workers-1 {
		t.Errorf("losses = %d, want %d", losses, workers-1)
	}

	got, err := env.svc.Get(ctx, b.ID, Caller{Role: "admin"})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusAssigned || got.WorkerID == nil {
		t.Errorf("booking = %+v, want assigned to the single winner", got)
	}
}

// Claims across distinct bookings are independent; every booking ends with
// exactly one winner even under full contention.
func TestClaim_ConcurrentAcrossBookings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const jobs = 8
	const workers = 6
	ids := make([]types.ID, 0, jobs)
	for i := 0; i < jobs; i++ {
		b := mustCreate(t, env, createCmd(types.ID(fmt.Sprintf("c%d", i))))
		ids = append(ids, b.ID)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		for _, id := range ids {
			wg.Add(1)
			go func(worker int, booking types.ID) {
				defer wg.Done()
				_, err := env.svc.Claim(ctx, ClaimCommand{
					BookingID: booking,
					WorkerID:  types.ID(fmt.Sprintf("w%d", worker)),
				})
				if err != nil && !errors.Is(err, assignment.ErrAlreadyClaimed) {
					t.Errorf("claim %s: %v", booking, err)
				}
			}(w, id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		b, err := env.svc.Get(ctx, id, Caller{Role: "admin"})
		if err != nil {
			t.Fatalf("Get(%s) error = %v", id, err)
		}
		if b.Status != StatusAssigned || b.WorkerID == nil {
			t.Errorf("booking %s = %s/%v, want assigned with a worker", id, b.Status, b.WorkerID)
		}
	}

	open, _ := env.pool.List(ctx)
	if len(open) != 0 {
		t.Errorf("pool still lists %v after all claims", open)
	}
}
