// README: PostgreSQL-backed store tests (run with -race and LUSTRE_TEST_DSN set).
package booking

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lustre/internal/types"
)

func TestPGStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	cid := types.ID("c_roundtrip")
	ref := "hold_roundtrip"
	b := &Booking{
		ID:          newID(),
		CustomerID:  &cid,
		ServiceType: "full_detail",
		VehicleMake: "Honda", VehicleModel: "Civic",
		VehicleTier: "sedan",
		AddOns:      []string{"wax_seal", "pet_hair"},
		Condition:   "moderate",
		PaymentRef:  &ref,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	b.Price.Subtotal = 19500
	b.Price.Surcharge = 2925
	b.Price.Tax = 1962
	b.Price.Total = 24387
	b.Price.Currency = "USD"

	if err := store.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := store.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Price != b.Price {
		t.Errorf("price = %+v, want %+v", got.Price, b.Price)
	}
	if len(got.AddOns) != 2 || got.AddOns[0] != "wax_seal" {
		t.Errorf("add_ons = %v", got.AddOns)
	}
	if got.CustomerID == nil || *got.CustomerID != cid {
		t.Errorf("customer = %v, want %s", got.CustomerID, cid)
	}
	if got.PaymentRef == nil || *got.PaymentRef != ref {
		t.Errorf("payment_ref = %v, want %s", got.PaymentRef, ref)
	}

	if _, err := store.Get(ctx, "does_not_exist"); err != ErrNotFound {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPGStore_ClaimRace(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	cid := types.ID("c_race")
	b := &Booking{
		ID: newID(), CustomerID: &cid,
		ServiceType: "exterior_wash",
		VehicleMake: "Honda", VehicleModel: "Civic",
		VehicleTier: "sedan", Condition: "light",
		Status: StatusPending, CreatedAt: time.Now(),
	}
	b.Price.Total = 4500
	b.Price.Subtotal = 4500
	b.Price.Currency = "USD"
	if err := store.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	wins := make(chan types.ID, attempts)
	for i := 0; i < attempts; i++ {
		worker := types.ID(fmt.Sprintf("w%d", i))
		wg.Add(1)
		go func(w types.ID) {
			defer wg.Done()
			ok, err := store.ClaimPending(ctx, b.ID, w, time.Now())
			if err != nil {
				t.Errorf("ClaimPending(%s): %v", w, err)
				return
			}
			if ok {
				wins <- w
			}
		}(worker)
	}
	wg.Wait()
	close(wins)

	var winners []types.ID
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("winners = %v, want exactly 1", winners)
	}

	got, err := store.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusAssigned || got.WorkerID == nil || *got.WorkerID != winners[0] {
		t.Errorf("booking = %s/%v, want assigned to %s", got.Status, got.WorkerID, winners[0])
	}
	if got.AcceptedAt == nil || got.AssignedAt == nil {
		t.Error("claim must stamp assigned_at and accepted_at")
	}
	if got.StatusVersion != 1 {
		t.Errorf("status_version = %d, want 1", got.StatusVersion)
	}
}

func TestPGStore_VersionedWrites(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	cid := types.ID("c_versions")
	b := &Booking{
		ID: newID(), CustomerID: &cid,
		ServiceType: "interior_detail",
		VehicleMake: "Toyota", VehicleModel: "RAV4",
		VehicleTier: "medium", Condition: "light",
		Status: StatusPending, CreatedAt: time.Now(),
	}
	b.Price.Total = 10000
	b.Price.Subtotal = 10000
	b.Price.Currency = "USD"
	if err := store.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if ok, err := store.ClaimPending(ctx, b.ID, "w1", time.Now()); err != nil || !ok {
		t.Fatalf("ClaimPending = %v, %v", ok, err)
	}
	// the pre-claim version is stale now
	if ok, err := store.UpdateStatus(ctx, b.ID, StatusAssigned, StatusInProgress, 0); err != nil || ok {
		t.Fatalf("stale UpdateStatus = %v, %v, want rejection", ok, err)
	}
	if ok, err := store.UpdateStatus(ctx, b.ID, StatusAssigned, StatusInProgress, 1); err != nil || !ok {
		t.Fatalf("UpdateStatus = %v, %v", ok, err)
	}

	if ok, err := store.SetAdjustment(ctx, b.ID, StatusInProgress, 2, 13000, "deep stains", time.Now()); err != nil || !ok {
		t.Fatalf("SetAdjustment = %v, %v", ok, err)
	}
	got, _ := store.Get(ctx, b.ID)
	if got.Adjustment == nil || got.Adjustment.ProposedTotal != 13000 {
		t.Fatalf("adjustment = %+v, want proposed 13000", got.Adjustment)
	}

	if ok, err := store.CommitAdjustment(ctx, b.ID, got.StatusVersion, 13000); err != nil || !ok {
		t.Fatalf("CommitAdjustment = %v, %v", ok, err)
	}
	got, _ = store.Get(ctx, b.ID)
	if got.Status != StatusInProgress || got.Price.Total != 13000 || got.Adjustment != nil {
		t.Errorf("booking = %s total %d adj %+v, want committed", got.Status, got.Price.Total, got.Adjustment)
	}

	if ok, err := store.Cancel(ctx, b.ID, StatusInProgress, got.StatusVersion, "admin_override", 0); err != nil || !ok {
		t.Fatalf("Cancel = %v, %v", ok, err)
	}
	got, _ = store.Get(ctx, b.ID)
	if got.Status != StatusCancelled || got.CancelledAt == nil {
		t.Errorf("booking = %s, want cancelled with timestamp", got.Status)
	}
}

func TestPGStore_EventsAndActiveLookup(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	cid := types.ID("c_active")
	b := &Booking{
		ID: newID(), CustomerID: &cid,
		ServiceType: "exterior_wash",
		VehicleMake: "Honda", VehicleModel: "Civic",
		VehicleTier: "sedan", Condition: "light",
		Status: StatusPending, CreatedAt: time.Now(),
	}
	b.Price.Total = 4500
	b.Price.Subtotal = 4500
	b.Price.Currency = "USD"
	if err := store.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.AppendEvent(ctx, &Event{
		BookingID: b.ID, FromStatus: StatusNone, ToStatus: StatusPending,
		ActorType: "customer", ActorID: &cid, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	active, err := store.HasActiveByCustomer(ctx, cid)
	if err != nil || !active {
		t.Fatalf("HasActiveByCustomer = %v, %v, want true", active, err)
	}
	if ok, _ := store.Cancel(ctx, b.ID, StatusPending, 0, "customer_request", 0); !ok {
		t.Fatal("Cancel rejected")
	}
	if active, _ := store.HasActiveByCustomer(ctx, cid); active {
		t.Error("cancelled booking still reads as active")
	}
}

func setupTestStore(t *testing.T) *PGStore {
	t.Helper()

	dsn := os.Getenv("LUSTRE_TEST_DSN")
	if dsn == "" {
		t.Skip("LUSTRE_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE booking_state_events, bookings"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewPGStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}

	cleaned := stripSQLComments(string(content))
	for _, stmt := range splitSQL(cleaned) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
