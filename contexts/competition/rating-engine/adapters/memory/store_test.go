package memory

import (
	"context"
	"testing"
	"time"

	"tandem/contexts/competition/rating-engine/domain/entities"
)

func TestLeaseIsExclusiveUntilExpiry(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	ok, err := store.AcquireLease(ctx, "EU", "first", time.Minute, now)
	if err != nil || !ok {
		t.Fatalf("expected first lease, got %v %v", ok, err)
	}
	ok, _ = store.AcquireLease(ctx, "EU", "second", time.Minute, now.Add(30*time.Second))
	if ok {
		t.Fatalf("expected second owner to be refused while lease is live")
	}
	ok, _ = store.AcquireLease(ctx, "US", "second", time.Minute, now)
	if !ok {
		t.Fatalf("expected leases to be per region")
	}
	ok, _ = store.AcquireLease(ctx, "EU", "second", time.Minute, now.Add(2*time.Minute))
	if !ok {
		t.Fatalf("expected expired lease to be taken over")
	}

	if err := store.ReleaseLease(ctx, "EU", "first"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, _ = store.AcquireLease(ctx, "EU", "third", time.Minute, now.Add(2*time.Minute))
	if ok {
		t.Fatalf("expected a stale owner's release to leave the new lease in place")
	}
}

func TestRenewLeaseOnlyForCurrentOwner(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	if ok, _ := store.RenewLease(ctx, "EU", "first", time.Minute, now); ok {
		t.Fatalf("expected renewing a missing lease to fail")
	}
	_, _ = store.AcquireLease(ctx, "EU", "first", time.Minute, now)
	if ok, _ := store.RenewLease(ctx, "EU", "first", time.Minute, now.Add(50*time.Second)); !ok {
		t.Fatalf("expected the owner to renew")
	}
	if ok, _ := store.AcquireLease(ctx, "EU", "second", time.Minute, now.Add(90*time.Second)); ok {
		t.Fatalf("expected a renewed lease to stay exclusive")
	}
	if ok, _ := store.AcquireLease(ctx, "EU", "second", time.Minute, now.Add(3*time.Minute)); !ok {
		t.Fatalf("expected the lapsed lease to be taken over")
	}
	if ok, _ := store.RenewLease(ctx, "EU", "first", time.Minute, now.Add(3*time.Minute)); ok {
		t.Fatalf("expected the previous owner's renewal to fail")
	}
}

func TestResetRegionKeepsPermanentRatings(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_ = store.WriteDriverRatings(ctx, "EU", []entities.DriverRating{{DriverID: "a", Region: "EU", Rating: 1010}})
	_ = store.SaveStep(ctx,
		[]entities.RunningRating{{DriverID: "a", Region: "EU", Value: 1032}},
		[]entities.RatingHistory{{HistoryID: "h1", DriverID: "a", Region: "EU", After: 1032}},
	)
	if err := store.ResetRegion(ctx, "EU"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if got := store.RunningRatings("EU"); len(got) != 0 {
		t.Fatalf("expected running ratings cleared, got %d", len(got))
	}
	history, _ := store.ListHistory(ctx, "EU", "")
	if len(history) != 0 {
		t.Fatalf("expected history cleared, got %d", len(history))
	}
	ratings, _ := store.ListDriverRatings(ctx, "EU")
	if len(ratings) != 1 || ratings[0].Rating != 1010 {
		t.Fatalf("expected permanent rating untouched, got %+v", ratings)
	}
}
