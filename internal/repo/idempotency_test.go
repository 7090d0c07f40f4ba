package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-documind-backend/internal/domain"
)

func TestGetIdempotency_BlankScopeOrKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	if rec, err := GetIdempotency(context.Background(), db, "   ", "k1", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for empty scope, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "assist:1", "", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for empty key, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID:        "expired",
		Scope:     "assist:1",
		Key:       "k1",
		Status:    201,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	rec, err := GetIdempotency(context.Background(), db, "assist:1", "k1", now)
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}

	rec2, err2 := GetIdempotency(context.Background(), db, "assist:1", "missing", now)
	if rec2 != nil || err2 != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec2, err2)
	}
}

func TestCreateIdempotency_SuccessGetAndDuplicate(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	ttl := 90 * time.Minute
	start := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "assist:9", "k9", 77, 201, ttl)
	if err != nil {
		t.Fatalf("CreateIdempotency error: %v", err)
	}
	if rec.ID == "" || rec.Scope != "assist:9" || rec.Key != "k9" || rec.ResourceID != 77 || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	// Loose bound to avoid timing flakes.
	if !(rec.ExpiresAt.After(start) && rec.ExpiresAt.Before(start.Add(2*time.Hour))) {
		t.Fatalf("unexpected ExpiresAt: %v", rec.ExpiresAt)
	}

	got, err := GetIdempotency(ctx, db, "assist:9", "k9", time.Now().UTC())
	if err != nil || got.ResourceID != 77 {
		t.Fatalf("GetIdempotency: %+v err=%v", got, err)
	}

	if _, err := CreateIdempotency(ctx, db, "assist:9", "k9", 78, 201, ttl); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// Same key under a different scope is independent.
	if _, err := CreateIdempotency(ctx, db, "assist:10", "k9", 79, 201, ttl); err != nil {
		t.Fatalf("different scope should succeed: %v", err)
	}
}

func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newTestDB(t) // intentionally NOT migrating
	_, err := CreateIdempotency(context.Background(), db, "sX", "kX", 1, 200, time.Minute)
	if err == nil {
		t.Fatalf("expected error when table is missing")
	}
	if err == ErrDuplicate {
		t.Fatalf("expected non-duplicate error, got ErrDuplicate")
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()
	for i, exp := range []time.Time{now.Add(-time.Minute), now.Add(-time.Second), now.Add(time.Hour)} {
		rec := &domain.Idempotency{ID: string(rune('a' + i)), Scope: "s", Key: string(rune('a' + i)), Status: 201, ExpiresAt: exp}
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	n, err := PurgeExpiredIdempotency(context.Background(), db, now)
	if err != nil || n != 2 {
		t.Fatalf("PurgeExpiredIdempotency = %d, %v", n, err)
	}
}
