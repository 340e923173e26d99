package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestDedup(t *testing.T) (*Deduplicator, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	d, err := New("redis://"+mr.Addr(), "")
	if err != nil {
		mr.Close()
		t.Fatalf("New: %v", err)
	}
	return d, mr
}

func TestAlreadySentNewKey(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ctx := context.Background()
	if d.AlreadySent(ctx, "alert:FRAX:supply_change") {
		t.Error("AlreadySent should return false for new key")
	}
}

func TestRecordAndAlreadySent(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ctx := context.Background()
	d.Record(ctx, "alert:DAI:velocity", 0)

	if !d.AlreadySent(ctx, "alert:DAI:velocity") {
		t.Error("AlreadySent should return true after Record")
	}
}

func TestRecordWithTTL(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ctx := context.Background()
	d.Record(ctx, "alert:EURC:depeg", time.Minute)

	if !d.AlreadySent(ctx, "alert:EURC:depeg") {
		t.Fatal("should be sent right after Record")
	}

	mr.FastForward(2 * time.Minute)
	if d.AlreadySent(ctx, "alert:EURC:depeg") {
		t.Error("AlreadySent should return false after TTL elapses")
	}
}

func TestClear(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ctx := context.Background()
	d.Record(ctx, "alert:FRAX:velocity", 0)

	if !d.AlreadySent(ctx, "alert:FRAX:velocity") {
		t.Fatal("should be sent after Record")
	}

	d.Clear(ctx, "alert:FRAX:velocity")
	if d.AlreadySent(ctx, "alert:FRAX:velocity") {
		t.Error("AlreadySent should return false after Clear")
	}
}

func TestClearByPattern(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ctx := context.Background()
	d.Record(ctx, "alert:FRAX:supply_change", 0)
	d.Record(ctx, "alert:FRAX:velocity", 0)
	d.Record(ctx, "alert:DAI:velocity", 0)

	d.ClearByPattern(ctx, "alert:FRAX:*")

	if d.AlreadySent(ctx, "alert:FRAX:supply_change") {
		t.Error("key alert:FRAX:supply_change should be cleared")
	}
	if d.AlreadySent(ctx, "alert:FRAX:velocity") {
		t.Error("key alert:FRAX:velocity should be cleared")
	}
	if !d.AlreadySent(ctx, "alert:DAI:velocity") {
		t.Error("key alert:DAI:velocity should NOT be cleared")
	}
}

func TestAlreadySentFailClosed(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer d.Close()

	// Stop Redis to simulate failure
	mr.Close()

	ctx := context.Background()
	if !d.AlreadySent(ctx, "any:key") {
		t.Error("AlreadySent should return true (fail-closed) when Redis is down")
	}
}
