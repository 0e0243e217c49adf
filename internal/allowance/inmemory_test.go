package allowance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

func TestInMemoryAbsentReadsAsZero(t *testing.T) {
	led := NewInMemory()
	ctx := context.Background()
	owner, spender := uuid.NewString(), uuid.NewString()

	amount, err := led.Amount(ctx, owner, spender)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	if !amount.IsZero() {
		t.Fatalf("expected zero amount, got %s", amount.Dec())
	}

	expiry, err := led.Expiry(ctx, owner, spender)
	if err != nil {
		t.Fatalf("expiry: %v", err)
	}
	if !expiry.IsZero() {
		t.Fatalf("expected zero expiry, got %v", expiry)
	}
}

func TestInMemorySpendSingleClockRead(t *testing.T) {
	led := NewInMemory()
	ctx := context.Background()
	owner, spender := uuid.NewString(), uuid.NewString()

	// A clock that jumps on every read would skew the re-derived window if the
	// operation read it more than once.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reads := 0
	SetClock(led, func() time.Time {
		reads++
		return now.Add(time.Duration(reads) * time.Minute)
	})

	if _, err := led.Approve(ctx, owner, spender, uint256.NewInt(10), time.Hour); err != nil {
		t.Fatalf("approve: %v", err)
	}
	expiryBefore, _ := led.Expiry(ctx, owner, spender)

	if _, err := led.Spend(ctx, owner, spender, uint256.NewInt(1)); err != nil {
		t.Fatalf("spend: %v", err)
	}
	expiryAfter, _ := led.Expiry(ctx, owner, spender)
	if !expiryAfter.Equal(expiryBefore) {
		t.Fatalf("spend skewed expiry from %v to %v", expiryBefore, expiryAfter)
	}
}

func TestInMemoryEntriesAreIsolated(t *testing.T) {
	led := NewInMemory()
	ctx := context.Background()
	owner, spender := uuid.NewString(), uuid.NewString()

	entry, err := led.Approve(ctx, owner, spender, uint256.NewInt(10), time.Hour)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Mutating the returned amount must not reach the stored entry.
	entry.Amount.SetUint64(999)

	amount, _ := led.Amount(ctx, owner, spender)
	if !amount.Eq(uint256.NewInt(10)) {
		t.Fatalf("stored amount aliased by caller, got %s", amount.Dec())
	}
}

func TestInMemoryPairsAreIndependent(t *testing.T) {
	led := NewInMemory()
	ctx := context.Background()
	owner, spenderA, spenderB := uuid.NewString(), uuid.NewString(), uuid.NewString()

	if _, err := led.Approve(ctx, owner, spenderA, uint256.NewInt(10), time.Hour); err != nil {
		t.Fatalf("approve A: %v", err)
	}
	if _, err := led.Approve(ctx, owner, spenderB, uint256.NewInt(20), time.Hour); err != nil {
		t.Fatalf("approve B: %v", err)
	}
	if _, err := led.Spend(ctx, owner, spenderA, uint256.NewInt(10)); err != nil {
		t.Fatalf("spend A: %v", err)
	}

	amountB, _ := led.Amount(ctx, owner, spenderB)
	if !amountB.Eq(uint256.NewInt(20)) {
		t.Fatalf("spend on one pair leaked into another, got %s", amountB.Dec())
	}

	byOwner, err := led.GrantedBy(ctx, owner)
	if err != nil {
		t.Fatalf("granted by: %v", err)
	}
	if len(byOwner) != 2 {
		t.Fatalf("expected 2 entries for owner, got %d", len(byOwner))
	}
}
