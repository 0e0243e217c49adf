package allowance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

var (
	// ErrInvalidParty rejects writes naming the null identity as owner or spender.
	ErrInvalidParty = errors.New("invalid party")

	// ErrExpired rejects a spend attempted after the allowance expiry.
	ErrExpired = errors.New("allowance expired")

	// ErrInsufficientAllowance rejects a spend exceeding the stored amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrUnderflow rejects a decrease exceeding the stored amount.
	ErrUnderflow = errors.New("allowance underflow")

	// ErrOverflow rejects an increase past the maximum representable amount.
	ErrOverflow = errors.New("allowance overflow")
)

// Ledger defines the contract implemented by allowance backends (e.g. Postgres).
// Each operation executes atomically and reads the clock exactly once.
type Ledger interface {
	// Approve unconditionally replaces the entry for (owner, spender) with
	// amount and expiry now+period. Any previously remaining amount or
	// expiry is discarded.
	Approve(ctx context.Context, owner, spender string, amount *uint256.Int, period time.Duration) (Entry, error)

	// Spend debits amount from the entry. The expiry check runs strictly
	// before the amount check. The unlimited sentinel is never deducted and
	// leaves the entry untouched. A finite spend preserves the remaining
	// validity window rather than resetting it.
	Spend(ctx context.Context, owner, spender string, amount *uint256.Int) (Entry, error)

	// Increase adds delta to the stored amount and re-arms the expiry to
	// now+period.
	Increase(ctx context.Context, owner, spender string, delta *uint256.Int, period time.Duration) (Entry, error)

	// Decrease subtracts delta from the stored amount and re-arms the expiry
	// to now+period.
	Decrease(ctx context.Context, owner, spender string, delta *uint256.Int, period time.Duration) (Entry, error)

	// Amount reads the stored amount. Absent entries read as zero.
	Amount(ctx context.Context, owner, spender string) (*uint256.Int, error)

	// Expiry reads the stored expiry. Absent entries read as the zero time.
	Expiry(ctx context.Context, owner, spender string) (time.Time, error)

	// GrantedBy lists the entries granted by the owner.
	GrantedBy(ctx context.Context, owner string) ([]Entry, error)

	// GrantedTo lists the entries granted to the spender.
	GrantedTo(ctx context.Context, spender string) ([]Entry, error)
}

// checkParties rejects the null identity on either side of a write.
func checkParties(owner, spender string) error {
	for _, id := range []string{owner, spender} {
		parsed, err := uuid.Parse(id)
		if err != nil || parsed == uuid.Nil {
			return ErrInvalidParty
		}
	}
	return nil
}

// replaceEntry builds the entry written by every mutating path.
func replaceEntry(owner, spender string, amount *uint256.Int, period time.Duration, now time.Time) Entry {
	return Entry{
		Owner:     owner,
		Spender:   spender,
		Amount:    new(uint256.Int).Set(amount),
		ExpiresAt: now.Add(period),
		UpdatedAt: now,
	}
}

// debit applies the spend transition to the current entry. Absent entries
// carry a zero expiry and therefore fail the expiry check. The returned bool
// reports whether the entry changed and must be persisted.
func debit(cur Entry, amount *uint256.Int, now time.Time) (Entry, bool, error) {
	if now.After(cur.ExpiresAt) {
		return Entry{}, false, ErrExpired
	}
	if cur.IsUnlimited() {
		return cur, false, nil
	}
	stored := cur.Amount
	if stored == nil {
		stored = new(uint256.Int)
	}
	if amount.Gt(stored) {
		return Entry{}, false, ErrInsufficientAllowance
	}
	remaining := new(uint256.Int).Sub(stored, amount)
	// Re-deriving the period from the remaining window keeps ExpiresAt intact
	// because both reads use the same clock value.
	return replaceEntry(cur.Owner, cur.Spender, remaining, cur.ExpiresAt.Sub(now), now), true, nil
}

// adjust applies a relative increase (negative=false) or decrease
// (negative=true) and re-arms the expiry to now+period.
func adjust(cur Entry, delta *uint256.Int, negative bool, period time.Duration, now time.Time) (Entry, error) {
	stored := cur.Amount
	if stored == nil {
		stored = new(uint256.Int)
	}
	next := new(uint256.Int)
	if negative {
		if delta.Gt(stored) {
			return Entry{}, ErrUnderflow
		}
		next.Sub(stored, delta)
	} else {
		if _, overflow := next.AddOverflow(stored, delta); overflow {
			return Entry{}, ErrOverflow
		}
	}
	return replaceEntry(cur.Owner, cur.Spender, next, period, now), nil
}
