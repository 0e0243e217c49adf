package allowance

import (
	"time"

	"github.com/holiman/uint256"
)

// DefaultPeriod is the validity window applied when an approval does not name one.
const DefaultPeriod = 30 * 24 * time.Hour

// Unlimited returns the sentinel amount (2^256-1) meaning "no spend limit".
// Unlimited allowances are still subject to expiry.
func Unlimited() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

// Entry is the permission granted by an owner to a spender: up to Amount units
// may be moved on the owner's behalf until ExpiresAt. At most one entry exists
// per (owner, spender) pair. Entries are never deleted; reaching zero or
// passing the expiry leaves them inert until a fresh approval re-arms them.
type Entry struct {
	Owner     string
	Spender   string
	Amount    *uint256.Int
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// IsUnlimited reports whether the entry carries the unlimited sentinel.
func (e Entry) IsUnlimited() bool {
	return e.Amount != nil && e.Amount.Eq(Unlimited())
}

// Active reports whether the entry still permits spending at the given instant.
func (e Entry) Active(now time.Time) bool {
	return !now.After(e.ExpiresAt) && e.Amount != nil && !e.Amount.IsZero()
}
