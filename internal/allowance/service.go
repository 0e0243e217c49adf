package allowance

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/mandat-pay/mandat_pay/internal/notification"
)

// Service wraps a ledger backend with input validation, default-period
// resolution and event emission. This is the surface consumed by the HTTP
// handlers and by the transfer-execution collaborator.
type Service struct {
	ledger   Ledger
	notifier notification.Notifier
	period   time.Duration
}

// NewService builds an allowance service. defaultPeriod applies when an
// approval omits its validity window; zero falls back to DefaultPeriod.
func NewService(ledger Ledger, notifier notification.Notifier, defaultPeriod time.Duration) *Service {
	if defaultPeriod <= 0 {
		defaultPeriod = DefaultPeriod
	}
	return &Service{ledger: ledger, notifier: notifier, period: defaultPeriod}
}

// ApproveInput captures an owner-initiated approval.
type ApproveInput struct {
	Owner   string
	Spender string
	Amount  *uint256.Int
	Period  time.Duration
}

// SpendInput captures a spender-initiated debit.
type SpendInput struct {
	Owner   string
	Spender string
	Amount  *uint256.Int
}

// AdjustInput captures an owner-initiated relative adjustment.
type AdjustInput struct {
	Owner   string
	Spender string
	Delta   *uint256.Int
	Period  time.Duration
}

// Approve overwrites the allowance for (owner, spender).
func (s *Service) Approve(ctx context.Context, input ApproveInput) (Entry, error) {
	period, err := s.resolvePeriod(input.Period)
	if err != nil {
		return Entry{}, err
	}
	if input.Amount == nil {
		return Entry{}, fmt.Errorf("amount is required")
	}

	entry, err := s.ledger.Approve(ctx, input.Owner, input.Spender, input.Amount, period)
	if err != nil {
		return Entry{}, err
	}
	s.notifyReplace(ctx, entry, true)
	return entry, nil
}

// Spend debits the allowance on behalf of the spender. Unlimited entries are
// left untouched and emit no event.
func (s *Service) Spend(ctx context.Context, input SpendInput) (Entry, error) {
	if input.Amount == nil {
		return Entry{}, fmt.Errorf("amount is required")
	}

	entry, err := s.ledger.Spend(ctx, input.Owner, input.Spender, input.Amount)
	if err != nil {
		return Entry{}, err
	}
	if !entry.IsUnlimited() {
		s.notifyReplace(ctx, entry, false)
	}
	return entry, nil
}

// Increase raises the allowance by delta and re-arms its expiry.
func (s *Service) Increase(ctx context.Context, input AdjustInput) (Entry, error) {
	return s.adjust(ctx, input, false)
}

// Decrease lowers the allowance by delta and re-arms its expiry.
func (s *Service) Decrease(ctx context.Context, input AdjustInput) (Entry, error) {
	return s.adjust(ctx, input, true)
}

func (s *Service) adjust(ctx context.Context, input AdjustInput, negative bool) (Entry, error) {
	period, err := s.resolvePeriod(input.Period)
	if err != nil {
		return Entry{}, err
	}
	if input.Delta == nil {
		return Entry{}, fmt.Errorf("delta is required")
	}

	var entry Entry
	if negative {
		entry, err = s.ledger.Decrease(ctx, input.Owner, input.Spender, input.Delta, period)
	} else {
		entry, err = s.ledger.Increase(ctx, input.Owner, input.Spender, input.Delta, period)
	}
	if err != nil {
		return Entry{}, err
	}
	s.notifyReplace(ctx, entry, true)
	return entry, nil
}

// Amount reads the stored amount for the pair; absent pairs read as zero.
func (s *Service) Amount(ctx context.Context, owner, spender string) (*uint256.Int, error) {
	return s.ledger.Amount(ctx, owner, spender)
}

// Expiry reads the stored expiry for the pair; absent pairs read as the zero time.
func (s *Service) Expiry(ctx context.Context, owner, spender string) (time.Time, error) {
	return s.ledger.Expiry(ctx, owner, spender)
}

// GrantedBy lists the allowances granted by the owner.
func (s *Service) GrantedBy(ctx context.Context, owner string) ([]Entry, error) {
	return s.ledger.GrantedBy(ctx, owner)
}

// GrantedTo lists the allowances granted to the spender.
func (s *Service) GrantedTo(ctx context.Context, spender string) ([]Entry, error) {
	return s.ledger.GrantedTo(ctx, spender)
}

func (s *Service) resolvePeriod(period time.Duration) (time.Duration, error) {
	if period < 0 {
		return 0, fmt.Errorf("period must not be negative")
	}
	if period == 0 {
		return s.period, nil
	}
	return period, nil
}

// notifyReplace emits the approval-changed event and, when the expiry was
// re-armed, the distinct expiry-updated event. Delivery is best effort.
func (s *Service) notifyReplace(ctx context.Context, entry Entry, expiryRearmed bool) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Publish(ctx, notification.Event{
		Kind:    notification.KindApprovalChanged,
		Owner:   entry.Owner,
		Spender: entry.Spender,
		Amount:  entry.Amount.Dec(),
	})
	if expiryRearmed {
		_ = s.notifier.Publish(ctx, notification.Event{
			Kind:      notification.KindExpiryUpdated,
			Owner:     entry.Owner,
			Spender:   entry.Spender,
			Amount:    entry.Amount.Dec(),
			ExpiresAt: entry.ExpiresAt,
		})
	}
}
