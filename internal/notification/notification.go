package notification

import (
	"context"
	"log/slog"
	"time"
)

const (
	// KindApprovalChanged is emitted on every replace-path mutation and
	// carries plain (owner, spender, amount) semantics.
	KindApprovalChanged = "allowance.approval_changed"
	// KindExpiryUpdated is emitted whenever an approval's expiry is re-armed.
	// Kept distinct so observers tracking amounts alone are unaffected by the
	// expiration dimension.
	KindExpiryUpdated = "allowance.expiry_updated"
)

// Event describes an observable allowance change.
type Event struct {
	Kind      string    `json:"kind"`
	Owner     string    `json:"owner"`
	Spender   string    `json:"spender"`
	Amount    string    `json:"amount"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Notifier delivers allowance events to downstream observers and indexers.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// LoggerNotifier writes events to the structured logger. Used in development
// mode and as a fallback when no broker is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Publish writes the event to the structured logger.
func (n *LoggerNotifier) Publish(_ context.Context, event Event) error {
	if n == nil || n.logger == nil {
		return nil
	}
	attrs := []any{
		slog.String("kind", event.Kind),
		slog.String("owner", event.Owner),
		slog.String("spender", event.Spender),
		slog.String("amount", event.Amount),
	}
	if event.Kind == KindExpiryUpdated {
		attrs = append(attrs, slog.Time("expires_at", event.ExpiresAt))
	}
	n.logger.Info("allowance event", attrs...)
	return nil
}
