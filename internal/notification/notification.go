package notification

import (
	"context"
	"log/slog"
)

// Event kinds emitted after durable persistence of the matching mutation.
const (
	KindCredited  = "wallet.credited"
	KindCommitted = "reservation.committed"
	KindReleased  = "reservation.released"
)

// Message describes a money-movement event for downstream audit and
// notification consumers. Delivery is at-least-once and always happens
// after the mutation it describes has been durably persisted.
type Message struct {
	Kind        string `json:"kind"`
	AccountID   string `json:"account_id"`
	WalletID    string `json:"wallet_id"`
	ReferenceID string `json:"reference_id,omitempty"`
	Amount      int64  `json:"amount"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger. Used in dev
// mode and as the fallback when no broker is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"account_id", message.AccountID,
		"wallet_id", message.WalletID,
		"reference_id", message.ReferenceID,
		"amount", message.Amount)
	return nil
}
