package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded alerts. It is used
// when no delivery backend is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards alerts with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// Send logs and discards one alert.
func (n *NoOpNotifier) Send(_ context.Context, alert Alert) error {
	n.log.Debug("notification discarded (no backend configured)",
		"product", alert.Product.Name,
		"reason", alert.Reason,
	)
	return nil
}
