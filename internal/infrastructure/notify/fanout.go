package notify

import (
	"context"
	"errors"

	alertapp "github.com/qcdash/backend/internal/application/alert"
	"go.uber.org/zap"
)

// LogNotifier writes one log line per recipient
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyAlert logs the alert for each recipient
func (n *LogNotifier) NotifyAlert(_ context.Context, a alertapp.AlertResponse, recipients []alertapp.Recipient) error {
	if len(recipients) == 0 {
		n.logger.Warn("Alert has no recipients", zap.String("alert_id", a.ID.String()))
		return nil
	}
	for _, r := range recipients {
		n.logger.Info("Alert notification",
			zap.String("alert_id", a.ID.String()),
			zap.String("type", a.Type),
			zap.String("severity", a.Severity),
			zap.String("recipient", r.Name),
			zap.String("email", r.Email),
			zap.String("role", r.Role),
			zap.String("message", a.Message),
		)
	}
	return nil
}

// Fanout delivers to every notifier and joins their errors
type Fanout []alertapp.Notifier

// NotifyAlert calls each notifier in order; one failing does not stop the others
func (f Fanout) NotifyAlert(ctx context.Context, a alertapp.AlertResponse, recipients []alertapp.Recipient) error {
	var errs []error
	for _, n := range f {
		if err := n.NotifyAlert(ctx, a, recipients); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ alertapp.Notifier = (*LogNotifier)(nil)
	_ alertapp.Notifier = Fanout(nil)
)
