package notify

import (
	"go.uber.org/zap"
)

// Notifier delivers out-of-band messages such as password-reset codes.
// Delivery failures are the caller's to log; they are never surfaced to the
// end user.
type Notifier interface {
	Send(to, subject, body string) error
}

// LogNotifier writes messages to the application log instead of sending them.
// It is the default sender in development; an SMTP or SMS implementation can
// be swapped in behind the same interface.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a notifier backed by the given logger
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs the message
func (n *LogNotifier) Send(to, subject, body string) error {
	n.log.Info("Outbound notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
