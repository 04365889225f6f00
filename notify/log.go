package notify

import (
	"context"
	"log/slog"
)

// Log is a Notifier that writes deliveries to a structured logger instead of
// sending them. Useful for local development and demos where no telephony
// credentials are configured.
type Log struct {
	Logger *slog.Logger
}

var _ Notifier = (*Log)(nil)

func (l *Log) SendImmediate(_ context.Context, to, body string) error {
	l.Logger.Info("sms", "to", to, "body", body)
	return nil
}

func (l *Log) SendEscalation(_ context.Context, to, voiceURL string) error {
	l.Logger.Info("voice call", "to", to, "url", voiceURL)
	return nil
}
