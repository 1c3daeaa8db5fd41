package notify

import (
	"context"
	"log/slog"
)

// Notifier is the opaque message channel to buyers and the admin channel.
// The chat transport itself lives outside this service.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, text string) error
	NotifyAdmins(ctx context.Context, text string) error
}

// LogNotifier writes notifications to the structured log. It is the default
// implementation when no chat transport is wired in.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyUser(ctx context.Context, userID int64, text string) error {
	n.logger.Info("user notification", slog.Int64("user_id", userID), slog.String("text", text))
	return nil
}

func (n *LogNotifier) NotifyAdmins(ctx context.Context, text string) error {
	n.logger.Warn("admin notification", slog.String("text", text))
	return nil
}
