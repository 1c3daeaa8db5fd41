package notify

import (
	"log/slog"

	"go.uber.org/fx"
)

// Module wires the default log-backed notifier.
var Module = fx.Provide(
	func(logger *slog.Logger) Notifier { return NewLogNotifier(logger) },
)
