package signature

import (
	"go.uber.org/fx"

	"github.com/polkiloo/quickcart/internal/config"
)

// Module wires the webhook signature validator from configuration.
var Module = fx.Provide(
	func(cfg *config.Config) *Validator {
		return New(cfg.WebhookSecret)
	},
)
