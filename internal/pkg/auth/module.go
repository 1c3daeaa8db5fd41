package auth

import (
	"go.uber.org/fx"

	"github.com/polkiloo/quickcart/internal/config"
)

// Module wires the authorization capability.
var Module = fx.Provide(
	func(cfg *config.Config) Authorizer { return NewStaticAuthorizer(cfg.AdminIDs) },
)
