package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/quickcart/internal/adapter/pakasir"
	"github.com/polkiloo/quickcart/internal/config"
	"github.com/polkiloo/quickcart/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newCheckoutUseCase,
	NewSettlementUseCase,
	NewOrderUseCase,
	NewBalanceUseCase,
)

type checkoutParams struct {
	fx.In

	Orders   repository.OrderRepository
	Products repository.ProductRepository
	Gateway  pakasir.Client
	Audit    repository.AuditRepository
	Logger   *slog.Logger
	Config   *config.Config
}

func newCheckoutUseCase(p checkoutParams) *CheckoutUseCase {
	return NewCheckoutUseCase(p.Orders, p.Products, p.Gateway, p.Audit, p.Logger, p.Config.FeeBasisPoints, p.Config.FeeFixed)
}
