package di

import (
	"github.com/polkiloo/quickcart/internal/adapter/pakasir"
	"github.com/polkiloo/quickcart/internal/adapter/session"
	"github.com/polkiloo/quickcart/internal/app"
	"github.com/polkiloo/quickcart/internal/config"
	"github.com/polkiloo/quickcart/internal/logger"
	"github.com/polkiloo/quickcart/internal/notify"
	"github.com/polkiloo/quickcart/internal/pkg/auth"
	"github.com/polkiloo/quickcart/internal/pkg/signature"
	"github.com/polkiloo/quickcart/internal/server/http/handlers"
	"github.com/polkiloo/quickcart/internal/server/http/router"
	"github.com/polkiloo/quickcart/internal/storage/auditpg"
	"github.com/polkiloo/quickcart/internal/storage/postgres"
	"github.com/polkiloo/quickcart/internal/usecase"
	"go.uber.org/fx"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		signature.Module,
		postgres.Module,
		auditpg.Module,
		session.Module,
		pakasir.Module,
		notify.Module,
		usecase.Module,
		fx.Provide(func(facade *app.StoreFacade) handlers.StoreFacade { return facade }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
