package auditpg

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/quickcart/internal/config"
	"github.com/polkiloo/quickcart/internal/domain/repository"
)

// Module wires the audit recorder backed by the dedicated audit database.
var Module = fx.Options(
	fx.Provide(newRecorder),
	fx.Provide(func(r *Recorder) repository.AuditRepository { return r }),
	fx.Invoke(registerLifecycle),
)

type recorderParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newRecorder(p recorderParams) (*Recorder, error) {
	return New(p.Ctx, p.Config.AuditDatabaseURI, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, recorder *Recorder) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			recorder.Close()
			return nil
		},
	})
}
