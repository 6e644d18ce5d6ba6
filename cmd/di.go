package cmd

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/m-erhardt/check-vcenter/internal/check"
	"github.com/m-erhardt/check-vcenter/internal/config"
)

func initRunner(cfg *config.Config, log *zap.Logger) (*check.Runner, error) {
	var r *check.Runner
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, log),
		check.Module,
		fx.Populate(&r),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return r, nil
}
