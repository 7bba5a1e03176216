package audit

import (
	"github.com/billora/billora/internal/audit/repository"
	"github.com/billora/billora/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
