package business

import (
	"github.com/billora/billora/internal/business/repository"
	"github.com/billora/billora/internal/business/service"
	"go.uber.org/fx"
)

var Module = fx.Module("business.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(service.NewCredentialsProvider),
)
