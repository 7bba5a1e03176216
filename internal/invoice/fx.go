package invoice

import (
	"github.com/billora/billora/internal/invoice/repository"
	"github.com/billora/billora/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
