package receipt

import (
	"github.com/billora/billora/internal/receipt/repository"
	"github.com/billora/billora/internal/receipt/service"
	"go.uber.org/fx"
)

var Module = fx.Module("receipt.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewIssuer),
)
