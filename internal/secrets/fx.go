package secrets

import (
	"github.com/billora/billora/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("secrets",
	fx.Provide(func(cfg config.Config) *Box {
		return NewBox(cfg.GatewaySecretEncryptionKey)
	}),
)
