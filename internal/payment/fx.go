package payment

import (
	"github.com/billora/billora/internal/payment/checkout"
	"github.com/billora/billora/internal/payment/gateway/paystack"
	"github.com/billora/billora/internal/payment/reconcile"
	"github.com/billora/billora/internal/payment/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(paystack.NewClient),
	fx.Provide(reconcile.NewEngine),
	fx.Provide(checkout.NewService),
)
