package payment

import (
	"github.com/classbill/classbill/internal/config"
	"github.com/classbill/classbill/internal/payment/repository"
	"github.com/classbill/classbill/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) service.Config {
		return service.Config{ReceiptPrefix: cfg.ReceiptPrefix}
	}),
	fx.Provide(service.NewService),
)
