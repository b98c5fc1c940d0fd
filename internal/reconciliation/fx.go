package reconciliation

import (
	"github.com/classbill/classbill/internal/reconciliation/repository"
	"github.com/classbill/classbill/internal/reconciliation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciliation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
