package plan

import (
	"github.com/classbill/classbill/internal/plan/repository"
	"github.com/classbill/classbill/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
