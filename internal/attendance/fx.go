package attendance

import (
	"github.com/classbill/classbill/internal/attendance/repository"
	"github.com/classbill/classbill/internal/attendance/service"
	"github.com/classbill/classbill/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("attendance.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) service.Config {
		return service.Config{DefaultHourlyRate: cfg.DefaultHourlyRateCents}
	}),
	fx.Provide(service.NewService),
)
