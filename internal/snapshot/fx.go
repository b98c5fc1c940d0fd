package snapshot

import (
	"github.com/classbill/classbill/internal/snapshot/service"
	"go.uber.org/fx"
)

var Module = fx.Module("snapshot.service",
	fx.Provide(
		service.NewCache,
		service.NewService,
	),
)
