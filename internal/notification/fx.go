package notification

import (
	"github.com/classbill/classbill/internal/notification/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(repository.ProvideSink),
)
