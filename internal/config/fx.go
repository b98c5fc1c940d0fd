package config

import (
	"github.com/classbill/classbill/pkg/db"
	"go.uber.org/fx"
)

// Module wires application configuration.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		func(cfg Config) db.Config { return cfg.DBConfig() },
	),
)
