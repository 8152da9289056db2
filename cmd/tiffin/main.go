package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tiffin/internal/clock"
	"github.com/smallbiznis/tiffin/internal/config"
	"github.com/smallbiznis/tiffin/internal/migration"
	"github.com/smallbiznis/tiffin/internal/observability"
	"github.com/smallbiznis/tiffin/internal/scheduler"
	"github.com/smallbiznis/tiffin/internal/server"
	"github.com/smallbiznis/tiffin/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		scheduler.Module,

		// HTTP API and the ordering domains behind it
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
