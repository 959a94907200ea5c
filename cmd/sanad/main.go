package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/caseai"
	"github.com/smallbiznis/sanad/internal/claim"
	"github.com/smallbiznis/sanad/internal/clock"
	"github.com/smallbiznis/sanad/internal/config"
	"github.com/smallbiznis/sanad/internal/eligibility"
	"github.com/smallbiznis/sanad/internal/events"
	"github.com/smallbiznis/sanad/internal/lock"
	"github.com/smallbiznis/sanad/internal/migration"
	"github.com/smallbiznis/sanad/internal/observability"
	"github.com/smallbiznis/sanad/internal/providers"
	"github.com/smallbiznis/sanad/internal/server"
	"github.com/smallbiznis/sanad/internal/settings"
	"github.com/smallbiznis/sanad/internal/timeline"
	"github.com/smallbiznis/sanad/internal/verification"
	"github.com/smallbiznis/sanad/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		events.Module,
		providers.Module,
		migration.Module,

		// Functional Domains
		eligibility.Module,
		settings.Module,
		timeline.Module,
		claim.Module,
		verification.Module,
		caseai.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
