package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/skillhut/skillhut/internal/account"
	"github.com/skillhut/skillhut/internal/audit"
	"github.com/skillhut/skillhut/internal/config"
	"github.com/skillhut/skillhut/internal/gateway"
	"github.com/skillhut/skillhut/internal/identity"
	"github.com/skillhut/skillhut/internal/invoice"
	"github.com/skillhut/skillhut/internal/logger"
	"github.com/skillhut/skillhut/internal/metrics"
	"github.com/skillhut/skillhut/internal/migration"
	"github.com/skillhut/skillhut/internal/payout"
	"github.com/skillhut/skillhut/internal/product"
	"github.com/skillhut/skillhut/internal/purchase"
	"github.com/skillhut/skillhut/internal/server"
	"github.com/skillhut/skillhut/internal/subscription"
	"github.com/skillhut/skillhut/internal/transfer"
	"github.com/skillhut/skillhut/internal/webhook"
	"github.com/skillhut/skillhut/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		metrics.Module,

		// Functional domains
		audit.Module,
		identity.Module,
		product.Module,
		gateway.Module,
		transfer.Module,
		purchase.Module,
		subscription.Module,
		invoice.Module,
		account.Module,
		payout.Module,
		webhook.Module,

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
