package gateway

import (
	"github.com/skillhut/skillhut/internal/config"
	gatewaydomain "github.com/skillhut/skillhut/internal/gateway/domain"
	"github.com/skillhut/skillhut/internal/gateway/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway.client",
	fx.Provide(func(cfg config.Config) gatewaydomain.Client {
		return stripe.NewClient(cfg.GatewayAPIKey)
	}),
)
