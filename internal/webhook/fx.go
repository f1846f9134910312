package webhook

import (
	"time"

	"github.com/skillhut/skillhut/internal/config"
	"github.com/skillhut/skillhut/internal/webhook/domain"
	"github.com/skillhut/skillhut/internal/webhook/repository"
	"github.com/skillhut/skillhut/internal/webhook/service"
	"github.com/skillhut/skillhut/internal/webhook/stripe"
	"go.uber.org/fx"
)

func provideVerifier(cfg config.Config) domain.Verifier {
	return stripe.NewVerifier(cfg.WebhookSigningSecret, time.Duration(cfg.WebhookTolerance)*time.Second)
}

func provideDecoder() domain.DecodeFunc {
	return stripe.Decode
}

var Module = fx.Module("webhook.service",
	fx.Provide(provideVerifier),
	fx.Provide(provideDecoder),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
