package subscription

import (
	"github.com/skillhut/skillhut/internal/subscription/repository"
	"github.com/skillhut/skillhut/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
