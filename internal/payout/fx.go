package payout

import (
	"github.com/skillhut/skillhut/internal/payout/repository"
	"github.com/skillhut/skillhut/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
