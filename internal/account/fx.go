package account

import (
	"github.com/skillhut/skillhut/internal/account/repository"
	"github.com/skillhut/skillhut/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
