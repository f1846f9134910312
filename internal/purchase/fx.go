package purchase

import (
	"github.com/skillhut/skillhut/internal/purchase/repository"
	"github.com/skillhut/skillhut/internal/purchase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
