package identity

import (
	"github.com/skillhut/skillhut/internal/identity/repository"
	"github.com/skillhut/skillhut/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
