package transfer

import (
	"github.com/skillhut/skillhut/internal/transfer/repository"
	"github.com/skillhut/skillhut/internal/transfer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transfer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
