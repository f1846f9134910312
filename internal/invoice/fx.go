package invoice

import (
	"github.com/skillhut/skillhut/internal/invoice/repository"
	"github.com/skillhut/skillhut/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
