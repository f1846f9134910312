package audit

import (
	"github.com/skillhut/skillhut/internal/audit/repository"
	"github.com/skillhut/skillhut/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
