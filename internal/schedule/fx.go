package schedule

import (
	"github.com/smallbiznis/tiffin/internal/schedule/repository"
	"github.com/smallbiznis/tiffin/internal/schedule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("schedule.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
