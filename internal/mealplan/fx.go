package mealplan

import (
	"github.com/smallbiznis/tiffin/internal/mealplan/repository"
	"github.com/smallbiznis/tiffin/internal/mealplan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mealplan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
