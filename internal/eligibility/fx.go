package eligibility

import (
	"github.com/smallbiznis/tiffin/internal/eligibility/service"
	"go.uber.org/fx"
)

var Module = fx.Module("eligibility.engine",
	fx.Provide(service.NewFactory),
)
