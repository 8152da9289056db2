package trial

import (
	"github.com/smallbiznis/tiffin/internal/trial/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("trial.ledger",
	fx.Provide(repository.NewBinder),
)
