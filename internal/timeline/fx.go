package timeline

import (
	"github.com/smallbiznis/sanad/internal/timeline/repository"
	"github.com/smallbiznis/sanad/internal/timeline/service"
	"go.uber.org/fx"
)

var Module = fx.Module("timeline.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
