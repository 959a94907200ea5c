package settings

import (
	"github.com/smallbiznis/sanad/internal/eligibility"
	"github.com/smallbiznis/sanad/internal/settings/domain"
	"github.com/smallbiznis/sanad/internal/settings/repository"
	"github.com/smallbiznis/sanad/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) eligibility.RateSource { return svc }),
)
