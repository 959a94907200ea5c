package verification

import (
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/internal/verification/domain"
	"github.com/smallbiznis/sanad/internal/verification/repository"
	"github.com/smallbiznis/sanad/internal/verification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("verification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) claimdomain.FlightFactsSource { return svc }),
)
