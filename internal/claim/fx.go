package claim

import (
	"github.com/smallbiznis/sanad/internal/claim/repository"
	"github.com/smallbiznis/sanad/internal/claim/service"
	"go.uber.org/fx"
)

var Module = fx.Module("claim.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewPhoneOwnershipVerifier),
	fx.Provide(service.New),
)
