package caseai

import (
	"github.com/smallbiznis/sanad/internal/caseai/repository"
	"github.com/smallbiznis/sanad/internal/caseai/service"
	"go.uber.org/fx"
)

var Module = fx.Module("caseai.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
