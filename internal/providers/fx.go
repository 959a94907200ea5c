package providers

import (
	"github.com/smallbiznis/sanad/internal/providers/ai"
	"github.com/smallbiznis/sanad/internal/providers/blob"
	"github.com/smallbiznis/sanad/internal/providers/email"
	"github.com/smallbiznis/sanad/internal/providers/flightstatus"
	"github.com/smallbiznis/sanad/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	ai.Module,
	blob.Module,
	email.Module,
	flightstatus.Module,
	pdf.Module,
)
