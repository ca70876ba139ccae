package app

import (
	httpH "github.com/casaluz/incidents-backend/internal/http/handlers"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
)

type Handlers struct {
	Incident *httpH.IncidentHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Incident: httpH.NewIncidentHandler(serviceset.Incident),
		Health:   httpH.NewHealthHandler(),
	}
}
