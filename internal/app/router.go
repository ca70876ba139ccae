package app

import (
	"github.com/gin-gonic/gin"

	ihttp "github.com/casaluz/incidents-backend/internal/http"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, handlers Handlers) *gin.Engine {
	return ihttp.NewRouter(ihttp.RouterConfig{
		Log:             log,
		IncidentHandler: handlers.Incident,
		HealthHandler:   handlers.Health,
	})
}
