package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/casaluz/incidents-backend/internal/http/handlers"
	httpMW "github.com/casaluz/incidents-backend/internal/http/middleware"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	IncidentHandler *httpH.IncidentHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.IncidentHandler != nil {
			api.POST("/incidents", cfg.IncidentHandler.Submit)
			api.POST("/incidents/preview", cfg.IncidentHandler.Preview)
			api.GET("/incidents/:id", cfg.IncidentHandler.Get)
			api.PUT("/incidents/:id/items", cfg.IncidentHandler.ReplaceItems)
			api.DELETE("/incidents/:id", cfg.IncidentHandler.Delete)
		}
	}

	return r
}
