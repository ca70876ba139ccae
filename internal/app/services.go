package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/casaluz/incidents-backend/internal/platform/imagefetch"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
	"github.com/casaluz/incidents-backend/internal/platform/sendgrid"
	"github.com/casaluz/incidents-backend/internal/report"
	"github.com/casaluz/incidents-backend/internal/services"
)

type Services struct {
	Renderer     *report.Renderer
	Notification services.NotificationService
	Incident     services.IncidentService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	mailer, err := sendgrid.New(log, sendgrid.ConfigFromEnv())
	if err != nil {
		return Services{}, fmt.Errorf("init sendgrid client: %w", err)
	}

	fetcher := imagefetch.New(log)
	renderer := report.New(log, fetcher, cfg.Report)

	notification := services.NewNotificationService(log, mailer, cfg.DispatchTimeout)
	incident := services.NewIncidentService(
		db,
		log,
		reposet.Incident,
		reposet.IncidentItem,
		reposet.User,
		renderer,
		notification,
		cfg.SequencePrefix,
	)

	return Services{
		Renderer:     renderer,
		Notification: notification,
		Incident:     incident,
	}, nil
}
