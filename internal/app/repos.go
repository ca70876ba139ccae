package app

import (
	"gorm.io/gorm"

	"github.com/casaluz/incidents-backend/internal/data/repos"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
)

type Repos struct {
	User         repos.UserRepo
	Incident     repos.IncidentRepo
	IncidentItem repos.IncidentItemRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		Incident:     repos.NewIncidentRepo(db, log),
		IncidentItem: repos.NewIncidentItemRepo(db, log),
	}
}
