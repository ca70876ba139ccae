package repos

import (
	"github.com/casaluz/incidents-backend/internal/data/repos/incidents"
	"github.com/casaluz/incidents-backend/internal/data/repos/user"
)

type UserRepo = user.UserRepo

type IncidentRepo = incidents.IncidentRepo
type IncidentItemRepo = incidents.IncidentItemRepo

var (
	NewUserRepo         = user.NewUserRepo
	NewIncidentRepo     = incidents.NewIncidentRepo
	NewIncidentItemRepo = incidents.NewIncidentItemRepo
)
