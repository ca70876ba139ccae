package domain

import (
	"github.com/casaluz/incidents-backend/internal/domain/incidents"
	"github.com/casaluz/incidents-backend/internal/domain/user"
)

// Re-exports so callers can import one package as "types".

type User = user.User

type Incident = incidents.Incident
type IncidentItem = incidents.IncidentItem
type ImageRef = incidents.ImageRef

const (
	DispositionReturned  = incidents.DispositionReturned
	DispositionDiscarded = incidents.DispositionDiscarded

	NotifyStatusPending = incidents.NotifyStatusPending
	NotifyStatusSent    = incidents.NotifyStatusSent
	NotifyStatusFailed  = incidents.NotifyStatusFailed
)
