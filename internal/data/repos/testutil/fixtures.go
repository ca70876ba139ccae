package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/casaluz/incidents-backend/internal/domain"
)

func SeedUser(tb testing.TB, db *gorm.DB) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		FirstName: "Test",
		LastName:  "Worker",
		Active:    true,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedInactiveUser(tb testing.TB, db *gorm.DB) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		FirstName: "Former",
		LastName:  "Worker",
		Active:    false,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed inactive user: %v", err)
	}
	// Active carries gorm's `default:true`, which replaces the zero-value
	// false on Create; flip it with an explicit update so the row really
	// is inactive.
	if err := db.Model(u).Update("active", false).Error; err != nil {
		tb.Fatalf("seed inactive user: %v", err)
	}
	return u
}

func BuildIncident(owner uuid.UUID, code string, items ...types.IncidentItem) *types.Incident {
	return &types.Incident{
		Code:           code,
		DeliveryDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		WorkerName:     "Test Worker",
		SupplierName:   "Acme",
		SupplierTaxID:  "123",
		RecipientEmail: "supplier@example.com",
		NotifyStatus:   types.NotifyStatusPending,
		OwnerUserID:    owner,
		Items:          items,
	}
}
