package incidents

import (
	"context"
	"errors"

	types "github.com/casaluz/incidents-backend/internal/domain"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrIncidentNotFound = errors.New("incident not found")

type IncidentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, incident *types.Incident) (*types.Incident, error)
	GetWithItems(ctx context.Context, tx *gorm.DB, id uint) (*types.Incident, error)
	MaxID(ctx context.Context, tx *gorm.DB) (uint, error)
	UpdateNotifyStatus(ctx context.Context, tx *gorm.DB, id uint, status string) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

type incidentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIncidentRepo(db *gorm.DB, baseLog *logger.Logger) IncidentRepo {
	return &incidentRepo{db: db, log: baseLog.With("repo", "IncidentRepo")}
}

// Create inserts the incident row, then every line item with a
// back-reference to the new id. The items go through a plain batch
// insert, not GORM's association save: association saves land with
// ON CONFLICT DO NOTHING and would silently drop a conflicting item,
// leaving a partial aggregate. Here an item-level failure surfaces so
// the caller's transaction rolls the whole aggregate back.
func (ir *incidentRepo) Create(ctx context.Context, tx *gorm.DB, incident *types.Incident) (*types.Incident, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if incident == nil {
		return nil, errors.New("nil incident")
	}
	if err := transaction.WithContext(ctx).Omit(clause.Associations).Create(incident).Error; err != nil {
		return nil, err
	}
	if len(incident.Items) > 0 {
		for i := range incident.Items {
			incident.Items[i].IncidentID = incident.ID
		}
		if err := transaction.WithContext(ctx).Create(&incident.Items).Error; err != nil {
			return nil, err
		}
	}
	return incident, nil
}

func (ir *incidentRepo) GetWithItems(ctx context.Context, tx *gorm.DB, id uint) (*types.Incident, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var result types.Incident
	err := transaction.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		First(&result, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIncidentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MaxID reports the highest incident id ever assigned, including
// soft-deleted rows, so sequential codes are never reused.
func (ir *incidentRepo) MaxID(ctx context.Context, tx *gorm.DB) (uint, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var maxID uint
	err := transaction.WithContext(ctx).
		Model(&types.Incident{}).
		Unscoped().
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error
	if err != nil {
		return 0, err
	}
	return maxID, nil
}

func (ir *incidentRepo) UpdateNotifyStatus(ctx context.Context, tx *gorm.DB, id uint, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Incident{}).
		Where("id = ?", id).
		Update("notify_status", status).Error
}

func (ir *incidentRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	res := transaction.WithContext(ctx).Delete(&types.Incident{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrIncidentNotFound
	}
	return nil
}
