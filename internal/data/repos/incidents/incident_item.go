package incidents

import (
	"context"
	"errors"

	types "github.com/casaluz/incidents-backend/internal/domain"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type IncidentItemRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, items []*types.IncidentItem) ([]*types.IncidentItem, error)
	ListByIncident(ctx context.Context, tx *gorm.DB, incidentID uint) ([]*types.IncidentItem, error)
	Update(ctx context.Context, tx *gorm.DB, item *types.IncidentItem) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, incidentID uint, ids []uint) error
	DeleteByIncident(ctx context.Context, tx *gorm.DB, incidentID uint) error
}

type incidentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIncidentItemRepo(db *gorm.DB, baseLog *logger.Logger) IncidentItemRepo {
	return &incidentItemRepo{db: db, log: baseLog.With("repo", "IncidentItemRepo")}
}

func (r *incidentItemRepo) CreateBatch(ctx context.Context, tx *gorm.DB, items []*types.IncidentItem) ([]*types.IncidentItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*types.IncidentItem{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *incidentItemRepo) ListByIncident(ctx context.Context, tx *gorm.DB, incidentID uint) ([]*types.IncidentItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.IncidentItem
	if err := transaction.WithContext(ctx).
		Where("incident_id = ?", incidentID).
		Order("position ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *incidentItemRepo) Update(ctx context.Context, tx *gorm.DB, item *types.IncidentItem) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if item == nil || item.ID == 0 {
		return errors.New("item id required for update")
	}
	// Save writes every column so cleared flags land too.
	return transaction.WithContext(ctx).Save(item).Error
}

func (r *incidentItemRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, incidentID uint, ids []uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("incident_id = ? AND id IN ?", incidentID, ids).
		Delete(&types.IncidentItem{}).Error
}

func (r *incidentItemRepo) DeleteByIncident(ctx context.Context, tx *gorm.DB, incidentID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("incident_id = ?", incidentID).
		Delete(&types.IncidentItem{}).Error
}
