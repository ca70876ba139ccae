package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casaluz/incidents-backend/internal/data/repos"
	"github.com/casaluz/incidents-backend/internal/data/repos/incidents"
	repouser "github.com/casaluz/incidents-backend/internal/data/repos/user"
	types "github.com/casaluz/incidents-backend/internal/domain"
	"github.com/casaluz/incidents-backend/internal/platform/apperr"
	"github.com/casaluz/incidents-backend/internal/platform/ctxutil"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
)

const (
	deliveryDateLayout = "2006-01-02"

	// Draft previews carry this placeholder instead of an allocated code.
	previewCode = "DRAFT"

	// Two concurrent submissions can compute the same next code; the
	// unique index rejects the loser and the allocation is retried.
	maxCodeAttempts = 3
)

// ReportRenderer is what the workflow needs from the PDF layer.
type ReportRenderer interface {
	Render(ctx context.Context, incident *types.Incident, items []*types.IncidentItem) ([]byte, error)
}

type ItemInput struct {
	ID uint `json:"id,omitempty"`

	Reference string `json:"reference"`

	QtyArea  bool `json:"qty_area"`
	QtyBoxes bool `json:"qty_boxes"`
	QtyUnits bool `json:"qty_units"`

	Breakage     bool `json:"breakage"`
	Chipping     bool `json:"chipping"`
	ImpactDamage bool `json:"impact_damage"`
	Scratching   bool `json:"scratching"`
	Incomplete   bool `json:"incomplete"`
	MixedLot     bool `json:"mixed_lot"`
	OtherDefect  bool `json:"other_defect"`

	Description string `json:"description"`
	Disposition string `json:"disposition"`

	ReceivedImages []types.ImageRef `json:"received_images"`
	ReturnImages   []types.ImageRef `json:"return_images"`
}

type SubmitRequest struct {
	DeliveryDate   string `json:"delivery_date"`
	WorkerName     string `json:"worker_name"`
	ApproverName   string `json:"approver_name"`
	RecipientEmail string `json:"recipient_email"`
	SupplierName   string `json:"supplier_name"`
	SupplierTaxID  string `json:"supplier_tax_id"`
	Remarks        string `json:"remarks"`

	RemissionImages []types.ImageRef `json:"remission_images"`
	StateImages     []types.ImageRef `json:"state_images"`

	Items []ItemInput `json:"items"`
}

// IncidentService owns the submission pipeline plus the simple aggregate
// operations around it.
type IncidentService interface {
	Submit(ctx context.Context, req SubmitRequest) (*types.Incident, error)
	Preview(ctx context.Context, req SubmitRequest) ([]byte, error)
	Get(ctx context.Context, id uint) (*types.Incident, error)
	ReplaceItems(ctx context.Context, id uint, items []ItemInput) (*types.Incident, error)
	Delete(ctx context.Context, id uint) error
}

type incidentService struct {
	db           *gorm.DB
	log          *logger.Logger
	incidentRepo repos.IncidentRepo
	itemRepo     repos.IncidentItemRepo
	userRepo     repos.UserRepo
	renderer     ReportRenderer
	notifier     NotificationService
	codePrefix   string
}

func NewIncidentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	incidentRepo repos.IncidentRepo,
	itemRepo repos.IncidentItemRepo,
	userRepo repos.UserRepo,
	renderer ReportRenderer,
	notifier NotificationService,
	codePrefix string,
) IncidentService {
	if strings.TrimSpace(codePrefix) == "" {
		codePrefix = "REM"
	}
	return &incidentService{
		db:           db,
		log:          baseLog.With("service", "IncidentService"),
		incidentRepo: incidentRepo,
		itemRepo:     itemRepo,
		userRepo:     userRepo,
		renderer:     renderer,
		notifier:     notifier,
		codePrefix:   codePrefix,
	}
}

// Submit runs the full pipeline: validate, resolve the acting user,
// allocate a code and persist the aggregate in one transaction, then
// render and dispatch the report. The transaction commits right after
// persistence; a render or dispatch failure marks the incident's
// notify_status instead of discarding an already-validated aggregate.
func (s *incidentService) Submit(ctx context.Context, req SubmitRequest) (*types.Incident, error) {
	if err := validateSubmit(req); err != nil {
		return nil, err
	}
	deliveryDate, err := time.Parse(deliveryDateLayout, req.DeliveryDate)
	if err != nil {
		return nil, apperr.Validation("delivery_date must be YYYY-MM-DD")
	}

	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Validation("acting user required")
	}
	actingUser, err := s.userRepo.GetActiveByID(ctx, nil, rd.UserID)
	if errors.Is(err, repouser.ErrUserNotFound) {
		return nil, apperr.NotFound("acting user does not exist or is inactive")
	}
	if err != nil {
		return nil, apperr.Storage("resolve acting user", err)
	}

	persisted, err := s.persistAggregate(ctx, req, deliveryDate, actingUser)
	if err != nil {
		return nil, err
	}

	// Notification phase. The aggregate is committed from here on.
	itemPtrs := make([]*types.IncidentItem, len(persisted.Items))
	for i := range persisted.Items {
		itemPtrs[i] = &persisted.Items[i]
	}

	pdfBytes, err := s.renderer.Render(ctx, persisted, itemPtrs)
	if err != nil {
		s.markNotify(ctx, persisted, types.NotifyStatusFailed)
		return nil, err
	}
	if err := s.notifier.SendIncidentReport(ctx, persisted, pdfBytes); err != nil {
		s.markNotify(ctx, persisted, types.NotifyStatusFailed)
		return nil, err
	}
	s.markNotify(ctx, persisted, types.NotifyStatusSent)

	s.log.Info("Incident submitted", "code", persisted.Code, "items", len(persisted.Items))
	return persisted, nil
}

// persistAggregate allocates the next code and inserts the incident with
// all its items atomically, retrying the whole transaction when a rival
// submission wins the same code.
func (s *incidentService) persistAggregate(ctx context.Context, req SubmitRequest, deliveryDate time.Time, actingUser *types.User) (*types.Incident, error) {
	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		var persisted *types.Incident
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			maxID, err := s.incidentRepo.MaxID(ctx, tx)
			if err != nil {
				return err
			}
			incident := buildIncident(req, deliveryDate, actingUser, s.nextCode(maxID))
			if _, err := s.incidentRepo.Create(ctx, tx, incident); err != nil {
				return err
			}
			persisted = incident
			return nil
		})
		if err == nil {
			return persisted, nil
		}
		lastErr = err
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.log.Warn("Sequential code conflict, retrying allocation", "attempt", attempt+1)
			continue
		}
		return nil, apperr.Storage("persist incident aggregate", err)
	}
	return nil, apperr.Storage("allocate sequential code", lastErr)
}

func (s *incidentService) nextCode(maxID uint) string {
	return fmt.Sprintf("%s%04d", s.codePrefix, maxID+1)
}

func (s *incidentService) markNotify(ctx context.Context, incident *types.Incident, status string) {
	if err := s.incidentRepo.UpdateNotifyStatus(ctx, nil, incident.ID, status); err != nil {
		s.log.Error("Failed to record notify status", "code", incident.Code, "status", status, "error", err)
		return
	}
	incident.NotifyStatus = status
}

// Preview renders the same document for a not-yet-persisted draft. It
// never allocates a code and never touches storage.
func (s *incidentService) Preview(ctx context.Context, req SubmitRequest) ([]byte, error) {
	if err := validateDraft(req); err != nil {
		return nil, err
	}
	deliveryDate, err := time.Parse(deliveryDateLayout, req.DeliveryDate)
	if err != nil {
		return nil, apperr.Validation("delivery_date must be YYYY-MM-DD")
	}

	draft := &types.Incident{
		Code:            previewCode,
		DeliveryDate:    deliveryDate,
		WorkerName:      req.WorkerName,
		ApproverName:    req.ApproverName,
		Remarks:         req.Remarks,
		SupplierName:    req.SupplierName,
		SupplierTaxID:   req.SupplierTaxID,
		RecipientEmail:  req.RecipientEmail,
		RemissionImages: req.RemissionImages,
		StateImages:     req.StateImages,
	}
	items := make([]*types.IncidentItem, len(req.Items))
	for i, in := range req.Items {
		item := itemFromInput(in, i)
		items[i] = &item
	}
	return s.renderer.Render(ctx, draft, items)
}

func (s *incidentService) Get(ctx context.Context, id uint) (*types.Incident, error) {
	incident, err := s.incidentRepo.GetWithItems(ctx, nil, id)
	if errors.Is(err, incidents.ErrIncidentNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("incident %d not found", id))
	}
	if err != nil {
		return nil, apperr.Storage("read incident aggregate", err)
	}
	return incident, nil
}

// ReplaceItems applies a three-way diff against the persisted line items:
// supplied items carrying a known id are updated, items without an id are
// inserted, persisted items missing from the supplied set are deleted.
// The sets are computed before any mutation and applied as
// delete -> update -> insert inside one transaction.
func (s *incidentService) ReplaceItems(ctx context.Context, id uint, inputs []ItemInput) (*types.Incident, error) {
	for i, in := range inputs {
		if strings.TrimSpace(in.Reference) == "" {
			return nil, apperr.Validation(fmt.Sprintf("items[%d].reference is required", i))
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.itemRepo.ListByIncident(ctx, tx, id)
		if err != nil {
			return err
		}
		incident, err := s.incidentRepo.GetWithItems(ctx, tx, id)
		if err != nil {
			return err
		}

		existingByID := make(map[uint]*types.IncidentItem, len(existing))
		for _, item := range existing {
			existingByID[item.ID] = item
		}

		var (
			updateSet []*types.IncidentItem
			insertSet []*types.IncidentItem
			keep      = make(map[uint]struct{}, len(inputs))
		)
		for i, in := range inputs {
			if in.ID == 0 {
				item := itemFromInput(in, i)
				item.IncidentID = incident.ID
				insertSet = append(insertSet, &item)
				continue
			}
			current, ok := existingByID[in.ID]
			if !ok {
				return apperr.Validation(fmt.Sprintf("items[%d].id %d does not belong to incident %d", i, in.ID, id))
			}
			item := itemFromInput(in, i)
			item.ID = in.ID
			item.IncidentID = incident.ID
			// Save writes every column; keep the original creation stamp.
			item.CreatedAt = current.CreatedAt
			updateSet = append(updateSet, &item)
			keep[in.ID] = struct{}{}
		}

		var deleteSet []uint
		for _, item := range existing {
			if _, ok := keep[item.ID]; !ok {
				deleteSet = append(deleteSet, item.ID)
			}
		}

		if err := s.itemRepo.DeleteByIDs(ctx, tx, id, deleteSet); err != nil {
			return err
		}
		for _, item := range updateSet {
			if err := s.itemRepo.Update(ctx, tx, item); err != nil {
				return err
			}
		}
		if _, err := s.itemRepo.CreateBatch(ctx, tx, insertSet); err != nil {
			return err
		}
		return nil
	})
	if errors.Is(err, incidents.ErrIncidentNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("incident %d not found", id))
	}
	if err != nil {
		if apperr.KindOf(err) != "" {
			return nil, err
		}
		return nil, apperr.Storage("replace incident items", err)
	}
	return s.Get(ctx, id)
}

func (s *incidentService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.incidentRepo.Delete(ctx, tx, id); err != nil {
			return err
		}
		return s.itemRepo.DeleteByIncident(ctx, tx, id)
	})
	if errors.Is(err, incidents.ErrIncidentNotFound) {
		return apperr.NotFound(fmt.Sprintf("incident %d not found", id))
	}
	if err != nil {
		return apperr.Storage("delete incident aggregate", err)
	}
	return nil
}

func validateSubmit(req SubmitRequest) error {
	if err := validateDraft(req); err != nil {
		return err
	}
	if strings.TrimSpace(req.RecipientEmail) == "" {
		return apperr.Validation("recipient_email is required")
	}
	return nil
}

// validateDraft checks only what rendering needs. A draft being composed
// may not carry a recipient yet; submission requires one on top of this.
func validateDraft(req SubmitRequest) error {
	if strings.TrimSpace(req.DeliveryDate) == "" {
		return apperr.Validation("delivery_date is required")
	}
	if strings.TrimSpace(req.WorkerName) == "" {
		return apperr.Validation("worker_name is required")
	}
	if strings.TrimSpace(req.SupplierName) == "" {
		return apperr.Validation("supplier_name is required")
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.Reference) == "" {
			return apperr.Validation(fmt.Sprintf("items[%d].reference is required", i))
		}
		if strings.TrimSpace(item.Disposition) == "" {
			return apperr.Validation(fmt.Sprintf("items[%d].disposition is required", i))
		}
	}
	return nil
}

func buildIncident(req SubmitRequest, deliveryDate time.Time, actingUser *types.User, code string) *types.Incident {
	items := make([]types.IncidentItem, len(req.Items))
	for i, in := range req.Items {
		items[i] = itemFromInput(in, i)
	}
	return &types.Incident{
		Code:            code,
		DeliveryDate:    deliveryDate,
		WorkerName:      req.WorkerName,
		ApproverName:    req.ApproverName,
		Remarks:         req.Remarks,
		SupplierName:    req.SupplierName,
		SupplierTaxID:   req.SupplierTaxID,
		RecipientEmail:  req.RecipientEmail,
		NotifyStatus:    types.NotifyStatusPending,
		RemissionImages: req.RemissionImages,
		StateImages:     req.StateImages,
		OwnerUserID:     actingUser.ID,
		Items:           items,
	}
}

func itemFromInput(in ItemInput, position int) types.IncidentItem {
	return types.IncidentItem{
		Reference:      in.Reference,
		QtyArea:        in.QtyArea,
		QtyBoxes:       in.QtyBoxes,
		QtyUnits:       in.QtyUnits,
		Breakage:       in.Breakage,
		Chipping:       in.Chipping,
		ImpactDamage:   in.ImpactDamage,
		Scratching:     in.Scratching,
		Incomplete:     in.Incomplete,
		MixedLot:       in.MixedLot,
		OtherDefect:    in.OtherDefect,
		Description:    in.Description,
		Disposition:    in.Disposition,
		ReceivedImages: in.ReceivedImages,
		ReturnImages:   in.ReturnImages,
		Position:       position,
	}
}
