package services

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/casaluz/incidents-backend/internal/data/repos"
	"github.com/casaluz/incidents-backend/internal/data/repos/testutil"
	types "github.com/casaluz/incidents-backend/internal/domain"
	"github.com/casaluz/incidents-backend/internal/platform/apperr"
	"github.com/casaluz/incidents-backend/internal/platform/ctxutil"
)

type fakeRenderer struct {
	lastIncident *types.Incident
	lastItems    []*types.IncidentItem
	err          error
	calls        int
}

func (f *fakeRenderer) Render(_ context.Context, incident *types.Incident, items []*types.IncidentItem) ([]byte, error) {
	f.calls++
	f.lastIncident = incident
	f.lastItems = items
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

type fakeNotifier struct {
	lastIncident *types.Incident
	lastPDF      []byte
	err          error
	calls        int
}

func (f *fakeNotifier) SendIncidentReport(_ context.Context, incident *types.Incident, pdfBytes []byte) error {
	f.calls++
	f.lastIncident = incident
	f.lastPDF = pdfBytes
	return f.err
}

type serviceFixture struct {
	db           *gorm.DB
	service      IncidentService
	incidentRepo repos.IncidentRepo
	renderer     *fakeRenderer
	notifier     *fakeNotifier
	ctx          context.Context
	owner        *types.User
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	owner := testutil.SeedUser(t, db)

	incidentRepo := repos.NewIncidentRepo(db, log)
	itemRepo := repos.NewIncidentItemRepo(db, log)
	userRepo := repos.NewUserRepo(db, log)
	renderer := &fakeRenderer{}
	notifier := &fakeNotifier{}

	svc := NewIncidentService(db, log, incidentRepo, itemRepo, userRepo, renderer, notifier, "REM")
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: owner.ID})

	return &serviceFixture{
		db:           db,
		service:      svc,
		incidentRepo: incidentRepo,
		renderer:     renderer,
		notifier:     notifier,
		ctx:          ctx,
		owner:        owner,
	}
}

func validSubmitRequest() SubmitRequest {
	return SubmitRequest{
		DeliveryDate:   "2024-03-15",
		WorkerName:     "Maria Lopez",
		SupplierName:   "Ceramica del Norte",
		SupplierTaxID:  "B-1234",
		RecipientEmail: "ventas@example.com",
		Items: []ItemInput{
			{Reference: "TILE-A", QtyBoxes: true, Breakage: true, Disposition: types.DispositionReturned},
			{Reference: "TILE-B", Disposition: types.DispositionDiscarded},
		},
	}
}

func TestSubmitAllocatesSequentialCodes(t *testing.T) {
	f := newServiceFixture(t)

	first, err := f.service.Submit(f.ctx, validSubmitRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.Code != "REM0001" {
		t.Fatalf("first code: %q", first.Code)
	}
	if first.NotifyStatus != types.NotifyStatusSent {
		t.Fatalf("notify status: %q", first.NotifyStatus)
	}
	if len(first.Items) != 2 || first.Items[0].Position != 0 || first.Items[1].Position != 1 {
		t.Fatalf("items: %+v", first.Items)
	}
	if f.notifier.calls != 1 || string(f.notifier.lastPDF) != "%PDF-fake" {
		t.Fatalf("notifier calls=%d pdf=%q", f.notifier.calls, f.notifier.lastPDF)
	}

	second, err := f.service.Submit(f.ctx, validSubmitRequest())
	if err != nil {
		t.Fatalf("Submit second: %v", err)
	}
	if second.Code != "REM0002" {
		t.Fatalf("second code: %q", second.Code)
	}
}

func TestSubmitSequenceSurvivesDeletion(t *testing.T) {
	f := newServiceFixture(t)

	first, err := f.service.Submit(f.ctx, validSubmitRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := f.service.Delete(f.ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	second, err := f.service.Submit(f.ctx, validSubmitRequest())
	if err != nil {
		t.Fatalf("Submit after delete: %v", err)
	}
	if second.Code != "REM0002" {
		t.Fatalf("code after delete: %q, want REM0002", second.Code)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newServiceFixture(t)

	cases := []struct {
		name   string
		mutate func(*SubmitRequest)
	}{
		{"missing delivery date", func(r *SubmitRequest) { r.DeliveryDate = "" }},
		{"bad delivery date", func(r *SubmitRequest) { r.DeliveryDate = "15/03/2024" }},
		{"missing worker", func(r *SubmitRequest) { r.WorkerName = " " }},
		{"missing supplier", func(r *SubmitRequest) { r.SupplierName = "" }},
		{"missing recipient", func(r *SubmitRequest) { r.RecipientEmail = "" }},
		{"item without reference", func(r *SubmitRequest) { r.Items[0].Reference = "" }},
		{"item without disposition", func(r *SubmitRequest) { r.Items[1].Disposition = "" }},
	}
	for _, tc := range cases {
		req := validSubmitRequest()
		tc.mutate(&req)
		if _, err := f.service.Submit(f.ctx, req); !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("%s: err=%v, want validation", tc.name, err)
		}
	}
	if f.renderer.calls != 0 || f.notifier.calls != 0 {
		t.Fatalf("invalid requests must not render or dispatch: renders=%d sends=%d", f.renderer.calls, f.notifier.calls)
	}
}

func TestSubmitRejectsUnknownOrInactiveUser(t *testing.T) {
	f := newServiceFixture(t)
	inactive := testutil.SeedInactiveUser(t, f.db)

	noUser := context.Background()
	if _, err := f.service.Submit(noUser, validSubmitRequest()); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("no request data: err=%v", err)
	}

	asInactive := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: inactive.ID})
	if _, err := f.service.Submit(asInactive, validSubmitRequest()); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("inactive user: err=%v", err)
	}
}

// A render or dispatch failure must not throw away the committed
// aggregate; it is marked failed and stays queryable under its code.
func TestSubmitDispatchFailureKeepsAggregate(t *testing.T) {
	f := newServiceFixture(t)
	f.notifier.err = fmt.Errorf("smtp gateway down")

	if _, err := f.service.Submit(f.ctx, validSubmitRequest()); err == nil {
		t.Fatalf("Submit should surface the dispatch failure")
	}

	maxID, err := f.incidentRepo.MaxID(context.Background(), nil)
	if err != nil || maxID == 0 {
		t.Fatalf("aggregate was not persisted: maxID=%d err=%v", maxID, err)
	}
	stored, err := f.incidentRepo.GetWithItems(context.Background(), nil, maxID)
	if err != nil {
		t.Fatalf("GetWithItems: %v", err)
	}
	if stored.Code != "REM0001" || stored.NotifyStatus != types.NotifyStatusFailed {
		t.Fatalf("stored: code=%q status=%q", stored.Code, stored.NotifyStatus)
	}
	if len(stored.Items) != 2 {
		t.Fatalf("stored items: %d", len(stored.Items))
	}
}

func TestSubmitRenderFailureKeepsAggregate(t *testing.T) {
	f := newServiceFixture(t)
	f.renderer.err = fmt.Errorf("image origin unreachable")

	if _, err := f.service.Submit(f.ctx, validSubmitRequest()); err == nil {
		t.Fatalf("Submit should surface the render failure")
	}
	if f.notifier.calls != 0 {
		t.Fatalf("nothing should be dispatched after a failed render")
	}

	maxID, err := f.incidentRepo.MaxID(context.Background(), nil)
	if err != nil || maxID == 0 {
		t.Fatalf("aggregate was not persisted: maxID=%d err=%v", maxID, err)
	}
	stored, err := f.incidentRepo.GetWithItems(context.Background(), nil, maxID)
	if err != nil || stored.NotifyStatus != types.NotifyStatusFailed {
		t.Fatalf("stored: status=%q err=%v", stored.NotifyStatus, err)
	}
}

// flakyIncidentRepo loses the first insert to a rival code allocation.
type flakyIncidentRepo struct {
	repos.IncidentRepo
	failures int
}

func (f *flakyIncidentRepo) Create(ctx context.Context, tx *gorm.DB, incident *types.Incident) (*types.Incident, error) {
	if f.failures > 0 {
		f.failures--
		return nil, gorm.ErrDuplicatedKey
	}
	return f.IncidentRepo.Create(ctx, tx, incident)
}

func TestSubmitRetriesOnCodeConflict(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	owner := testutil.SeedUser(t, db)

	flaky := &flakyIncidentRepo{IncidentRepo: repos.NewIncidentRepo(db, log), failures: 1}
	svc := NewIncidentService(db, log,
		flaky,
		repos.NewIncidentItemRepo(db, log),
		repos.NewUserRepo(db, log),
		&fakeRenderer{}, &fakeNotifier{}, "REM")
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: owner.ID})

	incident, err := svc.Submit(ctx, validSubmitRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if incident.Code != "REM0001" {
		t.Fatalf("code: %q", incident.Code)
	}

	exhausted := &flakyIncidentRepo{IncidentRepo: repos.NewIncidentRepo(db, log), failures: 10}
	svc = NewIncidentService(db, log,
		exhausted,
		repos.NewIncidentItemRepo(db, log),
		repos.NewUserRepo(db, log),
		&fakeRenderer{}, &fakeNotifier{}, "REM")
	if _, err := svc.Submit(ctx, validSubmitRequest()); !apperr.IsKind(err, apperr.KindStorage) {
		t.Fatalf("exhausted retries: err=%v", err)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	f := newServiceFixture(t)

	pdfBytes, err := f.service.Preview(context.Background(), validSubmitRequest())
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if string(pdfBytes) != "%PDF-fake" {
		t.Fatalf("pdf: %q", pdfBytes)
	}
	if f.renderer.lastIncident.Code != "DRAFT" {
		t.Fatalf("preview code: %q", f.renderer.lastIncident.Code)
	}
	if f.notifier.calls != 0 {
		t.Fatalf("preview must not dispatch")
	}
	maxID, err := f.incidentRepo.MaxID(context.Background(), nil)
	if err != nil || maxID != 0 {
		t.Fatalf("preview must not persist: maxID=%d err=%v", maxID, err)
	}
}

// A draft under composition may not have a recipient yet; preview only
// renders, so it must not demand one. Submission still does.
func TestPreviewWithoutRecipient(t *testing.T) {
	f := newServiceFixture(t)

	req := validSubmitRequest()
	req.RecipientEmail = ""
	if _, err := f.service.Preview(context.Background(), req); err != nil {
		t.Fatalf("Preview without recipient: %v", err)
	}
	if _, err := f.service.Submit(f.ctx, req); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("Submit without recipient: err=%v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	f := newServiceFixture(t)
	if _, err := f.service.Get(context.Background(), 42); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("Get missing: err=%v", err)
	}
}

func TestReplaceItems(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.service.Submit(f.ctx, validSubmitRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Keep TILE-A with an edit, drop TILE-B, add TILE-C.
	updated, err := f.service.ReplaceItems(f.ctx, created.ID, []ItemInput{
		{ID: created.Items[0].ID, Reference: "TILE-A", Chipping: true, Disposition: types.DispositionDiscarded},
		{Reference: "TILE-C", QtyUnits: true, Disposition: types.DispositionReturned},
	})
	if err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	if len(updated.Items) != 2 {
		t.Fatalf("items after replace: %d", len(updated.Items))
	}
	if updated.Items[0].Reference != "TILE-A" || !updated.Items[0].Chipping || updated.Items[0].Disposition != types.DispositionDiscarded {
		t.Fatalf("updated item: %+v", updated.Items[0])
	}
	if updated.Items[1].Reference != "TILE-C" || updated.Items[1].Position != 1 {
		t.Fatalf("inserted item: %+v", updated.Items[1])
	}

	// An id from another aggregate is rejected before anything mutates.
	other, err := f.service.Submit(f.ctx, validSubmitRequest())
	if err != nil {
		t.Fatalf("Submit other: %v", err)
	}
	_, err = f.service.ReplaceItems(f.ctx, created.ID, []ItemInput{
		{ID: other.Items[0].ID, Reference: "TILE-X", Disposition: types.DispositionDiscarded},
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("foreign item id: err=%v", err)
	}
	after, err := f.service.Get(context.Background(), created.ID)
	if err != nil || len(after.Items) != 2 || after.Items[0].Reference != "TILE-A" {
		t.Fatalf("aggregate changed after rejected replace: %+v err=%v", after.Items, err)
	}

	if _, err := f.service.ReplaceItems(f.ctx, 9999, nil); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("ReplaceItems missing incident: err=%v", err)
	}
}

func TestDeleteRemovesAggregate(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.service.Submit(f.ctx, validSubmitRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := f.service.Delete(f.ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.service.Get(context.Background(), created.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("Get after delete: err=%v", err)
	}
	if err := f.service.Delete(f.ctx, created.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("Delete twice: err=%v", err)
	}
}
