package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	types "github.com/casaluz/incidents-backend/internal/domain"
	"github.com/casaluz/incidents-backend/internal/platform/apperr"
	"github.com/casaluz/incidents-backend/internal/services"
)

type fakeIncidentService struct {
	submitted *types.Incident
	pdf       []byte
	err       error
}

func (f *fakeIncidentService) Submit(context.Context, services.SubmitRequest) (*types.Incident, error) {
	return f.submitted, f.err
}

func (f *fakeIncidentService) Preview(context.Context, services.SubmitRequest) ([]byte, error) {
	return f.pdf, f.err
}

func (f *fakeIncidentService) Get(_ context.Context, id uint) (*types.Incident, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.submitted, nil
}

func (f *fakeIncidentService) ReplaceItems(context.Context, uint, []services.ItemInput) (*types.Incident, error) {
	return f.submitted, f.err
}

func (f *fakeIncidentService) Delete(context.Context, uint) error {
	return f.err
}

func testRouter(svc services.IncidentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewIncidentHandler(svc)
	r := gin.New()
	r.POST("/api/incidents", h.Submit)
	r.POST("/api/incidents/preview", h.Preview)
	r.GET("/api/incidents/:id", h.Get)
	r.DELETE("/api/incidents/:id", h.Delete)
	return r
}

func TestSubmitHandler(t *testing.T) {
	svc := &fakeIncidentService{submitted: &types.Incident{ID: 1, Code: "REM0001"}}
	r := testRouter(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/incidents", strings.NewReader(`{"delivery_date":"2024-03-15"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Incident types.Incident `json:"incident"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Incident.Code != "REM0001" {
		t.Fatalf("body: %s err=%v", rec.Body.String(), err)
	}
}

func TestSubmitHandlerBadJSON(t *testing.T) {
	r := testRouter(&fakeIncidentService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/incidents", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad input"), http.StatusBadRequest},
		{apperr.NotFound("missing"), http.StatusNotFound},
		{apperr.Render("pdf", nil), http.StatusBadGateway},
		{apperr.Dispatch("mail", nil), http.StatusBadGateway},
		{apperr.Storage("db", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := testRouter(&fakeIncidentService{err: tc.err})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/incidents/1", nil)
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%v: status=%d want=%d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestPreviewHandlerReturnsPDF(t *testing.T) {
	svc := &fakeIncidentService{pdf: []byte("%PDF-fake")}
	r := testRouter(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/incidents/preview", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type: %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), []byte("%PDF-fake")) {
		t.Fatalf("body: %q", rec.Body.String())
	}
}

func TestBadIDParam(t *testing.T) {
	r := testRouter(&fakeIncidentService{})

	for _, raw := range []string{"abc", "0", "-3"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/incidents/"+raw, nil)
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: status=%d", raw, rec.Code)
		}
	}
}
