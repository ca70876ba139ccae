package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/casaluz/incidents-backend/internal/http/response"
	"github.com/casaluz/incidents-backend/internal/services"
)

type IncidentHandler struct {
	incidentService services.IncidentService
}

func NewIncidentHandler(incidentService services.IncidentService) *IncidentHandler {
	return &IncidentHandler{incidentService: incidentService}
}

// POST /api/incidents
// Persists the report, renders the PDF and emails it to the supplier.
func (ih *IncidentHandler) Submit(c *gin.Context) {
	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	incident, err := ih.incidentService.Submit(c.Request.Context(), req)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"incident": incident})
}

// POST /api/incidents/preview
// Renders the draft PDF without allocating a code or persisting anything.
func (ih *IncidentHandler) Preview(c *gin.Context) {
	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	pdfBytes, err := ih.incidentService.Preview(c.Request.Context(), req)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="draft.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// GET /api/incidents/:id
func (ih *IncidentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	incident, err := ih.incidentService.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"incident": incident})
}

// PUT /api/incidents/:id/items
// body: { "items": [ ... ] } replaces the line-item set wholesale.
func (ih *IncidentHandler) ReplaceItems(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Items []services.ItemInput `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	incident, err := ih.incidentService.ReplaceItems(c.Request.Context(), id, req.Items)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"incident": incident})
}

// DELETE /api/incidents/:id
func (ih *IncidentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := ih.incidentService.Delete(c.Request.Context(), id); err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func parseID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return 0, false
	}
	return uint(id), true
}
