package api

import (
	"azarean/rehab-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type TemplateHandler struct {
	composition service.CompositionService
}

func NewTemplateHandler(composition service.CompositionService) *TemplateHandler {
	return &TemplateHandler{composition: composition}
}

type TemplateRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	DiagnosisID *string                `json:"diagnosisId"`
	Exercises   []ExerciseEntryRequest `json:"exercises"`
}

func (r TemplateRequest) toInput() (service.TemplateInput, error) {
	diagnosisID, err := parseOptionalID("diagnosisId", r.DiagnosisID)
	if err != nil {
		return service.TemplateInput{}, err
	}
	entries, err := toEntries(r.Exercises)
	if err != nil {
		return service.TemplateInput{}, err
	}
	return service.TemplateInput{
		Name:        r.Name,
		Description: r.Description,
		DiagnosisID: diagnosisID,
		Exercises:   entries,
	}, nil
}

func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req TemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}
	details, err := h.composition.CreateTemplate(c.Request.Context(), instructorID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, details)
}

func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	list, err := h.composition.ListTemplates(c.Request.Context(), instructorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	details, err := h.composition.GetTemplate(c.Request.Context(), instructorID, templateID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *TemplateHandler) ReplaceTemplate(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req TemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}
	details, err := h.composition.ReplaceTemplate(c.Request.Context(), instructorID, templateID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// DeleteTemplate removes the template only. Complexes built from it keep
// their own copies.
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.composition.DeleteTemplate(c.Request.Context(), instructorID, templateID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
