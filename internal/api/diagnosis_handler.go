package api

import (
	"azarean/rehab-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type DiagnosisHandler struct {
	diagnoses service.DiagnosisService
}

func NewDiagnosisHandler(diagnoses service.DiagnosisService) *DiagnosisHandler {
	return &DiagnosisHandler{diagnoses: diagnoses}
}

type DiagnosisRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *DiagnosisHandler) ListDiagnoses(c *gin.Context) {
	list, err := h.diagnoses.ListDiagnoses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *DiagnosisHandler) GetDiagnosis(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	diagnosis, err := h.diagnoses.GetDiagnosis(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, diagnosis)
}

func (h *DiagnosisHandler) CreateDiagnosis(c *gin.Context) {
	var req DiagnosisRequest
	if !bindJSON(c, &req) {
		return
	}
	diagnosis, err := h.diagnoses.CreateDiagnosis(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, diagnosis)
}
