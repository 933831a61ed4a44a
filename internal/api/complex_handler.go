package api

import (
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/service"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// lifecycleOp is the shape shared by the soft delete and restore operations.
type lifecycleOp func(ctx context.Context, instructorID, id primitive.ObjectID) error

type ComplexHandler struct {
	composition service.CompositionService
	lifecycle   service.LifecycleService
	progress    service.ProgressService
}

func NewComplexHandler(composition service.CompositionService, lifecycle service.LifecycleService, progress service.ProgressService) *ComplexHandler {
	return &ComplexHandler{composition: composition, lifecycle: lifecycle, progress: progress}
}

// ExerciseEntryRequest is one item of an ordered exercise list. Items are
// numbered by their position in the array.
type ExerciseEntryRequest struct {
	ExerciseID      string `json:"exerciseId"`
	Sets            int    `json:"sets"`
	Reps            *int   `json:"reps"`
	DurationSeconds *int   `json:"durationSeconds"`
	RestSeconds     *int   `json:"restSeconds"`
	Notes           string `json:"notes"`
}

type ComplexRequest struct {
	PatientID       string                 `json:"patientId"`
	DiagnosisID     *string                `json:"diagnosisId"`
	Title           string                 `json:"title"`
	Recommendations string                 `json:"recommendations"`
	Warnings        string                 `json:"warnings"`
	Exercises       []ExerciseEntryRequest `json:"exercises"`
}

type FromTemplateRequest struct {
	TemplateID      string  `json:"templateId" binding:"required"`
	PatientID       string  `json:"patientId" binding:"required"`
	DiagnosisID     *string `json:"diagnosisId"`
	Title           string  `json:"title"`
	Recommendations string  `json:"recommendations"`
	Warnings        string  `json:"warnings"`
}

func toEntries(reqs []ExerciseEntryRequest) ([]service.ExerciseEntry, error) {
	entries := make([]service.ExerciseEntry, 0, len(reqs))
	for i, r := range reqs {
		id, err := parseID(fmt.Sprintf("exercises[%d].exerciseId", i), r.ExerciseID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, service.ExerciseEntry{
			ExerciseID: id,
			ExerciseParams: domain.ExerciseParams{
				Sets:            r.Sets,
				Reps:            r.Reps,
				DurationSeconds: r.DurationSeconds,
				RestSeconds:     r.RestSeconds,
				Notes:           r.Notes,
			},
		})
	}
	return entries, nil
}

func (r ComplexRequest) toInput() (service.ComplexInput, error) {
	patientID, err := parseID("patientId", r.PatientID)
	if err != nil {
		return service.ComplexInput{}, err
	}
	diagnosisID, err := parseOptionalID("diagnosisId", r.DiagnosisID)
	if err != nil {
		return service.ComplexInput{}, err
	}
	entries, err := toEntries(r.Exercises)
	if err != nil {
		return service.ComplexInput{}, err
	}
	return service.ComplexInput{
		PatientID:       patientID,
		DiagnosisID:     diagnosisID,
		Title:           r.Title,
		Recommendations: r.Recommendations,
		Warnings:        r.Warnings,
		Exercises:       entries,
	}, nil
}

// CreateComplex godoc
// @Summary Create an exercise complex for a patient
// @Description Exercises are numbered 1..N in the order submitted. Nothing is written if any entry is invalid.
// @Tags Complexes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param complex body ComplexRequest true "Complex and its ordered exercises"
// @Success 201 {object} service.ComplexDetails
// @Failure 400 {object} ErrorBody "Invalid exercise list"
// @Failure 404 {object} ErrorBody "Patient, exercise or diagnosis not found"
// @Router /complexes [post]
func (h *ComplexHandler) CreateComplex(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ComplexRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	details, err := h.composition.CreateComplex(c.Request.Context(), instructorID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, details)
}

func (h *ComplexHandler) CreateFromTemplate(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req FromTemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	templateID, err := parseID("templateId", req.TemplateID)
	if err != nil {
		respondError(c, err)
		return
	}
	patientID, err := parseID("patientId", req.PatientID)
	if err != nil {
		respondError(c, err)
		return
	}
	diagnosisID, err := parseOptionalID("diagnosisId", req.DiagnosisID)
	if err != nil {
		respondError(c, err)
		return
	}

	details, err := h.composition.CreateComplexFromTemplate(c.Request.Context(), instructorID, service.FromTemplateInput{
		TemplateID:      templateID,
		PatientID:       patientID,
		DiagnosisID:     diagnosisID,
		Title:           req.Title,
		Recommendations: req.Recommendations,
		Warnings:        req.Warnings,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, details)
}

// ListComplexes returns the instructor's complexes, optionally for one
// patient. ?state=trashed lists the trash.
func (h *ComplexHandler) ListComplexes(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	var patientID *primitive.ObjectID
	if raw := c.Query("patientId"); raw != "" {
		id, err := parseID("patientId", raw)
		if err != nil {
			respondError(c, err)
			return
		}
		patientID = &id
	}
	active := true
	switch c.DefaultQuery("state", "active") {
	case "active":
	case "trashed":
		active = false
	default:
		badRequest(c, "state must be active or trashed")
		return
	}

	list, err := h.composition.ListComplexes(c.Request.Context(), instructorID, patientID, active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ComplexHandler) GetComplex(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	complexID, ok := pathID(c, "id")
	if !ok {
		return
	}
	details, err := h.composition.GetComplex(c.Request.Context(), instructorID, complexID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// ReplaceComplex overwrites metadata and the whole exercise list. patientId
// in the body is ignored; a complex never changes owner.
func (h *ComplexHandler) ReplaceComplex(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	complexID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ComplexRequest
	if !bindJSON(c, &req) {
		return
	}
	diagnosisID, err := parseOptionalID("diagnosisId", req.DiagnosisID)
	if err != nil {
		respondError(c, err)
		return
	}
	entries, err := toEntries(req.Exercises)
	if err != nil {
		respondError(c, err)
		return
	}

	details, err := h.composition.ReplaceComplex(c.Request.Context(), instructorID, complexID, service.ComplexInput{
		DiagnosisID:     diagnosisID,
		Title:           req.Title,
		Recommendations: req.Recommendations,
		Warnings:        req.Warnings,
		Exercises:       entries,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *ComplexHandler) GetProgress(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	complexID, ok := pathID(c, "id")
	if !ok {
		return
	}
	progress, err := h.progress.GetComplexProgress(c.Request.Context(), instructorID, complexID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// GetByToken godoc
// @Summary Open a complex by its access token
// @Description Public. Trashed complexes and complexes of trashed patients are not found.
// @Tags Complexes
// @Produce json
// @Param token path string true "Access token"
// @Success 200 {object} service.ComplexDetails
// @Failure 404 {object} ErrorBody
// @Router /complexes/token/{token} [get]
func (h *ComplexHandler) GetByToken(c *gin.Context) {
	details, err := h.composition.GetComplexByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// --- Lifecycle ---

func (h *ComplexHandler) SoftDelete(c *gin.Context) {
	h.transition(c, h.lifecycle.SoftDeleteComplex)
}

func (h *ComplexHandler) Restore(c *gin.Context) {
	h.transition(c, h.lifecycle.RestoreComplex)
}

func (h *ComplexHandler) Purge(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	complexID, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.lifecycle.PurgeComplex(c.Request.Context(), instructorID, complexID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ComplexHandler) transition(c *gin.Context, op lifecycleOp) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	complexID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := op(c.Request.Context(), instructorID, complexID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
