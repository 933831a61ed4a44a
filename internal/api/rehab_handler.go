package api

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RehabHandler serves the patient's roadmap, dashboard and diary, and the
// instructor's management of rehab programs.
type RehabHandler struct {
	roadmap  service.RoadmapService
	progress service.ProgressService
}

func NewRehabHandler(roadmap service.RoadmapService, progress service.ProgressService) *RehabHandler {
	return &RehabHandler{roadmap: roadmap, progress: progress}
}

type DiaryRequest struct {
	Date          string              `json:"date"` // YYYY-MM-DD, defaults to today
	PainLevel     *int                `json:"painLevel"`
	Swelling      string              `json:"swelling"`
	ExercisesDone bool                `json:"exercisesDone"`
	Answers       domain.DiaryAnswers `json:"answers"`
}

type ChecklistRequest struct {
	Checked []int `json:"checked"`
}

type ProgramRequest struct {
	PatientID    string  `json:"patientId" binding:"required"`
	SurgeryDate  *string `json:"surgeryDate"`
	CurrentPhase int     `json:"currentPhase"`
	Notes        string  `json:"notes"`
}

type PhaseRequest struct {
	Phase int `json:"phase" binding:"required"`
}

// SurgeryDateRequest sets the date; null clears it.
type SurgeryDateRequest struct {
	SurgeryDate *string `json:"surgeryDate"`
}

// Phases returns the phase catalog. Patients get their own roadmap with
// later phases locked; instructors see every phase in full.
func (h *RehabHandler) Phases(c *gin.Context) {
	role, err := getUserRoleFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, apperr.KindUnauthorized, "Unable to identify user from token.")
		return
	}
	if role != domain.RolePatient {
		phases, err := h.roadmap.ListPhases(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, phases)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roadmap, err := h.roadmap.MyRoadmap(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roadmap)
}

// Dashboard godoc
// @Summary Patient home screen
// @Description Roadmap, streak, today's diary entry, checklist and active complexes in one read.
// @Tags Rehab
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Dashboard
// @Failure 404 {object} ErrorBody "No patient record linked to this account"
// @Router /rehab/my/dashboard [get]
func (h *RehabHandler) Dashboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	dashboard, err := h.roadmap.Dashboard(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// RecordDiary upserts the entry for the given date.
func (h *RehabHandler) RecordDiary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req DiaryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.progress.RecordDiaryEntry(c.Request.Context(), userID, service.DiaryInput{
		Date:          req.Date,
		PainLevel:     req.PainLevel,
		Swelling:      req.Swelling,
		ExercisesDone: req.ExercisesDone,
		Answers:       req.Answers,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *RehabHandler) DiaryHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	entries, err := h.progress.DiaryHistory(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *RehabHandler) DiaryDay(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entry, err := h.progress.DiaryDay(c.Request.Context(), userID, c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *RehabHandler) UpdateChecklist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ChecklistRequest
	if !bindJSON(c, &req) {
		return
	}
	state, err := h.roadmap.UpdateChecklist(c.Request.Context(), userID, req.Checked)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// --- Instructor ---

// CreateProgram godoc
// @Summary Start a rehab program for a patient
// @Tags Rehab
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param program body ProgramRequest true "Program details"
// @Success 201 {object} service.ProgramView
// @Failure 400 {object} ErrorBody "Unknown phase or empty phase catalog"
// @Failure 409 {object} ErrorBody "Patient already has a program"
// @Router /rehab/programs [post]
func (h *RehabHandler) CreateProgram(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ProgramRequest
	if !bindJSON(c, &req) {
		return
	}
	patientID, err := parseID("patientId", req.PatientID)
	if err != nil {
		respondError(c, err)
		return
	}
	surgeryDate, err := parseDate("surgeryDate", req.SurgeryDate)
	if err != nil {
		respondError(c, err)
		return
	}

	view, err := h.roadmap.CreateProgram(c.Request.Context(), instructorID, service.ProgramInput{
		PatientID:    patientID,
		SurgeryDate:  surgeryDate,
		CurrentPhase: req.CurrentPhase,
		Notes:        req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *RehabHandler) GetProgram(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathID(c, "patientId")
	if !ok {
		return
	}
	view, err := h.roadmap.GetProgram(c.Request.Context(), instructorID, patientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RehabHandler) SetPhase(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathID(c, "patientId")
	if !ok {
		return
	}
	var req PhaseRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.roadmap.SetPhase(c.Request.Context(), instructorID, patientID, req.Phase)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RehabHandler) SetSurgeryDate(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathID(c, "patientId")
	if !ok {
		return
	}
	var req SurgeryDateRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseDate("surgeryDate", req.SurgeryDate)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := h.roadmap.SetSurgeryDate(c.Request.Context(), instructorID, patientID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
