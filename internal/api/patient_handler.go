package api

import (
	"azarean/rehab-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PatientHandler serves the instructor's patient roster, including the
// patient lifecycle.
type PatientHandler struct {
	patients  service.PatientService
	lifecycle service.LifecycleService
	reporting service.ReportingService
	progress  service.ProgressService
}

func NewPatientHandler(patients service.PatientService, lifecycle service.LifecycleService, reporting service.ReportingService, progress service.ProgressService) *PatientHandler {
	return &PatientHandler{patients: patients, lifecycle: lifecycle, reporting: reporting, progress: progress}
}

type PatientRequest struct {
	FullName  string  `json:"fullName" binding:"required"`
	Email     string  `json:"email" binding:"omitempty,email"`
	Phone     string  `json:"phone"`
	BirthDate *string `json:"birthDate"` // YYYY-MM-DD
	Notes     string  `json:"notes"`
}

type LinkAccountRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (r PatientRequest) toInput() (service.PatientInput, error) {
	birthDate, err := parseDate("birthDate", r.BirthDate)
	if err != nil {
		return service.PatientInput{}, err
	}
	return service.PatientInput{
		FullName:  r.FullName,
		Email:     r.Email,
		Phone:     r.Phone,
		BirthDate: birthDate,
		Notes:     r.Notes,
	}, nil
}

// ListPatients godoc
// @Summary List patients with progress aggregates
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param filter query string false "all | active | inactive"
// @Param sort query string false "lastActivity | pain | name"
// @Success 200 {array} service.PatientSummary
// @Router /patients [get]
func (h *PatientHandler) ListPatients(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	rows, err := h.reporting.ListPatientsWithProgress(c.Request.Context(), instructorID,
		service.PatientFilter(c.Query("filter")), service.PatientSort(c.Query("sort")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *PatientHandler) ListTrash(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	list, err := h.patients.ListTrash(c.Request.Context(), instructorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *PatientHandler) CreatePatient(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req PatientRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	patient, err := h.patients.CreatePatient(c.Request.Context(), instructorID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

func (h *PatientHandler) GetPatient(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathID(c, "id")
	if !ok {
		return
	}
	patient, err := h.patients.GetPatient(c.Request.Context(), instructorID, patientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req PatientRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	patient, err := h.patients.UpdatePatient(c.Request.Context(), instructorID, patientID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// LinkAccount godoc
// @Summary Link a patient-role account to a patient record
// @Tags Patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Patient ID"
// @Param body body LinkAccountRequest true "Account email"
// @Success 200 {object} domain.Patient
// @Failure 409 {object} ErrorBody "Account already linked"
// @Router /patients/{id}/link-account [post]
func (h *PatientHandler) LinkAccount(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req LinkAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	patient, err := h.patients.LinkAccount(c.Request.Context(), instructorID, patientID, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (h *PatientHandler) GetDiary(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	entries, err := h.progress.PatientDiary(c.Request.Context(), instructorID, patientID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// --- Lifecycle ---

func (h *PatientHandler) SoftDelete(c *gin.Context) {
	h.transition(c, h.lifecycle.SoftDeletePatient)
}

func (h *PatientHandler) Restore(c *gin.Context) {
	h.transition(c, h.lifecycle.RestorePatient)
}

// Purge godoc
// @Summary Permanently delete a trashed patient and everything it owns
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param id path string true "Patient ID"
// @Success 200 {object} service.PurgeResult
// @Failure 400 {object} ErrorBody "Patient is not in the trash"
// @Failure 500 {object} ErrorBody "cascade_failure, nothing was removed"
// @Router /patients/{id}/permanent [delete]
func (h *PatientHandler) Purge(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.lifecycle.PurgePatient(c.Request.Context(), instructorID, patientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PatientHandler) transition(c *gin.Context, op lifecycleOp) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := op(c.Request.Context(), instructorID, patientID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
