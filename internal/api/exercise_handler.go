package api

import (
	"azarean/rehab-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExerciseHandler holds the exercise service dependency.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

// --- DTOs for API (Data Transfer Objects) ---

// ExerciseRequest defines the expected JSON for creating or updating an exercise.
type ExerciseRequest struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
	BodyRegion   string `json:"bodyRegion"`                       // e.g. "knee", "shoulder"
	Difficulty   string `json:"difficulty"`                       // e.g. "easy", "medium", "hard"
	VideoURL     string `json:"videoUrl" binding:"omitempty,url"` // Optional, validated as URL if provided
}

type MediaUploadRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

type ConfirmMediaRequest struct {
	ObjectKey   string `json:"objectKey" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

func (r ExerciseRequest) toInput() service.ExerciseInput {
	return service.ExerciseInput{
		Title:        r.Title,
		Description:  r.Description,
		Instructions: r.Instructions,
		BodyRegion:   r.BodyRegion,
		Difficulty:   r.Difficulty,
		VideoURL:     r.VideoURL,
	}
}

// --- Handler Methods ---

// CreateExercise godoc
// @Summary Create a library exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param exercise body ExerciseRequest true "Exercise details"
// @Success 201 {object} service.ExerciseView
// @Failure 400 {object} ErrorBody "Invalid input"
// @Failure 401 {object} ErrorBody "Unauthorized"
// @Failure 403 {object} ErrorBody "Forbidden (not an instructor)"
// @Router /exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ExerciseRequest
	if !bindJSON(c, &req) {
		return
	}

	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), instructorID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exercise)
}

// ListExercises returns the whole shared library.
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	exercises, err := h.exerciseService.ListExercises(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exercises)
}

func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	exerciseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	exercise, err := h.exerciseService.GetExercise(c.Request.Context(), exerciseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

func (h *ExerciseHandler) UpdateExercise(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	exerciseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ExerciseRequest
	if !bindJSON(c, &req) {
		return
	}

	exercise, err := h.exerciseService.UpdateExercise(c.Request.Context(), instructorID, exerciseID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

// DeleteExercise godoc
// @Summary Delete a library exercise
// @Description Fails with 400 while any complex or template still references it.
// @Tags Exercises
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 204
// @Failure 404 {object} ErrorBody
// @Failure 400 {object} ErrorBody "Exercise in use"
// @Router /exercises/{id} [delete]
func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	exerciseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.exerciseService.DeleteExercise(c.Request.Context(), instructorID, exerciseID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestMediaUpload hands out a presigned PUT URL for the exercise video.
func (h *ExerciseHandler) RequestMediaUpload(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	exerciseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req MediaUploadRequest
	if !bindJSON(c, &req) {
		return
	}

	upload, err := h.exerciseService.CreateMediaUpload(c.Request.Context(), instructorID, exerciseID, req.FileName, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (h *ExerciseHandler) ConfirmMedia(c *gin.Context) {
	instructorID, ok := currentUserID(c)
	if !ok {
		return
	}
	exerciseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ConfirmMediaRequest
	if !bindJSON(c, &req) {
		return
	}

	exercise, err := h.exerciseService.ConfirmMedia(c.Request.Context(), instructorID, exerciseID, req.ObjectKey, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}
