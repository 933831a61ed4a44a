package api

import (
	"azarean/rehab-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProgressHandler accepts completion events from the public complex page.
// Reads of a complex's progress live on ComplexHandler.
type ProgressHandler struct {
	progress service.ProgressService
}

func NewProgressHandler(progress service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

type CompletionRequest struct {
	Token            string `json:"token" binding:"required"`
	ExerciseID       string `json:"exerciseId" binding:"required"`
	SessionID        string `json:"sessionId"`
	Completed        bool   `json:"completed"`
	PainLevel        *int   `json:"painLevel"`        // 0-10
	DifficultyRating *int   `json:"difficultyRating"` // 1-5
	MoodRating       *int   `json:"moodRating"`       // 1-5
	Comment          string `json:"comment"`
}

// RecordCompletion godoc
// @Summary Record an exercise completion
// @Description Public; authorized by the complex access token.
// @Tags Progress
// @Accept json
// @Produce json
// @Param event body CompletionRequest true "Completion event"
// @Success 201 {object} domain.ProgressLog
// @Failure 400 {object} ErrorBody "Rating out of range or missing session"
// @Failure 404 {object} ErrorBody "Unknown token or exercise not in complex"
// @Router /progress [post]
func (h *ProgressHandler) RecordCompletion(c *gin.Context) {
	var req CompletionRequest
	if !bindJSON(c, &req) {
		return
	}
	exerciseID, err := parseID("exerciseId", req.ExerciseID)
	if err != nil {
		respondError(c, err)
		return
	}

	entry, err := h.progress.RecordCompletion(c.Request.Context(), service.CompletionInput{
		Token:            req.Token,
		ExerciseID:       exerciseID,
		SessionID:        req.SessionID,
		Completed:        req.Completed,
		PainLevel:        req.PainLevel,
		DifficultyRating: req.DifficultyRating,
		MoodRating:       req.MoodRating,
		Comment:          req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}
