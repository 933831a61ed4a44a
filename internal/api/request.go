package api

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bindJSON binds and validates the body per its `binding` tags.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "Validation error: %v", err)
		return false
	}
	return true
}

func parseID(field, raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("%s is not a valid id", field)
	}
	return id, nil
}

// parseOptionalID treats a missing or empty value as "not set".
func parseOptionalID(field string, raw *string) (*primitive.ObjectID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := parseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if t, err := time.Parse(domain.DateLayout, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperr.Validation("%s must be a YYYY-MM-DD date", field)
	}
	t = t.UTC()
	return &t, nil
}

// queryLimit reads ?limit=, where 0 or absent means no limit.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}
