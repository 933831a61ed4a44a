package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/repository"
	"errors"
	"time"
)

// --- Error Definitions ---
var (
	ErrPatientNotFound   = apperr.NotFound("patient")
	ErrComplexNotFound   = apperr.NotFound("complex")
	ErrExerciseNotFound  = apperr.NotFound("exercise")
	ErrTemplateNotFound  = apperr.NotFound("template")
	ErrDiagnosisNotFound = apperr.NotFound("diagnosis")
	ErrProgramNotFound   = apperr.NotFound("rehab program")
	ErrPhaseNotFound     = apperr.NotFound("rehab phase")
	ErrDiaryNotFound     = apperr.NotFound("diary entry")
	ErrUserNotFound      = apperr.NotFound("user")

	ErrUserAlreadyExists    = apperr.Conflict("user with this email already exists")
	ErrAuthenticationFailed = apperr.Unauthorized("authentication failed: invalid email or password")
)

// storeErr translates a repository error. ErrNotFound becomes notFound;
// anything else is an internal error whose cause is never shown.
func storeErr(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) && notFound != nil {
		return notFound
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err)
}

// invalidTransition reports a lifecycle operation attempted from the wrong state.
func invalidTransition(entity string, state interface{}, action string) error {
	return apperr.Validation("cannot %s: %s is %s", action, entity, state)
}

// Clock returns the current instant. Tests inject a fixed one.
type Clock func() time.Time

func (c Clock) orDefault() Clock {
	if c == nil {
		return time.Now
	}
	return c
}
