package service

import (
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/logger"
	"azarean/rehab-app/internal/repository"
	"azarean/rehab-app/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fixture wires services over a fresh in-memory store with a movable clock.
type fixture struct {
	ctx        context.Context
	mem        *memory.Store
	store      repository.Store
	log        *logger.Logger
	now        time.Time
	instructor primitive.ObjectID

	patients    PatientService
	composition CompositionService
	lifecycle   LifecycleService
	progress    ProgressService
	roadmap     RoadmapService
	reporting   ReportingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.NewStore()
	f := &fixture{
		ctx:        context.Background(),
		mem:        mem,
		store:      mem.Repositories(),
		log:        logger.NewNop(),
		now:        time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC),
		instructor: primitive.NewObjectID(),
	}
	clock := func() time.Time { return f.now }
	f.patients = NewPatientService(f.store, f.log)
	f.composition = NewCompositionService(f.store, f.log)
	f.lifecycle = NewLifecycleService(f.store, f.log)
	f.progress = NewProgressService(f.store, clock, time.UTC, f.log)
	f.roadmap = NewRoadmapService(f.store, clock, time.UTC, f.log)
	f.reporting = NewReportingService(f.store, time.UTC, f.log)
	return f
}

func (f *fixture) patient(t *testing.T, name string) *domain.Patient {
	t.Helper()
	p, err := f.patients.CreatePatient(f.ctx, f.instructor, PatientInput{FullName: name, Phone: "+7 900 000 00 00"})
	require.NoError(t, err)
	return p
}

// linkedPatient creates a patient with a linked patient-role account and
// returns the account's user id.
func (f *fixture) linkedPatient(t *testing.T, name string) (*domain.Patient, primitive.ObjectID) {
	t.Helper()
	p := f.patient(t, name)
	user := &domain.User{Name: name, Email: primitive.NewObjectID().Hex() + "@patients.test", Role: domain.RolePatient}
	_, err := f.store.Users.Create(f.ctx, user)
	require.NoError(t, err)
	p, err = f.patients.LinkAccount(f.ctx, f.instructor, p.ID, user.Email)
	require.NoError(t, err)
	return p, user.ID
}

func (f *fixture) exercise(t *testing.T, title string) *domain.Exercise {
	t.Helper()
	e := &domain.Exercise{InstructorID: f.instructor, Title: title}
	_, err := f.store.Exercises.Create(f.ctx, e)
	require.NoError(t, err)
	return e
}

func (f *fixture) complex(t *testing.T, patientID primitive.ObjectID, exercises ...*domain.Exercise) *ComplexDetails {
	t.Helper()
	entries := make([]ExerciseEntry, len(exercises))
	for i, e := range exercises {
		entries[i] = repsEntry(e.ID, 3, 10)
	}
	c, err := f.composition.CreateComplex(f.ctx, f.instructor, ComplexInput{PatientID: patientID, Title: "Knee program", Exercises: entries})
	require.NoError(t, err)
	return c
}

func (f *fixture) complete(t *testing.T, c *ComplexDetails, exerciseID primitive.ObjectID, session string, pain *int) {
	t.Helper()
	_, err := f.progress.RecordCompletion(f.ctx, CompletionInput{
		Token:      c.AccessToken,
		ExerciseID: exerciseID,
		SessionID:  session,
		Completed:  true,
		PainLevel:  pain,
	})
	require.NoError(t, err)
}

func (f *fixture) seedPhases(t *testing.T) {
	t.Helper()
	require.NoError(t, f.roadmap.SeedPhases(f.ctx, []domain.RehabPhase{
		{PhaseNumber: 1, Title: "Protection", WeekStart: 0, WeekEnd: 2, DurationWeeks: 2,
			Goals: []string{"reduce swelling"}, TransitionCriteria: []string{"full extension", "walking without crutches"}},
		{PhaseNumber: 2, Title: "Mobility", WeekStart: 2, WeekEnd: 6, DurationWeeks: 4,
			Goals: []string{"90 degrees flexion"}, RedFlags: []string{"fever"}, TransitionCriteria: []string{"120 degrees flexion"}},
		{PhaseNumber: 3, Title: "Strength", WeekStart: 6, WeekEnd: 12, DurationWeeks: 6,
			Goals: []string{"single leg squat"}},
	}))
}

func repsEntry(exerciseID primitive.ObjectID, sets, reps int) ExerciseEntry {
	return ExerciseEntry{ExerciseID: exerciseID, ExerciseParams: domain.ExerciseParams{Sets: sets, Reps: intPtr(reps)}}
}

func intPtr(v int) *int { return &v }
