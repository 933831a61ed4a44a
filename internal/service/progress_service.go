package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/logger"
	"azarean/rehab-app/internal/repository"
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompletionInput is one event submitted through a complex's access token.
type CompletionInput struct {
	Token            string
	ExerciseID       primitive.ObjectID
	SessionID        string
	Completed        bool
	PainLevel        *int
	DifficultyRating *int
	MoodRating       *int
	Comment          string
}

// DiaryInput is a patient's daily report. An empty Date means today.
type DiaryInput struct {
	Date          string
	PainLevel     *int
	Swelling      string
	ExercisesDone bool
	Answers       domain.DiaryAnswers
}

type ComplexStats struct {
	CompletedCount int        `json:"completedCount"` // distinct exercises with at least one completion
	TotalExercises int        `json:"totalExercises"`
	CompletionRate float64    `json:"completionRate"` // percent
	TotalSessions  int        `json:"totalSessions"`
	AvgPain        *float64   `json:"avgPain"`
	AvgDifficulty  *float64   `json:"avgDifficulty"`
	AvgMood        *float64   `json:"avgMood"`
	LastActivity   *time.Time `json:"lastActivity"`
}

type ComplexProgress struct {
	Stats ComplexStats         `json:"stats"`
	Logs  []domain.ProgressLog `json:"logs"` // newest first
}

// ProgressService records completions and diary entries and aggregates them
// at read time.
type ProgressService interface {
	RecordCompletion(ctx context.Context, in CompletionInput) (*domain.ProgressLog, error)
	GetComplexProgress(ctx context.Context, instructorID, complexID primitive.ObjectID) (*ComplexProgress, error)

	RecordDiaryEntry(ctx context.Context, userID primitive.ObjectID, in DiaryInput) (*domain.DiaryEntry, error)
	DiaryHistory(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.DiaryEntry, error)
	DiaryDay(ctx context.Context, userID primitive.ObjectID, date string) (*domain.DiaryEntry, error)
	PatientDiary(ctx context.Context, instructorID, patientID primitive.ObjectID, limit int) ([]domain.DiaryEntry, error)
}

type progressService struct {
	store  repository.Store
	access access
	now    Clock
	loc    *time.Location
	log    *logger.Logger
}

func NewProgressService(store repository.Store, now Clock, loc *time.Location, log *logger.Logger) ProgressService {
	if loc == nil {
		loc = time.UTC
	}
	return &progressService{
		store:  store,
		access: newAccess(store),
		now:    now.orDefault(),
		loc:    loc,
		log:    log.With("service", "progress"),
	}
}

// RecordCompletion appends one log row. Duplicate submissions produce
// duplicate rows; there is no update or delete path.
func (s *progressService) RecordCompletion(ctx context.Context, in CompletionInput) (*domain.ProgressLog, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, apperr.Validation("session id is required")
	}
	if err := checkRange("pain level", in.PainLevel, 0, 10); err != nil {
		return nil, err
	}
	if err := checkRange("difficulty rating", in.DifficultyRating, 1, 5); err != nil {
		return nil, err
	}
	if err := checkRange("mood rating", in.MoodRating, 1, 5); err != nil {
		return nil, err
	}

	complex, err := s.access.byToken(ctx, in.Token)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Complexes.ListExercises(ctx, complex.ID)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	inComplex := false
	for _, r := range rows {
		if r.ExerciseID == in.ExerciseID {
			inComplex = true
			break
		}
	}
	if !inComplex {
		return nil, apperr.Validation("exercise is not part of this complex")
	}

	entry := &domain.ProgressLog{
		ComplexID:        complex.ID,
		PatientID:        complex.PatientID,
		ExerciseID:       in.ExerciseID,
		SessionID:        in.SessionID,
		Completed:        in.Completed,
		PainLevel:        in.PainLevel,
		DifficultyRating: in.DifficultyRating,
		MoodRating:       in.MoodRating,
		Comment:          in.Comment,
		CompletedAt:      s.now().UTC(),
	}
	if _, err = s.store.Progress.Create(ctx, entry); err != nil {
		return nil, storeErr(err, nil)
	}
	return entry, nil
}

func (s *progressService) GetComplexProgress(ctx context.Context, instructorID, complexID primitive.ObjectID) (*ComplexProgress, error) {
	complex, err := s.access.complex(ctx, instructorID, complexID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Complexes.ListExercises(ctx, complex.ID)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	logs, err := s.store.Progress.ListByComplex(ctx, complex.ID)
	if err != nil {
		return nil, storeErr(err, nil)
	}

	exerciseIDs := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		exerciseIDs[i] = r.ExerciseID
	}
	return &ComplexProgress{Stats: computeStats(exerciseIDs, logs), Logs: logs}, nil
}

// computeStats aggregates logs against the complex's current exercise list.
// Averages skip missing ratings in both sum and count.
func computeStats(exerciseIDs []primitive.ObjectID, logs []domain.ProgressLog) ComplexStats {
	current := make(map[primitive.ObjectID]bool, len(exerciseIDs))
	for _, id := range exerciseIDs {
		current[id] = true
	}

	stats := ComplexStats{TotalExercises: len(current)}
	completed := map[primitive.ObjectID]bool{}
	sessions := map[string]bool{}
	var pain, difficulty, mood []*int
	for i, l := range logs {
		if l.Completed && current[l.ExerciseID] {
			completed[l.ExerciseID] = true
		}
		sessions[l.SessionID] = true
		pain = append(pain, l.PainLevel)
		difficulty = append(difficulty, l.DifficultyRating)
		mood = append(mood, l.MoodRating)
		if stats.LastActivity == nil || l.CompletedAt.After(*stats.LastActivity) {
			stats.LastActivity = &logs[i].CompletedAt
		}
	}

	stats.CompletedCount = len(completed)
	stats.TotalSessions = len(sessions)
	if stats.TotalExercises > 0 {
		stats.CompletionRate = float64(stats.CompletedCount) / float64(stats.TotalExercises) * 100
	}
	stats.AvgPain = mean(pain)
	stats.AvgDifficulty = mean(difficulty)
	stats.AvgMood = mean(mood)
	return stats
}

// mean of the non-nil values, or nil when there are none.
func mean(values []*int) *float64 {
	sum, n := 0, 0
	for _, v := range values {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	m := float64(sum) / float64(n)
	return &m
}

// RecordDiaryEntry upserts the entry for (patient, date); a second
// submission on the same day overwrites the first.
func (s *progressService) RecordDiaryEntry(ctx context.Context, userID primitive.ObjectID, in DiaryInput) (*domain.DiaryEntry, error) {
	patient, err := s.access.linkedPatient(ctx, userID)
	if err != nil {
		return nil, err
	}

	date, err := s.entryDate(in.Date)
	if err != nil {
		return nil, err
	}
	if in.PainLevel == nil {
		return nil, apperr.Validation("pain level is required")
	}
	if err = checkRange("pain level", in.PainLevel, 0, 10); err != nil {
		return nil, err
	}
	swelling, err := NormalizeSwelling(in.Swelling)
	if err != nil {
		return nil, err
	}
	if err = validateAnswers(in.Answers); err != nil {
		return nil, err
	}

	entry := &domain.DiaryEntry{
		PatientID:     patient.ID,
		EntryDate:     date,
		PainLevel:     *in.PainLevel,
		Swelling:      swelling,
		ExercisesDone: in.ExercisesDone,
		Answers:       in.Answers,
	}
	stored, err := s.store.Diary.Upsert(ctx, entry)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	return stored, nil
}

func (s *progressService) DiaryHistory(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.DiaryEntry, error) {
	patient, err := s.access.linkedPatient(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.Diary.ListByPatient(ctx, patient.ID, limit)
	return entries, storeErr(err, nil)
}

func (s *progressService) DiaryDay(ctx context.Context, userID primitive.ObjectID, date string) (*domain.DiaryEntry, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, apperr.Validation("date must be YYYY-MM-DD")
	}
	patient, err := s.access.linkedPatient(ctx, userID)
	if err != nil {
		return nil, err
	}
	entry, err := s.store.Diary.GetByDate(ctx, patient.ID, date)
	if err != nil {
		return nil, storeErr(err, ErrDiaryNotFound)
	}
	return entry, nil
}

func (s *progressService) PatientDiary(ctx context.Context, instructorID, patientID primitive.ObjectID, limit int) ([]domain.DiaryEntry, error) {
	if _, err := s.access.patient(ctx, instructorID, patientID); err != nil {
		return nil, err
	}
	entries, err := s.store.Diary.ListByPatient(ctx, patientID, limit)
	return entries, storeErr(err, nil)
}

// entryDate validates a submitted date against today in the configured zone.
func (s *progressService) entryDate(raw string) (string, error) {
	today := s.now().In(s.loc).Format(domain.DateLayout)
	if raw == "" {
		return today, nil
	}
	if _, err := time.Parse(domain.DateLayout, raw); err != nil {
		return "", apperr.Validation("date must be YYYY-MM-DD")
	}
	if raw > today {
		return "", apperr.Validation("diary date cannot be in the future")
	}
	return raw, nil
}

// NormalizeSwelling maps the wire value to the tri-state. "none" and the
// empty string mean not reported.
func NormalizeSwelling(raw string) (*domain.Swelling, error) {
	switch v := domain.Swelling(strings.ToLower(strings.TrimSpace(raw))); v {
	case "", "none":
		return nil, nil
	case domain.SwellingLess, domain.SwellingSame, domain.SwellingMore:
		return &v, nil
	default:
		return nil, apperr.Validation("swelling must be one of less, same, more")
	}
}

func validateAnswers(a domain.DiaryAnswers) error {
	if err := checkRange("pain at rest", a.PainAtRest, 0, 10); err != nil {
		return err
	}
	if err := checkRange("pain on movement", a.PainOnMovement, 0, 10); err != nil {
		return err
	}
	switch a.SleepQuality {
	case "", "good", "fair", "poor":
	default:
		return apperr.Validation("sleep quality must be one of good, fair, poor")
	}
	switch a.Stiffness {
	case "", "none", "morning", "all_day":
	default:
		return apperr.Validation("stiffness must be one of none, morning, all_day")
	}
	return nil
}

func checkRange(field string, v *int, lo, hi int) error {
	if v != nil && (*v < lo || *v > hi) {
		return apperr.Validation("%s must be between %d and %d", field, lo, hi)
	}
	return nil
}
