package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMean_SkipsMissingValues(t *testing.T) {
	got := mean([]*int{intPtr(2), intPtr(4), nil, intPtr(6)})
	require.NotNil(t, got)
	assert.InDelta(t, 4.0, *got, 1e-9)

	assert.Nil(t, mean(nil))
	assert.Nil(t, mean([]*int{nil, nil}))
}

func TestComputeStats(t *testing.T) {
	a, b, c, removed := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	logs := []domain.ProgressLog{
		{ExerciseID: a, SessionID: "s2", Completed: true, PainLevel: intPtr(4), MoodRating: intPtr(5), CompletedAt: t0.Add(48 * time.Hour)},
		{ExerciseID: b, SessionID: "s2", Completed: false, DifficultyRating: intPtr(3), CompletedAt: t0.Add(47 * time.Hour)},
		{ExerciseID: a, SessionID: "s1", Completed: true, PainLevel: intPtr(2), CompletedAt: t0},
		{ExerciseID: removed, SessionID: "s1", Completed: true, PainLevel: intPtr(6), CompletedAt: t0},
	}

	stats := computeStats([]primitive.ObjectID{a, b, c}, logs)

	assert.Equal(t, 1, stats.CompletedCount)
	assert.Equal(t, 3, stats.TotalExercises)
	assert.InDelta(t, 100.0/3, stats.CompletionRate, 1e-9)
	assert.Equal(t, 2, stats.TotalSessions)
	require.NotNil(t, stats.AvgPain)
	assert.InDelta(t, 4.0, *stats.AvgPain, 1e-9)
	require.NotNil(t, stats.AvgDifficulty)
	assert.InDelta(t, 3.0, *stats.AvgDifficulty, 1e-9)
	require.NotNil(t, stats.AvgMood)
	assert.InDelta(t, 5.0, *stats.AvgMood, 1e-9)
	require.NotNil(t, stats.LastActivity)
	assert.Equal(t, t0.Add(48*time.Hour), *stats.LastActivity)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := computeStats(nil, nil)
	assert.Equal(t, ComplexStats{}, stats)
}

func TestRecordCompletion_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Yana")
	a, outside := f.exercise(t, "A"), f.exercise(t, "Outside")
	cx := f.complex(t, p.ID, a)

	valid := CompletionInput{Token: cx.AccessToken, ExerciseID: a.ID, SessionID: "s1", Completed: true}
	tests := []struct {
		name   string
		mutate func(in *CompletionInput)
		kind   apperr.Kind
	}{
		{"missing session", func(in *CompletionInput) { in.SessionID = " " }, apperr.KindValidation},
		{"pain above 10", func(in *CompletionInput) { in.PainLevel = intPtr(11) }, apperr.KindValidation},
		{"negative pain", func(in *CompletionInput) { in.PainLevel = intPtr(-1) }, apperr.KindValidation},
		{"difficulty below 1", func(in *CompletionInput) { in.DifficultyRating = intPtr(0) }, apperr.KindValidation},
		{"mood above 5", func(in *CompletionInput) { in.MoodRating = intPtr(6) }, apperr.KindValidation},
		{"exercise outside complex", func(in *CompletionInput) { in.ExerciseID = outside.ID }, apperr.KindValidation},
		{"unknown token", func(in *CompletionInput) { in.Token = "nope" }, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := f.progress.RecordCompletion(f.ctx, in)
			assert.True(t, apperr.Is(err, tt.kind), "got %v", err)
		})
	}

	logs, err := f.store.Progress.ListByComplex(f.ctx, cx.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestRecordCompletion_AppendsDuplicates(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Zakhar")
	a := f.exercise(t, "A")
	cx := f.complex(t, p.ID, a)

	in := CompletionInput{Token: cx.AccessToken, ExerciseID: a.ID, SessionID: "tap", Completed: true, PainLevel: intPtr(0)}
	first, err := f.progress.RecordCompletion(f.ctx, in)
	require.NoError(t, err)
	_, err = f.progress.RecordCompletion(f.ctx, in)
	require.NoError(t, err)

	assert.Equal(t, p.ID, first.PatientID)
	assert.Equal(t, f.now, first.CompletedAt)

	progress, err := f.progress.GetComplexProgress(f.ctx, f.instructor, cx.ID)
	require.NoError(t, err)
	assert.Len(t, progress.Logs, 2)
	assert.Equal(t, 1, progress.Stats.TotalSessions)
	assert.Equal(t, 1, progress.Stats.CompletedCount)
	assert.InDelta(t, 100.0, progress.Stats.CompletionRate, 1e-9)
}

func TestRecordCompletion_TrashedComplexIsUnreachable(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Alla")
	a := f.exercise(t, "A")
	cx := f.complex(t, p.ID, a)
	require.NoError(t, f.lifecycle.SoftDeleteComplex(f.ctx, f.instructor, cx.ID))

	_, err := f.progress.RecordCompletion(f.ctx, CompletionInput{Token: cx.AccessToken, ExerciseID: a.ID, SessionID: "s"})
	assert.ErrorIs(t, err, ErrComplexNotFound)
}

func TestGetComplexProgress_ForeignInstructor(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Bella")
	cx := f.complex(t, p.ID, f.exercise(t, "A"))

	_, err := f.progress.GetComplexProgress(f.ctx, primitive.NewObjectID(), cx.ID)
	assert.ErrorIs(t, err, ErrComplexNotFound)
}

func TestRecordDiaryEntry_UpsertsPerDay(t *testing.T) {
	f := newFixture(t)
	_, userID := f.linkedPatient(t, "Chloe")

	first, err := f.progress.RecordDiaryEntry(f.ctx, userID, DiaryInput{PainLevel: intPtr(5), Swelling: "more"})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-15", first.EntryDate)
	require.NotNil(t, first.Swelling)
	assert.Equal(t, domain.SwellingMore, *first.Swelling)

	second, err := f.progress.RecordDiaryEntry(f.ctx, userID, DiaryInput{
		Date:          "2024-05-15",
		PainLevel:     intPtr(3),
		Swelling:      "none",
		ExercisesDone: true,
		Answers:       domain.DiaryAnswers{SleepQuality: "good", Stiffness: "morning", PainAtRest: intPtr(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Nil(t, second.Swelling)

	history, err := f.progress.DiaryHistory(f.ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 3, history[0].PainLevel)
	assert.True(t, history[0].ExercisesDone)
	assert.Equal(t, "good", history[0].Answers.SleepQuality)

	day, err := f.progress.DiaryDay(f.ctx, userID, "2024-05-15")
	require.NoError(t, err)
	assert.Equal(t, second.ID, day.ID)

	_, err = f.progress.DiaryDay(f.ctx, userID, "2024-05-14")
	assert.ErrorIs(t, err, ErrDiaryNotFound)
}

func TestRecordDiaryEntry_Validation(t *testing.T) {
	f := newFixture(t)
	_, userID := f.linkedPatient(t, "Daria")

	tests := []struct {
		name string
		in   DiaryInput
	}{
		{"missing pain", DiaryInput{}},
		{"pain out of range", DiaryInput{PainLevel: intPtr(12)}},
		{"future date", DiaryInput{Date: "2024-05-16", PainLevel: intPtr(2)}},
		{"malformed date", DiaryInput{Date: "15.05.2024", PainLevel: intPtr(2)}},
		{"unknown swelling", DiaryInput{PainLevel: intPtr(2), Swelling: "huge"}},
		{"unknown sleep quality", DiaryInput{PainLevel: intPtr(2), Answers: domain.DiaryAnswers{SleepQuality: "excellent"}}},
		{"unknown stiffness", DiaryInput{PainLevel: intPtr(2), Answers: domain.DiaryAnswers{Stiffness: "evening"}}},
		{"pain on movement out of range", DiaryInput{PainLevel: intPtr(2), Answers: domain.DiaryAnswers{PainOnMovement: intPtr(11)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.progress.RecordDiaryEntry(f.ctx, userID, tt.in)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}

	past, err := f.progress.RecordDiaryEntry(f.ctx, userID, DiaryInput{Date: "2024-05-10", PainLevel: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-10", past.EntryDate)
}

func TestRecordDiaryEntry_TodayFollowsConfiguredZone(t *testing.T) {
	f := newFixture(t)
	_, userID := f.linkedPatient(t, "Elena")
	f.now = time.Date(2024, 5, 15, 22, 30, 0, 0, time.UTC)
	zone := time.FixedZone("UTC+3", 3*60*60)
	progress := NewProgressService(f.store, func() time.Time { return f.now }, zone, f.log)

	entry, err := progress.RecordDiaryEntry(f.ctx, userID, DiaryInput{PainLevel: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-16", entry.EntryDate)

	// the 16th is not in the future for a patient in UTC+3
	_, err = progress.RecordDiaryEntry(f.ctx, userID, DiaryInput{Date: "2024-05-16", PainLevel: intPtr(2)})
	assert.NoError(t, err)
}

func TestDiary_RequiresActiveLinkedPatient(t *testing.T) {
	f := newFixture(t)
	p, userID := f.linkedPatient(t, "Fiona")

	_, err := f.progress.RecordDiaryEntry(f.ctx, primitive.NewObjectID(), DiaryInput{PainLevel: intPtr(1)})
	assert.ErrorIs(t, err, ErrPatientNotFound)

	require.NoError(t, f.lifecycle.SoftDeletePatient(f.ctx, f.instructor, p.ID))
	_, err = f.progress.RecordDiaryEntry(f.ctx, userID, DiaryInput{PainLevel: intPtr(1)})
	assert.ErrorIs(t, err, ErrPatientNotFound)

	// the instructor still reads the diary of a trashed patient
	_, err = f.progress.PatientDiary(f.ctx, f.instructor, p.ID, 10)
	assert.NoError(t, err)
}

func TestNormalizeSwelling(t *testing.T) {
	for _, raw := range []string{"", "none", " None "} {
		got, err := NormalizeSwelling(raw)
		require.NoError(t, err)
		assert.Nil(t, got, raw)
	}
	for raw, want := range map[string]domain.Swelling{"less": domain.SwellingLess, "SAME": domain.SwellingSame, "more": domain.SwellingMore} {
		got, err := NormalizeSwelling(raw)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want, *got)
	}
	_, err := NormalizeSwelling("swollen")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
