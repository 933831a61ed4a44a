package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateComplex_OrderFollowsSubmittedArray(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Anna")
	squat, bridge, plank, lunge := f.exercise(t, "Squat"), f.exercise(t, "Bridge"), f.exercise(t, "Plank"), f.exercise(t, "Lunge")

	submitted := []*domain.Exercise{plank, squat, lunge, bridge}
	c := f.complex(t, p.ID, submitted...)

	require.Len(t, c.Exercises, len(submitted))
	for i, item := range c.Exercises {
		assert.Equal(t, i+1, item.OrderNumber)
		assert.Equal(t, submitted[i].ID, item.ExerciseID)
		require.NotNil(t, item.Exercise)
		assert.Equal(t, submitted[i].Title, item.Exercise.Title)
	}
	assert.NotEmpty(t, c.AccessToken)
	assert.True(t, c.IsActive)
}

func TestCreateComplex_RejectsInvalidListWithoutWriting(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Boris")
	ex := f.exercise(t, "Squat")

	tests := []struct {
		name  string
		entry ExerciseEntry
	}{
		{"zero sets", ExerciseEntry{ExerciseID: ex.ID, ExerciseParams: domain.ExerciseParams{Sets: 0, Reps: intPtr(10)}}},
		{"reps and duration", ExerciseEntry{ExerciseID: ex.ID, ExerciseParams: domain.ExerciseParams{Sets: 3, Reps: intPtr(10), DurationSeconds: intPtr(30)}}},
		{"neither reps nor duration", ExerciseEntry{ExerciseID: ex.ID, ExerciseParams: domain.ExerciseParams{Sets: 3}}},
		{"negative reps", ExerciseEntry{ExerciseID: ex.ID, ExerciseParams: domain.ExerciseParams{Sets: 3, Reps: intPtr(-1)}}},
		{"negative rest", ExerciseEntry{ExerciseID: ex.ID, ExerciseParams: domain.ExerciseParams{Sets: 3, Reps: intPtr(10), RestSeconds: intPtr(-5)}}},
		{"unknown exercise", repsEntry(primitive.NewObjectID(), 3, 10)},
		{"missing exercise id", ExerciseEntry{ExerciseParams: domain.ExerciseParams{Sets: 3, Reps: intPtr(10)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.composition.CreateComplex(f.ctx, f.instructor, ComplexInput{
				PatientID: p.ID,
				Exercises: []ExerciseEntry{repsEntry(ex.ID, 3, 10), tt.entry},
			})
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}

	list, err := f.store.Complexes.ListByPatient(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateComplex_RejectsEmptyListAndUnknownDiagnosis(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Vera")
	ex := f.exercise(t, "Squat")

	_, err := f.composition.CreateComplex(f.ctx, f.instructor, ComplexInput{PatientID: p.ID})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	missing := primitive.NewObjectID()
	_, err = f.composition.CreateComplex(f.ctx, f.instructor, ComplexInput{
		PatientID:   p.ID,
		DiagnosisID: &missing,
		Exercises:   []ExerciseEntry{repsEntry(ex.ID, 3, 10)},
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateComplex_ForeignOrTrashedPatient(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Gleb")
	ex := f.exercise(t, "Squat")
	in := ComplexInput{PatientID: p.ID, Exercises: []ExerciseEntry{repsEntry(ex.ID, 3, 10)}}

	_, err := f.composition.CreateComplex(f.ctx, primitive.NewObjectID(), in)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	require.NoError(t, f.lifecycle.SoftDeletePatient(f.ctx, f.instructor, p.ID))
	_, err = f.composition.CreateComplex(f.ctx, f.instructor, in)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestReplaceComplex_ReplacesWholeList(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Dina")
	a, b, c := f.exercise(t, "A"), f.exercise(t, "B"), f.exercise(t, "C")
	cx := f.complex(t, p.ID, a, b, c)

	duration := ExerciseEntry{ExerciseID: a.ID, ExerciseParams: domain.ExerciseParams{Sets: 2, DurationSeconds: intPtr(45), RestSeconds: intPtr(0)}}
	got, err := f.composition.ReplaceComplex(f.ctx, f.instructor, cx.ID, ComplexInput{
		Title:     "Week 3",
		Warnings:  "stop if pain exceeds 5",
		Exercises: []ExerciseEntry{repsEntry(c.ID, 4, 8), duration},
	})
	require.NoError(t, err)

	assert.Equal(t, "Week 3", got.Title)
	assert.Equal(t, cx.AccessToken, got.AccessToken)
	require.Len(t, got.Exercises, 2)
	assert.Equal(t, c.ID, got.Exercises[0].ExerciseID)
	assert.Equal(t, 1, got.Exercises[0].OrderNumber)
	assert.Equal(t, a.ID, got.Exercises[1].ExerciseID)
	assert.Equal(t, 2, got.Exercises[1].OrderNumber)
	assert.Equal(t, 45, *got.Exercises[1].DurationSeconds)

	rows, err := f.store.Complexes.ListExercises(f.ctx, cx.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReplaceComplex_FailureKeepsPreviousList(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Egor")
	a, b := f.exercise(t, "A"), f.exercise(t, "B")
	cx := f.complex(t, p.ID, a, b)

	f.mem.InjectFault("complexes.InsertExercises", errors.New("disk full"))
	_, err := f.composition.ReplaceComplex(f.ctx, f.instructor, cx.ID, ComplexInput{
		Title:     "changed",
		Exercises: []ExerciseEntry{repsEntry(b.ID, 1, 1)},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	f.mem.ClearFaults()

	got, err := f.composition.GetComplex(f.ctx, f.instructor, cx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Knee program", got.Title)
	require.Len(t, got.Exercises, 2)
	assert.Equal(t, a.ID, got.Exercises[0].ExerciseID)
	assert.Equal(t, b.ID, got.Exercises[1].ExerciseID)
}

func TestReplaceComplex_RejectsTrashedAndMovedComplex(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Zoya")
	other := f.patient(t, "Ilya")
	a := f.exercise(t, "A")
	cx := f.complex(t, p.ID, a)
	list := []ExerciseEntry{repsEntry(a.ID, 3, 10)}

	_, err := f.composition.ReplaceComplex(f.ctx, f.instructor, cx.ID, ComplexInput{PatientID: other.ID, Exercises: list})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, f.lifecycle.SoftDeleteComplex(f.ctx, f.instructor, cx.ID))
	_, err = f.composition.ReplaceComplex(f.ctx, f.instructor, cx.ID, ComplexInput{Exercises: list})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateComplexFromTemplate_CopiesParameters(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Kira")
	a, b := f.exercise(t, "A"), f.exercise(t, "B")

	tmpl, err := f.composition.CreateTemplate(f.ctx, f.instructor, TemplateInput{
		Name:      "ACL early",
		Exercises: []ExerciseEntry{repsEntry(a.ID, 3, 10), repsEntry(b.ID, 2, 15)},
	})
	require.NoError(t, err)
	require.Len(t, tmpl.Exercises, 2)

	cx, err := f.composition.CreateComplexFromTemplate(f.ctx, f.instructor, FromTemplateInput{TemplateID: tmpl.ID, PatientID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, "ACL early", cx.Title)
	require.NotNil(t, cx.TemplateID)
	assert.Equal(t, tmpl.ID, *cx.TemplateID)

	_, err = f.composition.ReplaceTemplate(f.ctx, f.instructor, tmpl.ID, TemplateInput{
		Name:      "ACL early v2",
		Exercises: []ExerciseEntry{repsEntry(b.ID, 5, 20)},
	})
	require.NoError(t, err)

	rows, err := f.store.Complexes.ListExercises(f.ctx, cx.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, a.ID, rows[0].ExerciseID)
	assert.Equal(t, 3, rows[0].Sets)
	assert.Equal(t, 10, *rows[0].Reps)
	assert.Equal(t, b.ID, rows[1].ExerciseID)
	assert.Equal(t, 2, rows[1].Sets)
	assert.Equal(t, 15, *rows[1].Reps)

	require.NoError(t, f.composition.DeleteTemplate(f.ctx, f.instructor, tmpl.ID))
	rows, err = f.store.Complexes.ListExercises(f.ctx, cx.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGetComplexByToken(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Lev")
	cx := f.complex(t, p.ID, f.exercise(t, "A"))

	got, err := f.composition.GetComplexByToken(f.ctx, cx.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, cx.ID, got.ID)
	assert.Len(t, got.Exercises, 1)

	_, err = f.composition.GetComplexByToken(f.ctx, "unknown")
	assert.ErrorIs(t, err, ErrComplexNotFound)

	require.NoError(t, f.lifecycle.SoftDeleteComplex(f.ctx, f.instructor, cx.ID))
	_, err = f.composition.GetComplexByToken(f.ctx, cx.AccessToken)
	assert.ErrorIs(t, err, ErrComplexNotFound)
}

func TestGetComplexByToken_TrashedPatient(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Lev")
	ex := f.exercise(t, "A")
	cx := f.complex(t, p.ID, ex)

	require.NoError(t, f.lifecycle.SoftDeletePatient(f.ctx, f.instructor, p.ID))
	_, err := f.composition.GetComplexByToken(f.ctx, cx.AccessToken)
	assert.ErrorIs(t, err, ErrComplexNotFound)

	_, err = f.progress.RecordCompletion(f.ctx, CompletionInput{Token: cx.AccessToken, ExerciseID: ex.ID, SessionID: "s1", Completed: true})
	assert.ErrorIs(t, err, ErrComplexNotFound)

	require.NoError(t, f.lifecycle.RestorePatient(f.ctx, f.instructor, p.ID))
	_, err = f.composition.GetComplexByToken(f.ctx, cx.AccessToken)
	assert.NoError(t, err)
}

func TestListComplexes_FiltersByState(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Mila")
	ex := f.exercise(t, "A")
	keep := f.complex(t, p.ID, ex)
	trash := f.complex(t, p.ID, ex)
	require.NoError(t, f.lifecycle.SoftDeleteComplex(f.ctx, f.instructor, trash.ID))

	active, err := f.composition.ListComplexes(f.ctx, f.instructor, &p.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, keep.ID, active[0].ID)

	trashed, err := f.composition.ListComplexes(f.ctx, f.instructor, nil, false)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, trash.ID, trashed[0].ID)

	_, err = f.composition.ListComplexes(f.ctx, primitive.NewObjectID(), &p.ID, true)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}
