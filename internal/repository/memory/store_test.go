package memory

import (
	"context"
	"errors"
	"testing"

	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()

	p := &domain.Patient{FullName: "Ann", IsActive: true, InstructorID: primitive.NewObjectID()}
	_, err := repos.Patients.Create(ctx, p)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, repos.Patients.SetActive(ctx, p.ID, false))
		require.NoError(t, repos.Patients.Delete(ctx, p.ID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repos.Patients.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestInjectedFaultFailsOperation(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()
	boom := errors.New("disk full")
	store.InjectFault("complexes.Delete", boom)

	c := &domain.Complex{AccessToken: "t1", IsActive: true}
	_, err := repos.Complexes.Create(ctx, c)
	require.NoError(t, err)
	assert.ErrorIs(t, repos.Complexes.Delete(ctx, c.ID), boom)

	store.ClearFaults()
	assert.NoError(t, repos.Complexes.Delete(ctx, c.ID))
}

func TestComplexExerciseOrderIsUnique(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	complexID := primitive.NewObjectID()

	rows := []domain.ComplexExercise{
		{ComplexID: complexID, ExerciseID: primitive.NewObjectID(), OrderNumber: 2},
		{ComplexID: complexID, ExerciseID: primitive.NewObjectID(), OrderNumber: 1},
	}
	require.NoError(t, repos.Complexes.InsertExercises(ctx, rows))

	listed, err := repos.Complexes.ListExercises(ctx, complexID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, 1, listed[0].OrderNumber)
	assert.Equal(t, 2, listed[1].OrderNumber)

	err = repos.Complexes.InsertExercises(ctx, []domain.ComplexExercise{{ComplexID: complexID, OrderNumber: 1}})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestDiaryUpsertKeepsOneRowPerDate(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	patientID := primitive.NewObjectID()

	first, err := repos.Diary.Upsert(ctx, &domain.DiaryEntry{PatientID: patientID, EntryDate: "2024-03-01", PainLevel: 5})
	require.NoError(t, err)
	second, err := repos.Diary.Upsert(ctx, &domain.DiaryEntry{PatientID: patientID, EntryDate: "2024-03-01", PainLevel: 2})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	_, err = repos.Diary.Upsert(ctx, &domain.DiaryEntry{PatientID: patientID, EntryDate: "2024-03-03", PainLevel: 1})
	require.NoError(t, err)

	dates, err := repos.Diary.ListDates(ctx, patientID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-03", "2024-03-01"}, dates)

	got, err := repos.Diary.GetByDate(ctx, patientID, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2, got.PainLevel)
}

func TestProgramCheckedCriteriaAreCopied(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	patientID := primitive.NewObjectID()

	prog := &domain.RehabProgram{PatientID: patientID, CurrentPhase: 1, CheckedCriteria: []int{0}}
	_, err := repos.Rehab.CreateProgram(ctx, prog)
	require.NoError(t, err)
	prog.CheckedCriteria[0] = 9

	got, err := repos.Rehab.GetProgram(ctx, patientID)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got.CheckedCriteria)

	_, err = repos.Rehab.CreateProgram(ctx, &domain.RehabProgram{PatientID: patientID})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}
