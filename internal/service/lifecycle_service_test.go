package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/repository"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPatientSoftDeleteRestore_KeepsFields(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Olga")
	cx := f.complex(t, p.ID, f.exercise(t, "A"))

	before, err := f.store.Patients.GetByID(f.ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, f.lifecycle.SoftDeletePatient(f.ctx, f.instructor, p.ID))
	trashed, err := f.store.Patients.GetByID(f.ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, trashed.IsActive)

	// soft delete does not cascade
	c, err := f.store.Complexes.GetByID(f.ctx, cx.ID)
	require.NoError(t, err)
	assert.True(t, c.IsActive)

	require.NoError(t, f.lifecycle.RestorePatient(f.ctx, f.instructor, p.ID))
	after, err := f.store.Patients.GetByID(f.ctx, p.ID)
	require.NoError(t, err)

	assert.True(t, after.IsActive)
	after.UpdatedAt = before.UpdatedAt
	assert.Equal(t, before, after)
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Pavel")
	cx := f.complex(t, p.ID, f.exercise(t, "A"))

	err := f.lifecycle.RestorePatient(f.ctx, f.instructor, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.lifecycle.PurgePatient(f.ctx, f.instructor, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	err = f.lifecycle.RestoreComplex(f.ctx, f.instructor, cx.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.lifecycle.PurgeComplex(f.ctx, f.instructor, cx.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, f.lifecycle.SoftDeletePatient(f.ctx, f.instructor, p.ID))
	err = f.lifecycle.SoftDeletePatient(f.ctx, f.instructor, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	// nothing was purged
	_, err = f.store.Patients.GetByID(f.ctx, p.ID)
	assert.NoError(t, err)
}

func TestLifecycle_ForeignOwnerIsNotFound(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Rita")
	cx := f.complex(t, p.ID, f.exercise(t, "A"))
	stranger := primitive.NewObjectID()

	assert.ErrorIs(t, f.lifecycle.SoftDeletePatient(f.ctx, stranger, p.ID), ErrPatientNotFound)
	assert.ErrorIs(t, f.lifecycle.SoftDeleteComplex(f.ctx, stranger, cx.ID), ErrComplexNotFound)
	_, err := f.lifecycle.PurgeComplex(f.ctx, stranger, cx.ID)
	assert.ErrorIs(t, err, ErrComplexNotFound)
	assert.ErrorIs(t, f.lifecycle.SoftDeletePatient(f.ctx, f.instructor, primitive.NewObjectID()), ErrPatientNotFound)
}

func TestPurgeComplex_RemovesLogsAndRows(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Semen")
	a, b := f.exercise(t, "A"), f.exercise(t, "B")
	cx := f.complex(t, p.ID, a, b)
	other := f.complex(t, p.ID, a)
	f.complete(t, cx, a.ID, "s1", intPtr(3))
	f.complete(t, cx, b.ID, "s1", nil)
	f.complete(t, other, a.ID, "s2", nil)

	require.NoError(t, f.lifecycle.SoftDeleteComplex(f.ctx, f.instructor, cx.ID))
	res, err := f.lifecycle.PurgeComplex(f.ctx, f.instructor, cx.ID)
	require.NoError(t, err)
	assert.Equal(t, &PurgeResult{ProgressLogs: 2, ComplexExercises: 2, Complexes: 1}, res)

	logs, err := f.store.Progress.ListByComplex(f.ctx, cx.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
	rows, err := f.store.Complexes.ListExercises(f.ctx, cx.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	_, err = f.store.Complexes.GetByID(f.ctx, cx.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// the sibling complex is untouched
	logs, err = f.store.Progress.ListByComplex(f.ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestPurgePatient_RemovesEverything(t *testing.T) {
	f := newFixture(t)
	f.seedPhases(t)
	p, userID := f.linkedPatient(t, "Tanya")
	a := f.exercise(t, "A")
	c1 := f.complex(t, p.ID, a)
	c2 := f.complex(t, p.ID, a)
	f.complete(t, c1, a.ID, "s1", nil)
	f.complete(t, c2, a.ID, "s2", nil)
	_, err := f.progress.RecordDiaryEntry(f.ctx, userID, DiaryInput{PainLevel: intPtr(3)})
	require.NoError(t, err)
	_, err = f.roadmap.CreateProgram(f.ctx, f.instructor, ProgramInput{PatientID: p.ID})
	require.NoError(t, err)

	require.NoError(t, f.lifecycle.SoftDeletePatient(f.ctx, f.instructor, p.ID))
	res, err := f.lifecycle.PurgePatient(f.ctx, f.instructor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, &PurgeResult{ProgressLogs: 2, ComplexExercises: 2, Complexes: 2, DiaryEntries: 1, RehabPrograms: 1}, res)

	_, err = f.store.Patients.GetByID(f.ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	complexes, err := f.store.Complexes.ListByPatient(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, complexes)
	logs, err := f.store.Progress.ListByComplexIDs(f.ctx, []primitive.ObjectID{c1.ID, c2.ID})
	require.NoError(t, err)
	assert.Empty(t, logs)
	for _, id := range []primitive.ObjectID{c1.ID, c2.ID} {
		rows, err := f.store.Complexes.ListExercises(f.ctx, id)
		require.NoError(t, err)
		assert.Empty(t, rows)
	}
	dates, err := f.store.Diary.ListDates(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, dates)
	_, err = f.store.Rehab.GetProgram(f.ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPurgePatient_RollsBackOnFailure(t *testing.T) {
	for _, op := range []string{"progress.DeleteByComplexIDs", "complexes.DeleteByPatient", "diary.DeleteByPatient", "patients.Delete"} {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t)
			p, userID := f.linkedPatient(t, "Ulyana")
			a := f.exercise(t, "A")
			cx := f.complex(t, p.ID, a)
			f.complete(t, cx, a.ID, "s1", intPtr(2))
			_, err := f.progress.RecordDiaryEntry(f.ctx, userID, DiaryInput{PainLevel: intPtr(4)})
			require.NoError(t, err)
			require.NoError(t, f.lifecycle.SoftDeletePatient(f.ctx, f.instructor, p.ID))

			f.mem.InjectFault(op, errors.New("connection reset"))
			_, err = f.lifecycle.PurgePatient(f.ctx, f.instructor, p.ID)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindCascadeFailure))
			f.mem.ClearFaults()

			_, err = f.store.Patients.GetByID(f.ctx, p.ID)
			assert.NoError(t, err)
			_, err = f.store.Complexes.GetByID(f.ctx, cx.ID)
			assert.NoError(t, err)
			rows, err := f.store.Complexes.ListExercises(f.ctx, cx.ID)
			require.NoError(t, err)
			assert.Len(t, rows, 1)
			logs, err := f.store.Progress.ListByComplex(f.ctx, cx.ID)
			require.NoError(t, err)
			assert.Len(t, logs, 1)
			dates, err := f.store.Diary.ListDates(f.ctx, p.ID)
			require.NoError(t, err)
			assert.Len(t, dates, 1)

			// the purge succeeds once the store recovers
			_, err = f.lifecycle.PurgePatient(f.ctx, f.instructor, p.ID)
			assert.NoError(t, err)
		})
	}
}

func TestPurgeComplex_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "Fedor")
	a := f.exercise(t, "A")
	cx := f.complex(t, p.ID, a)
	f.complete(t, cx, a.ID, "s1", nil)
	require.NoError(t, f.lifecycle.SoftDeleteComplex(f.ctx, f.instructor, cx.ID))

	f.mem.InjectFault("complexes.Delete", errors.New("timeout"))
	_, err := f.lifecycle.PurgeComplex(f.ctx, f.instructor, cx.ID)
	assert.True(t, apperr.Is(err, apperr.KindCascadeFailure))

	logs, err := f.store.Progress.ListByComplex(f.ctx, cx.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	rows, err := f.store.Complexes.ListExercises(f.ctx, cx.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
