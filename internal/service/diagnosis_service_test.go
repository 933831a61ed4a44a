package service

import (
	"azarean/rehab-app/internal/apperr"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDiagnosisCatalog(t *testing.T) {
	f := newFixture(t)
	diagnoses := NewDiagnosisService(f.store)

	_, err := diagnoses.CreateDiagnosis(f.ctx, "   ", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	acl, err := diagnoses.CreateDiagnosis(f.ctx, " ACL reconstruction ", "knee")
	require.NoError(t, err)
	assert.Equal(t, "ACL reconstruction", acl.Name)
	_, err = diagnoses.CreateDiagnosis(f.ctx, "Ankle sprain", "")
	require.NoError(t, err)

	_, err = diagnoses.CreateDiagnosis(f.ctx, "ACL reconstruction", "")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	list, err := diagnoses.ListDiagnoses(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ACL reconstruction", list[0].Name)

	got, err := diagnoses.GetDiagnosis(f.ctx, acl.ID)
	require.NoError(t, err)
	assert.Equal(t, "knee", got.Description)

	_, err = diagnoses.GetDiagnosis(f.ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrDiagnosisNotFound)
}
