package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/storage"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStorage records calls and hands out predictable URLs.
type fakeStorage struct {
	uploads []string
	deleted []string
}

func (s *fakeStorage) GeneratePresignedUploadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	s.uploads = append(s.uploads, key)
	return "https://media.test/put/" + key, nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://media.test/get/" + key, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func TestExerciseCRUD(t *testing.T) {
	f := newFixture(t)
	svc := NewExerciseService(f.store, &fakeStorage{}, f.log)

	_, err := svc.CreateExercise(f.ctx, f.instructor, ExerciseInput{Title: "  "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	created, err := svc.CreateExercise(f.ctx, f.instructor, ExerciseInput{Title: " Wall squat ", BodyRegion: "knee"})
	require.NoError(t, err)
	assert.Equal(t, "Wall squat", created.Title)

	_, err = svc.UpdateExercise(f.ctx, primitive.NewObjectID(), created.ID, ExerciseInput{Title: "Hijack"})
	assert.ErrorIs(t, err, ErrExerciseNotFound)

	updated, err := svc.UpdateExercise(f.ctx, f.instructor, created.ID, ExerciseInput{Title: "Wall sit", BodyRegion: "knee"})
	require.NoError(t, err)
	assert.Equal(t, "Wall sit", updated.Title)

	// any instructor can read the shared library
	list, err := svc.ListExercises(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Wall sit", list[0].Title)

	require.NoError(t, svc.DeleteExercise(f.ctx, f.instructor, created.ID))
	_, err = svc.GetExercise(f.ctx, created.ID)
	assert.ErrorIs(t, err, ErrExerciseNotFound)
}

func TestDeleteExercise_InUse(t *testing.T) {
	f := newFixture(t)
	svc := NewExerciseService(f.store, &fakeStorage{}, f.log)
	p := f.patient(t, "Nina")
	used, inTemplate := f.exercise(t, "Used"), f.exercise(t, "Template only")
	f.complex(t, p.ID, used)
	_, err := f.composition.CreateTemplate(f.ctx, f.instructor, TemplateInput{Name: "T", Exercises: []ExerciseEntry{repsEntry(inTemplate.ID, 1, 5)}})
	require.NoError(t, err)

	for _, id := range []primitive.ObjectID{used.ID, inTemplate.ID} {
		err = svc.DeleteExercise(f.ctx, f.instructor, id)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		_, err = svc.GetExercise(f.ctx, id)
		assert.NoError(t, err)
	}
}

func TestExerciseMedia(t *testing.T) {
	f := newFixture(t)
	files := &fakeStorage{}
	svc := NewExerciseService(f.store, files, f.log)
	ex := f.exercise(t, "Bridge")

	_, err := svc.CreateMediaUpload(f.ctx, f.instructor, ex.ID, "demo.pdf", "application/pdf")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	first, err := svc.CreateMediaUpload(f.ctx, f.instructor, ex.ID, "Demo.MP4", "video/mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ObjectKey, "exercises/"+ex.ID.Hex()+"/"))
	assert.True(t, strings.HasSuffix(first.ObjectKey, ".mp4"))
	assert.Equal(t, "https://media.test/put/"+first.ObjectKey, first.UploadURL)

	_, err = svc.ConfirmMedia(f.ctx, f.instructor, ex.ID, "exercises/other/x.mp4", "video/mp4")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	view, err := svc.ConfirmMedia(f.ctx, f.instructor, ex.ID, first.ObjectKey, "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://media.test/get/"+first.ObjectKey, view.MediaURL)
	assert.Empty(t, files.deleted)

	second, err := svc.CreateMediaUpload(f.ctx, f.instructor, ex.ID, "still.png", "image/png")
	require.NoError(t, err)
	_, err = svc.ConfirmMedia(f.ctx, f.instructor, ex.ID, second.ObjectKey, "image/png")
	require.NoError(t, err)
	assert.Equal(t, []string{first.ObjectKey}, files.deleted)

	got, err := svc.GetExercise(f.ctx, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.MediaContentType)
	assert.Equal(t, "https://media.test/get/"+second.ObjectKey, got.MediaURL)
}

func TestExerciseMedia_StorageDisabled(t *testing.T) {
	f := newFixture(t)
	svc := NewExerciseService(f.store, storage.Disabled(), f.log)
	ex := f.exercise(t, "Plank")

	_, err := svc.CreateMediaUpload(f.ctx, f.instructor, ex.ID, "a.png", "image/png")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	// reads still work, just without a URL
	view, err := svc.GetExercise(f.ctx, ex.ID)
	require.NoError(t, err)
	assert.Empty(t, view.MediaURL)
}
