package memory

import (
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/repository"
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type exerciseRepo struct{ s *Store }

func (r *exerciseRepo) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	defer r.s.write(ctx)()
	exercise.ID = primitive.NewObjectID()
	exercise.CreatedAt = time.Now().UTC()
	exercise.UpdatedAt = exercise.CreatedAt
	r.s.data.exercises[exercise.ID] = *exercise
	return exercise.ID, nil
}

func (r *exerciseRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	defer r.s.read(ctx)()
	e, ok := r.s.data.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *exerciseRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error) {
	defer r.s.read(ctx)()
	out := make([]domain.Exercise, 0, len(ids))
	for id := range idSet(ids) {
		if e, ok := r.s.data.exercises[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *exerciseRepo) List(ctx context.Context) ([]domain.Exercise, error) {
	defer r.s.read(ctx)()
	out := make([]domain.Exercise, 0, len(r.s.data.exercises))
	for _, e := range r.s.data.exercises {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (r *exerciseRepo) Update(ctx context.Context, exercise *domain.Exercise) error {
	defer r.s.write(ctx)()
	existing, ok := r.s.data.exercises[exercise.ID]
	if !ok || existing.InstructorID != exercise.InstructorID {
		return repository.ErrNotFound
	}
	existing.Title = exercise.Title
	existing.Description = exercise.Description
	existing.Instructions = exercise.Instructions
	existing.BodyRegion = exercise.BodyRegion
	existing.Difficulty = exercise.Difficulty
	existing.VideoURL = exercise.VideoURL
	existing.UpdatedAt = time.Now().UTC()
	r.s.data.exercises[exercise.ID] = existing
	*exercise = existing
	return nil
}

func (r *exerciseRepo) SetMedia(ctx context.Context, id primitive.ObjectID, mediaKey, contentType string) error {
	defer r.s.write(ctx)()
	e, ok := r.s.data.exercises[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.MediaKey = mediaKey
	e.MediaContentType = contentType
	e.UpdatedAt = time.Now().UTC()
	r.s.data.exercises[id] = e
	return nil
}

func (r *exerciseRepo) Delete(ctx context.Context, id primitive.ObjectID, instructorID primitive.ObjectID) error {
	defer r.s.write(ctx)()
	e, ok := r.s.data.exercises[id]
	if !ok || e.InstructorID != instructorID {
		return repository.ErrNotFound
	}
	delete(r.s.data.exercises, id)
	return nil
}

type diagnosisRepo struct{ s *Store }

func (r *diagnosisRepo) Create(ctx context.Context, diagnosis *domain.Diagnosis) (primitive.ObjectID, error) {
	defer r.s.write(ctx)()
	for _, d := range r.s.data.diagnoses {
		if d.Name == diagnosis.Name {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	diagnosis.ID = primitive.NewObjectID()
	diagnosis.CreatedAt = time.Now().UTC()
	r.s.data.diagnoses[diagnosis.ID] = *diagnosis
	return diagnosis.ID, nil
}

func (r *diagnosisRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Diagnosis, error) {
	defer r.s.read(ctx)()
	d, ok := r.s.data.diagnoses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *diagnosisRepo) List(ctx context.Context) ([]domain.Diagnosis, error) {
	defer r.s.read(ctx)()
	out := make([]domain.Diagnosis, 0, len(r.s.data.diagnoses))
	for _, d := range r.s.data.diagnoses {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
