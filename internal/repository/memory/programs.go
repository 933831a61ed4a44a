package memory

import (
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/repository"
	"bytes"
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type complexRepo struct{ s *Store }

func (r *complexRepo) Create(ctx context.Context, complex *domain.Complex) (primitive.ObjectID, error) {
	defer r.s.write(ctx)()
	if err := r.s.fault("complexes.Create"); err != nil {
		return primitive.NilObjectID, err
	}
	for _, c := range r.s.data.complexes {
		if c.AccessToken == complex.AccessToken {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	complex.ID = primitive.NewObjectID()
	complex.CreatedAt = time.Now().UTC()
	complex.UpdatedAt = complex.CreatedAt
	r.s.data.complexes[complex.ID] = *complex
	return complex.ID, nil
}

func (r *complexRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Complex, error) {
	defer r.s.read(ctx)()
	c, ok := r.s.data.complexes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *complexRepo) GetByAccessToken(ctx context.Context, token string) (*domain.Complex, error) {
	defer r.s.read(ctx)()
	for _, c := range r.s.data.complexes {
		if c.AccessToken == token {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *complexRepo) ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]domain.Complex, error) {
	return r.filter(ctx, func(c domain.Complex) bool { return c.PatientID == patientID }), nil
}

func (r *complexRepo) ListByPatientIDs(ctx context.Context, patientIDs []primitive.ObjectID) ([]domain.Complex, error) {
	set := idSet(patientIDs)
	return r.filter(ctx, func(c domain.Complex) bool { return set[c.PatientID] }), nil
}

func (r *complexRepo) ListByInstructor(ctx context.Context, instructorID primitive.ObjectID, active *bool) ([]domain.Complex, error) {
	return r.filter(ctx, func(c domain.Complex) bool {
		return c.InstructorID == instructorID && (active == nil || c.IsActive == *active)
	}), nil
}

// filter returns matches newest first.
func (r *complexRepo) filter(ctx context.Context, keep func(domain.Complex) bool) []domain.Complex {
	defer r.s.read(ctx)()
	out := make([]domain.Complex, 0)
	for _, c := range r.s.data.complexes {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return out
}

func (r *complexRepo) UpdateMetadata(ctx context.Context, complex *domain.Complex) error {
	defer r.s.write(ctx)()
	if err := r.s.fault("complexes.UpdateMetadata"); err != nil {
		return err
	}
	existing, ok := r.s.data.complexes[complex.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.DiagnosisID = complex.DiagnosisID
	existing.Title = complex.Title
	existing.Recommendations = complex.Recommendations
	existing.Warnings = complex.Warnings
	existing.UpdatedAt = time.Now().UTC()
	r.s.data.complexes[complex.ID] = existing
	*complex = existing
	return nil
}

func (r *complexRepo) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	defer r.s.write(ctx)()
	if err := r.s.fault("complexes.SetActive"); err != nil {
		return err
	}
	c, ok := r.s.data.complexes[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsActive = active
	c.UpdatedAt = time.Now().UTC()
	r.s.data.complexes[id] = c
	return nil
}

func (r *complexRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.write(ctx)()
	if err := r.s.fault("complexes.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.data.complexes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.data.complexes, id)
	return nil
}

func (r *complexRepo) DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) (int64, error) {
	defer r.s.write(ctx)()
	if err := r.s.fault("complexes.DeleteByPatient"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range r.s.data.complexes {
		if c.PatientID == patientID {
			delete(r.s.data.complexes, id)
			n++
		}
	}
	return n, nil
}

func (r *complexRepo) InsertExercises(ctx context.Context, rows []domain.ComplexExercise) error {
	defer r.s.write(ctx)()
	if err := r.s.fault("complexes.InsertExercises"); err != nil {
		return err
	}
	type slot struct {
		complexID primitive.ObjectID
		order     int
	}
	taken := map[slot]bool{}
	for _, row := range r.s.data.complexExercises {
		taken[slot{row.ComplexID, row.OrderNumber}] = true
	}
	for _, row := range rows {
		key := slot{row.ComplexID, row.OrderNumber}
		if taken[key] {
			return repository.ErrDuplicate
		}
		taken[key] = true
	}
	for i := range rows {
		rows[i].ID = primitive.NewObjectID()
		r.s.data.complexExercises[rows[i].ID] = rows[i]
	}
	return nil
}

func (r *complexRepo) ListExercises(ctx context.Context, complexID primitive.ObjectID) ([]domain.ComplexExercise, error) {
	defer r.s.read(ctx)()
	out := make([]domain.ComplexExercise, 0)
	for _, row := range r.s.data.complexExercises {
		if row.ComplexID == complexID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}

func (r *complexRepo) DeleteExercises(ctx context.Context, complexID primitive.ObjectID) (int64, error) {
	return r.DeleteExercisesByComplexIDs(ctx, []primitive.ObjectID{complexID})
}

func (r *complexRepo) DeleteExercisesByComplexIDs(ctx context.Context, complexIDs []primitive.ObjectID) (int64, error) {
	defer r.s.write(ctx)()
	if err := r.s.fault("complexes.DeleteExercises"); err != nil {
		return 0, err
	}
	set := idSet(complexIDs)
	var n int64
	for id, row := range r.s.data.complexExercises {
		if set[row.ComplexID] {
			delete(r.s.data.complexExercises, id)
			n++
		}
	}
	return n, nil
}

func (r *complexRepo) CountExerciseRefs(ctx context.Context, exerciseID primitive.ObjectID) (int64, error) {
	defer r.s.read(ctx)()
	var n int64
	for _, row := range r.s.data.complexExercises {
		if row.ExerciseID == exerciseID {
			n++
		}
	}
	return n, nil
}

type templateRepo struct{ s *Store }

func (r *templateRepo) Create(ctx context.Context, template *domain.Template) (primitive.ObjectID, error) {
	defer r.s.write(ctx)()
	if err := r.s.fault("templates.Create"); err != nil {
		return primitive.NilObjectID, err
	}
	template.ID = primitive.NewObjectID()
	template.CreatedAt = time.Now().UTC()
	template.UpdatedAt = template.CreatedAt
	r.s.data.templates[template.ID] = *template
	return template.ID, nil
}

func (r *templateRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Template, error) {
	defer r.s.read(ctx)()
	t, ok := r.s.data.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *templateRepo) ListByInstructor(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Template, error) {
	defer r.s.read(ctx)()
	out := make([]domain.Template, 0)
	for _, t := range r.s.data.templates {
		if t.InstructorID == instructorID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *templateRepo) Update(ctx context.Context, template *domain.Template) error {
	defer r.s.write(ctx)()
	existing, ok := r.s.data.templates[template.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Name = template.Name
	existing.Description = template.Description
	existing.DiagnosisID = template.DiagnosisID
	existing.UpdatedAt = time.Now().UTC()
	r.s.data.templates[template.ID] = existing
	*template = existing
	return nil
}

func (r *templateRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.write(ctx)()
	if _, ok := r.s.data.templates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.data.templates, id)
	return nil
}

func (r *templateRepo) InsertExercises(ctx context.Context, rows []domain.TemplateExercise) error {
	defer r.s.write(ctx)()
	if err := r.s.fault("templates.InsertExercises"); err != nil {
		return err
	}
	for i := range rows {
		rows[i].ID = primitive.NewObjectID()
		r.s.data.templateExercises[rows[i].ID] = rows[i]
	}
	return nil
}

func (r *templateRepo) ListExercises(ctx context.Context, templateID primitive.ObjectID) ([]domain.TemplateExercise, error) {
	defer r.s.read(ctx)()
	out := make([]domain.TemplateExercise, 0)
	for _, row := range r.s.data.templateExercises {
		if row.TemplateID == templateID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}

func (r *templateRepo) DeleteExercises(ctx context.Context, templateID primitive.ObjectID) (int64, error) {
	defer r.s.write(ctx)()
	var n int64
	for id, row := range r.s.data.templateExercises {
		if row.TemplateID == templateID {
			delete(r.s.data.templateExercises, id)
			n++
		}
	}
	return n, nil
}

func (r *templateRepo) CountExerciseRefs(ctx context.Context, exerciseID primitive.ObjectID) (int64, error) {
	defer r.s.read(ctx)()
	var n int64
	for _, row := range r.s.data.templateExercises {
		if row.ExerciseID == exerciseID {
			n++
		}
	}
	return n, nil
}
