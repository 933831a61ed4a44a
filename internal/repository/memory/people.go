package memory

import (
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/repository"
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	defer r.s.write(ctx)()
	if err := r.s.fault("users.Create"); err != nil {
		return primitive.NilObjectID, err
	}
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, user.Email) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.s.data.users[user.ID] = *user
	return user.ID, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer r.s.read(ctx)()
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	defer r.s.read(ctx)()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

type patientRepo struct{ s *Store }

func (r *patientRepo) Create(ctx context.Context, patient *domain.Patient) (primitive.ObjectID, error) {
	defer r.s.write(ctx)()
	if err := r.s.fault("patients.Create"); err != nil {
		return primitive.NilObjectID, err
	}
	patient.ID = primitive.NewObjectID()
	patient.CreatedAt = time.Now().UTC()
	patient.UpdatedAt = patient.CreatedAt
	r.s.data.patients[patient.ID] = *patient
	return patient.ID, nil
}

func (r *patientRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Patient, error) {
	defer r.s.read(ctx)()
	p, ok := r.s.data.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *patientRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Patient, error) {
	defer r.s.read(ctx)()
	for _, p := range r.s.data.patients {
		if p.UserID != nil && *p.UserID == userID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *patientRepo) ListByInstructor(ctx context.Context, instructorID primitive.ObjectID, active *bool) ([]domain.Patient, error) {
	defer r.s.read(ctx)()
	out := make([]domain.Patient, 0)
	for _, p := range r.s.data.patients {
		if p.InstructorID != instructorID {
			continue
		}
		if active != nil && p.IsActive != *active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (r *patientRepo) Update(ctx context.Context, patient *domain.Patient) error {
	defer r.s.write(ctx)()
	existing, ok := r.s.data.patients[patient.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.FullName = patient.FullName
	existing.Email = patient.Email
	existing.Phone = patient.Phone
	existing.BirthDate = patient.BirthDate
	existing.Notes = patient.Notes
	existing.UpdatedAt = time.Now().UTC()
	r.s.data.patients[patient.ID] = existing
	*patient = existing
	return nil
}

func (r *patientRepo) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	defer r.s.write(ctx)()
	if err := r.s.fault("patients.SetActive"); err != nil {
		return err
	}
	p, ok := r.s.data.patients[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsActive = active
	p.UpdatedAt = time.Now().UTC()
	r.s.data.patients[id] = p
	return nil
}

func (r *patientRepo) LinkUser(ctx context.Context, id, userID primitive.ObjectID) error {
	defer r.s.write(ctx)()
	p, ok := r.s.data.patients[id]
	if !ok {
		return repository.ErrNotFound
	}
	for otherID, other := range r.s.data.patients {
		if otherID != id && other.UserID != nil && *other.UserID == userID {
			return repository.ErrDuplicate
		}
	}
	p.UserID = &userID
	p.UpdatedAt = time.Now().UTC()
	r.s.data.patients[id] = p
	return nil
}

func (r *patientRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.write(ctx)()
	if err := r.s.fault("patients.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.data.patients[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.data.patients, id)
	return nil
}
