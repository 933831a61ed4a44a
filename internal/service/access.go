package service

import (
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/repository"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// access is the single ownership check used by every instructor-facing
// service. A record owned by someone else is reported exactly like a
// missing one.
type access struct {
	patients  repository.PatientRepository
	complexes repository.ComplexRepository
	templates repository.TemplateRepository
}

func newAccess(store repository.Store) access {
	return access{patients: store.Patients, complexes: store.Complexes, templates: store.Templates}
}

func (a access) patient(ctx context.Context, instructorID, patientID primitive.ObjectID) (*domain.Patient, error) {
	p, err := a.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, storeErr(err, ErrPatientNotFound)
	}
	if p.InstructorID != instructorID {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (a access) complex(ctx context.Context, instructorID, complexID primitive.ObjectID) (*domain.Complex, error) {
	c, err := a.complexes.GetByID(ctx, complexID)
	if err != nil {
		return nil, storeErr(err, ErrComplexNotFound)
	}
	if c.InstructorID != instructorID {
		return nil, ErrComplexNotFound
	}
	return c, nil
}

func (a access) template(ctx context.Context, instructorID, templateID primitive.ObjectID) (*domain.Template, error) {
	t, err := a.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, storeErr(err, ErrTemplateNotFound)
	}
	if t.InstructorID != instructorID {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}

// linkedPatient resolves the ACTIVE patient record of a patient account.
func (a access) linkedPatient(ctx context.Context, userID primitive.ObjectID) (*domain.Patient, error) {
	p, err := a.patients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, ErrPatientNotFound)
	}
	if !p.IsActive {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

// byToken resolves the complex behind a public access token. A trashed
// complex, or one whose patient is trashed, is not reachable.
func (a access) byToken(ctx context.Context, token string) (*domain.Complex, error) {
	if token == "" {
		return nil, ErrComplexNotFound
	}
	c, err := a.complexes.GetByAccessToken(ctx, token)
	if err != nil {
		return nil, storeErr(err, ErrComplexNotFound)
	}
	if !c.IsActive {
		return nil, ErrComplexNotFound
	}
	p, err := a.patients.GetByID(ctx, c.PatientID)
	if err != nil {
		return nil, storeErr(err, ErrComplexNotFound)
	}
	if !p.IsActive {
		return nil, ErrComplexNotFound
	}
	return c, nil
}
