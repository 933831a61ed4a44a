package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/logger"
	"azarean/rehab-app/internal/repository"
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PatientInput holds the editable profile fields of a patient.
type PatientInput struct {
	FullName  string
	Email     string
	Phone     string
	BirthDate *time.Time
	Notes     string
}

type PatientService interface {
	CreatePatient(ctx context.Context, instructorID primitive.ObjectID, in PatientInput) (*domain.Patient, error)
	GetPatient(ctx context.Context, instructorID, patientID primitive.ObjectID) (*domain.Patient, error)
	UpdatePatient(ctx context.Context, instructorID, patientID primitive.ObjectID, in PatientInput) (*domain.Patient, error)
	ListTrash(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Patient, error)
	// LinkAccount attaches the patient-role user registered under email.
	LinkAccount(ctx context.Context, instructorID, patientID primitive.ObjectID, email string) (*domain.Patient, error)
	// GetMyPatient resolves the active patient record of a patient account.
	GetMyPatient(ctx context.Context, userID primitive.ObjectID) (*domain.Patient, error)
}

type patientService struct {
	patientRepo repository.PatientRepository
	userRepo    repository.UserRepository
	access      access
	log         *logger.Logger
}

func NewPatientService(store repository.Store, log *logger.Logger) PatientService {
	return &patientService{
		patientRepo: store.Patients,
		userRepo:    store.Users,
		access:      newAccess(store),
		log:         log.With("service", "patient"),
	}
}

func (s *patientService) CreatePatient(ctx context.Context, instructorID primitive.ObjectID, in PatientInput) (*domain.Patient, error) {
	if err := validatePatient(in); err != nil {
		return nil, err
	}
	p := &domain.Patient{
		InstructorID: instructorID,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        strings.TrimSpace(strings.ToLower(in.Email)),
		Phone:        in.Phone,
		BirthDate:    in.BirthDate,
		Notes:        in.Notes,
		IsActive:     true,
	}
	if _, err := s.patientRepo.Create(ctx, p); err != nil {
		return nil, storeErr(err, nil)
	}
	s.log.Info("patient created", "patientId", p.ID.Hex(), "instructorId", instructorID.Hex())
	return p, nil
}

func (s *patientService) GetPatient(ctx context.Context, instructorID, patientID primitive.ObjectID) (*domain.Patient, error) {
	return s.access.patient(ctx, instructorID, patientID)
}

func (s *patientService) UpdatePatient(ctx context.Context, instructorID, patientID primitive.ObjectID, in PatientInput) (*domain.Patient, error) {
	if err := validatePatient(in); err != nil {
		return nil, err
	}
	p, err := s.access.patient(ctx, instructorID, patientID)
	if err != nil {
		return nil, err
	}
	p.FullName = strings.TrimSpace(in.FullName)
	p.Email = strings.TrimSpace(strings.ToLower(in.Email))
	p.Phone = in.Phone
	p.BirthDate = in.BirthDate
	p.Notes = in.Notes
	if err = s.patientRepo.Update(ctx, p); err != nil {
		return nil, storeErr(err, ErrPatientNotFound)
	}
	return p, nil
}

func (s *patientService) ListTrash(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Patient, error) {
	trashed := false
	list, err := s.patientRepo.ListByInstructor(ctx, instructorID, &trashed)
	return list, storeErr(err, nil)
}

func (s *patientService) LinkAccount(ctx context.Context, instructorID, patientID primitive.ObjectID, email string) (*domain.Patient, error) {
	p, err := s.access.patient(ctx, instructorID, patientID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}
	if !user.IsPatient() {
		return nil, apperr.Validation("account %s is not a patient account", user.Email)
	}

	if err = s.patientRepo.LinkUser(ctx, p.ID, user.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("account is already linked to another patient")
		}
		return nil, storeErr(err, ErrPatientNotFound)
	}
	p.UserID = &user.ID
	s.log.Info("patient account linked", "patientId", p.ID.Hex(), "userId", user.ID.Hex())
	return p, nil
}

func (s *patientService) GetMyPatient(ctx context.Context, userID primitive.ObjectID) (*domain.Patient, error) {
	return s.access.linkedPatient(ctx, userID)
}

func validatePatient(in PatientInput) error {
	if strings.TrimSpace(in.FullName) == "" {
		return apperr.Validation("full name is required")
	}
	if in.BirthDate != nil && in.BirthDate.After(time.Now()) {
		return apperr.Validation("birth date cannot be in the future")
	}
	return nil
}
