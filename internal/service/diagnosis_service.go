package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/repository"
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DiagnosisService interface {
	CreateDiagnosis(ctx context.Context, name, description string) (*domain.Diagnosis, error)
	ListDiagnoses(ctx context.Context) ([]domain.Diagnosis, error)
	GetDiagnosis(ctx context.Context, id primitive.ObjectID) (*domain.Diagnosis, error)
}

type diagnosisService struct {
	diagnosisRepo repository.DiagnosisRepository
}

func NewDiagnosisService(store repository.Store) DiagnosisService {
	return &diagnosisService{diagnosisRepo: store.Diagnoses}
}

func (s *diagnosisService) CreateDiagnosis(ctx context.Context, name, description string) (*domain.Diagnosis, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("diagnosis name is required")
	}
	d := &domain.Diagnosis{Name: name, Description: description}
	if _, err := s.diagnosisRepo.Create(ctx, d); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("diagnosis %q already exists", name)
		}
		return nil, storeErr(err, nil)
	}
	return d, nil
}

func (s *diagnosisService) ListDiagnoses(ctx context.Context) ([]domain.Diagnosis, error) {
	list, err := s.diagnosisRepo.List(ctx)
	return list, storeErr(err, nil)
}

func (s *diagnosisService) GetDiagnosis(ctx context.Context, id primitive.ObjectID) (*domain.Diagnosis, error) {
	d, err := s.diagnosisRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, ErrDiagnosisNotFound)
	}
	return d, nil
}
