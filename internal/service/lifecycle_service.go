package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/logger"
	"azarean/rehab-app/internal/repository"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PurgeResult counts the rows removed by a permanent delete.
type PurgeResult struct {
	ProgressLogs     int64 `json:"progressLogs"`
	ComplexExercises int64 `json:"complexExercises"`
	Complexes        int64 `json:"complexes"`
	DiaryEntries     int64 `json:"diaryEntries"`
	RehabPrograms    int64 `json:"rehabPrograms"`
}

// LifecycleService drives ACTIVE -> TRASHED -> ACTIVE | PURGED for patients
// and complexes. Any other transition is a validation error.
type LifecycleService interface {
	SoftDeletePatient(ctx context.Context, instructorID, patientID primitive.ObjectID) error
	RestorePatient(ctx context.Context, instructorID, patientID primitive.ObjectID) error
	PurgePatient(ctx context.Context, instructorID, patientID primitive.ObjectID) (*PurgeResult, error)

	SoftDeleteComplex(ctx context.Context, instructorID, complexID primitive.ObjectID) error
	RestoreComplex(ctx context.Context, instructorID, complexID primitive.ObjectID) error
	PurgeComplex(ctx context.Context, instructorID, complexID primitive.ObjectID) (*PurgeResult, error)
}

type lifecycleService struct {
	store  repository.Store
	access access
	log    *logger.Logger
}

func NewLifecycleService(store repository.Store, log *logger.Logger) LifecycleService {
	return &lifecycleService{
		store:  store,
		access: newAccess(store),
		log:    log.With("service", "lifecycle"),
	}
}

// SoftDeletePatient only flips the flag. Complexes are left as they are.
func (s *lifecycleService) SoftDeletePatient(ctx context.Context, instructorID, patientID primitive.ObjectID) error {
	p, err := s.access.patient(ctx, instructorID, patientID)
	if err != nil {
		return err
	}
	if p.LifecycleState() != domain.StateActive {
		return invalidTransition("patient", p.LifecycleState(), "move to trash")
	}
	if err = s.store.Patients.SetActive(ctx, p.ID, false); err != nil {
		return storeErr(err, ErrPatientNotFound)
	}
	s.log.Info("patient trashed", "patientId", p.ID.Hex())
	return nil
}

func (s *lifecycleService) RestorePatient(ctx context.Context, instructorID, patientID primitive.ObjectID) error {
	p, err := s.access.patient(ctx, instructorID, patientID)
	if err != nil {
		return err
	}
	if p.LifecycleState() != domain.StateTrashed {
		return invalidTransition("patient", p.LifecycleState(), "restore")
	}
	if err = s.store.Patients.SetActive(ctx, p.ID, true); err != nil {
		return storeErr(err, ErrPatientNotFound)
	}
	s.log.Info("patient restored", "patientId", p.ID.Hex())
	return nil
}

// PurgePatient removes, in dependency order and in one transaction, the
// progress logs, exercise rows and complexes of the patient, then the diary,
// the rehab program and the patient itself.
func (s *lifecycleService) PurgePatient(ctx context.Context, instructorID, patientID primitive.ObjectID) (*PurgeResult, error) {
	p, err := s.access.patient(ctx, instructorID, patientID)
	if err != nil {
		return nil, err
	}
	if p.LifecycleState() != domain.StateTrashed {
		return nil, invalidTransition("patient", p.LifecycleState(), "delete permanently")
	}

	var res PurgeResult
	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		res = PurgeResult{}
		complexes, err := s.store.Complexes.ListByPatient(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list complexes: %w", err)
		}
		ids := make([]primitive.ObjectID, len(complexes))
		for i, c := range complexes {
			ids[i] = c.ID
		}

		if res.ProgressLogs, err = s.store.Progress.DeleteByComplexIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete progress logs: %w", err)
		}
		if res.ComplexExercises, err = s.store.Complexes.DeleteExercisesByComplexIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete complex exercises: %w", err)
		}
		if res.Complexes, err = s.store.Complexes.DeleteByPatient(ctx, p.ID); err != nil {
			return fmt.Errorf("delete complexes: %w", err)
		}
		if res.DiaryEntries, err = s.store.Diary.DeleteByPatient(ctx, p.ID); err != nil {
			return fmt.Errorf("delete diary entries: %w", err)
		}
		if res.RehabPrograms, err = s.store.Rehab.DeleteProgram(ctx, p.ID); err != nil {
			return fmt.Errorf("delete rehab program: %w", err)
		}
		if err = s.store.Patients.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete patient: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("patient purge rolled back", "patientId", p.ID.Hex(), "error", err)
		return nil, apperr.Cascade(err)
	}

	s.log.Info("patient purged", "patientId", p.ID.Hex(),
		"complexes", res.Complexes, "progressLogs", res.ProgressLogs, "diaryEntries", res.DiaryEntries)
	return &res, nil
}

func (s *lifecycleService) SoftDeleteComplex(ctx context.Context, instructorID, complexID primitive.ObjectID) error {
	c, err := s.access.complex(ctx, instructorID, complexID)
	if err != nil {
		return err
	}
	if c.LifecycleState() != domain.StateActive {
		return invalidTransition("complex", c.LifecycleState(), "move to trash")
	}
	if err = s.store.Complexes.SetActive(ctx, c.ID, false); err != nil {
		return storeErr(err, ErrComplexNotFound)
	}
	s.log.Info("complex trashed", "complexId", c.ID.Hex())
	return nil
}

func (s *lifecycleService) RestoreComplex(ctx context.Context, instructorID, complexID primitive.ObjectID) error {
	c, err := s.access.complex(ctx, instructorID, complexID)
	if err != nil {
		return err
	}
	if c.LifecycleState() != domain.StateTrashed {
		return invalidTransition("complex", c.LifecycleState(), "restore")
	}
	if err = s.store.Complexes.SetActive(ctx, c.ID, true); err != nil {
		return storeErr(err, ErrComplexNotFound)
	}
	s.log.Info("complex restored", "complexId", c.ID.Hex())
	return nil
}

// PurgeComplex follows the patient purge order restricted to one complex.
func (s *lifecycleService) PurgeComplex(ctx context.Context, instructorID, complexID primitive.ObjectID) (*PurgeResult, error) {
	c, err := s.access.complex(ctx, instructorID, complexID)
	if err != nil {
		return nil, err
	}
	if c.LifecycleState() != domain.StateTrashed {
		return nil, invalidTransition("complex", c.LifecycleState(), "delete permanently")
	}

	var res PurgeResult
	ids := []primitive.ObjectID{c.ID}
	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		res = PurgeResult{}
		var err error
		if res.ProgressLogs, err = s.store.Progress.DeleteByComplexIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete progress logs: %w", err)
		}
		if res.ComplexExercises, err = s.store.Complexes.DeleteExercisesByComplexIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete complex exercises: %w", err)
		}
		if err = s.store.Complexes.Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("delete complex: %w", err)
		}
		res.Complexes = 1
		return nil
	})
	if err != nil {
		s.log.Error("complex purge rolled back", "complexId", c.ID.Hex(), "error", err)
		return nil, apperr.Cascade(err)
	}

	s.log.Info("complex purged", "complexId", c.ID.Hex(), "progressLogs", res.ProgressLogs)
	return &res, nil
}
