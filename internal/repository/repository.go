package repository

import (
	"azarean/rehab-app/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn as one atomic unit. Repository calls made with the ctx
// passed to fn take part in the transaction; if fn returns an error nothing
// it wrote is kept.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// PatientRepository stores Patient rows. active == nil lists both states.
type PatientRepository interface {
	Create(ctx context.Context, patient *domain.Patient) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Patient, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Patient, error)
	ListByInstructor(ctx context.Context, instructorID primitive.ObjectID, active *bool) ([]domain.Patient, error)
	Update(ctx context.Context, patient *domain.Patient) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	LinkUser(ctx context.Context, id, userID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ExerciseRepository defines the interface for interacting with exercise data.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error)
	List(ctx context.Context) ([]domain.Exercise, error)
	Update(ctx context.Context, exercise *domain.Exercise) error
	SetMedia(ctx context.Context, id primitive.ObjectID, mediaKey, contentType string) error
	Delete(ctx context.Context, id primitive.ObjectID, instructorID primitive.ObjectID) error // Ensure instructor owns the exercise
}

type DiagnosisRepository interface {
	Create(ctx context.Context, diagnosis *domain.Diagnosis) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Diagnosis, error)
	List(ctx context.Context) ([]domain.Diagnosis, error)
}

// ComplexRepository covers complexes and their ordered exercise rows.
type ComplexRepository interface {
	Create(ctx context.Context, complex *domain.Complex) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Complex, error)
	GetByAccessToken(ctx context.Context, token string) (*domain.Complex, error)
	ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]domain.Complex, error)
	ListByPatientIDs(ctx context.Context, patientIDs []primitive.ObjectID) ([]domain.Complex, error)
	ListByInstructor(ctx context.Context, instructorID primitive.ObjectID, active *bool) ([]domain.Complex, error)
	UpdateMetadata(ctx context.Context, complex *domain.Complex) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) (int64, error)

	InsertExercises(ctx context.Context, rows []domain.ComplexExercise) error
	ListExercises(ctx context.Context, complexID primitive.ObjectID) ([]domain.ComplexExercise, error) // ordered by orderNumber
	DeleteExercises(ctx context.Context, complexID primitive.ObjectID) (int64, error)
	DeleteExercisesByComplexIDs(ctx context.Context, complexIDs []primitive.ObjectID) (int64, error)
	CountExerciseRefs(ctx context.Context, exerciseID primitive.ObjectID) (int64, error)
}

// TemplateRepository covers templates and their ordered exercise rows.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.Template) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Template, error)
	ListByInstructor(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Template, error)
	Update(ctx context.Context, template *domain.Template) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	InsertExercises(ctx context.Context, rows []domain.TemplateExercise) error
	ListExercises(ctx context.Context, templateID primitive.ObjectID) ([]domain.TemplateExercise, error)
	DeleteExercises(ctx context.Context, templateID primitive.ObjectID) (int64, error)
	CountExerciseRefs(ctx context.Context, exerciseID primitive.ObjectID) (int64, error)
}

// DiaryRepository stores one entry per patient per calendar date.
type DiaryRepository interface {
	// Upsert inserts or overwrites the entry keyed on (PatientID, EntryDate)
	// and returns the stored row.
	Upsert(ctx context.Context, entry *domain.DiaryEntry) (*domain.DiaryEntry, error)
	GetByDate(ctx context.Context, patientID primitive.ObjectID, date string) (*domain.DiaryEntry, error)
	ListByPatient(ctx context.Context, patientID primitive.ObjectID, limit int) ([]domain.DiaryEntry, error) // newest first; limit <= 0 means all
	ListDates(ctx context.Context, patientID primitive.ObjectID) ([]string, error)
	DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) (int64, error)
}

// ProgressRepository is append-only apart from cascade deletes.
type ProgressRepository interface {
	Create(ctx context.Context, log *domain.ProgressLog) (primitive.ObjectID, error)
	ListByComplex(ctx context.Context, complexID primitive.ObjectID) ([]domain.ProgressLog, error) // newest first
	ListByComplexIDs(ctx context.Context, complexIDs []primitive.ObjectID) ([]domain.ProgressLog, error)
	DeleteByComplexIDs(ctx context.Context, complexIDs []primitive.ObjectID) (int64, error)
}

// RehabRepository covers the phase catalog and per-patient programs.
type RehabRepository interface {
	ListPhases(ctx context.Context) ([]domain.RehabPhase, error) // ordered by phaseNumber
	GetPhase(ctx context.Context, number int) (*domain.RehabPhase, error)
	UpsertPhase(ctx context.Context, phase *domain.RehabPhase) error

	CreateProgram(ctx context.Context, program *domain.RehabProgram) (primitive.ObjectID, error)
	GetProgram(ctx context.Context, patientID primitive.ObjectID) (*domain.RehabProgram, error)
	UpdateProgram(ctx context.Context, program *domain.RehabProgram) error
	DeleteProgram(ctx context.Context, patientID primitive.ObjectID) (int64, error)
}

// Store bundles every repository plus the transactor so services can be
// wired from a single value.
type Store struct {
	Tx        Transactor
	Users     UserRepository
	Patients  PatientRepository
	Exercises ExerciseRepository
	Diagnoses DiagnosisRepository
	Complexes ComplexRepository
	Templates TemplateRepository
	Diary     DiaryRepository
	Progress  ProgressRepository
	Rehab     RehabRepository
}
