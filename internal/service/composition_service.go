package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/logger"
	"azarean/rehab-app/internal/repository"
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExerciseEntry is one submitted list item. Its position in the list, not
// any client ordinal, decides its order number.
type ExerciseEntry struct {
	ExerciseID primitive.ObjectID
	domain.ExerciseParams
}

type ComplexInput struct {
	PatientID       primitive.ObjectID
	DiagnosisID     *primitive.ObjectID
	Title           string
	Recommendations string
	Warnings        string
	Exercises       []ExerciseEntry
}

type TemplateInput struct {
	Name        string
	Description string
	DiagnosisID *primitive.ObjectID
	Exercises   []ExerciseEntry
}

// FromTemplateInput materializes a template for a patient. Empty metadata
// falls back to the template's.
type FromTemplateInput struct {
	TemplateID      primitive.ObjectID
	PatientID       primitive.ObjectID
	DiagnosisID     *primitive.ObjectID
	Title           string
	Recommendations string
	Warnings        string
}

// ComplexItem is an ordered entry joined to its library exercise.
type ComplexItem struct {
	domain.ComplexExercise
	Exercise *domain.Exercise `json:"exercise,omitempty"`
}

type ComplexDetails struct {
	domain.Complex
	Exercises []ComplexItem `json:"exercises"`
}

type TemplateItem struct {
	domain.TemplateExercise
	Exercise *domain.Exercise `json:"exercise,omitempty"`
}

type TemplateDetails struct {
	domain.Template
	Exercises []TemplateItem `json:"exercises"`
}

type CompositionService interface {
	CreateComplex(ctx context.Context, instructorID primitive.ObjectID, in ComplexInput) (*ComplexDetails, error)
	CreateComplexFromTemplate(ctx context.Context, instructorID primitive.ObjectID, in FromTemplateInput) (*ComplexDetails, error)
	// ReplaceComplex swaps the whole exercise list and metadata atomically.
	ReplaceComplex(ctx context.Context, instructorID, complexID primitive.ObjectID, in ComplexInput) (*ComplexDetails, error)
	GetComplex(ctx context.Context, instructorID, complexID primitive.ObjectID) (*ComplexDetails, error)
	ListComplexes(ctx context.Context, instructorID primitive.ObjectID, patientID *primitive.ObjectID, active bool) ([]domain.Complex, error)
	// GetComplexByToken is the unauthenticated patient view.
	GetComplexByToken(ctx context.Context, token string) (*ComplexDetails, error)

	CreateTemplate(ctx context.Context, instructorID primitive.ObjectID, in TemplateInput) (*TemplateDetails, error)
	ReplaceTemplate(ctx context.Context, instructorID, templateID primitive.ObjectID, in TemplateInput) (*TemplateDetails, error)
	GetTemplate(ctx context.Context, instructorID, templateID primitive.ObjectID) (*TemplateDetails, error)
	ListTemplates(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Template, error)
	DeleteTemplate(ctx context.Context, instructorID, templateID primitive.ObjectID) error
}

type compositionService struct {
	store  repository.Store
	access access
	log    *logger.Logger
}

func NewCompositionService(store repository.Store, log *logger.Logger) CompositionService {
	return &compositionService{
		store:  store,
		access: newAccess(store),
		log:    log.With("service", "composition"),
	}
}

func (s *compositionService) CreateComplex(ctx context.Context, instructorID primitive.ObjectID, in ComplexInput) (*ComplexDetails, error) {
	return s.createComplex(ctx, instructorID, in, nil)
}

func (s *compositionService) createComplex(ctx context.Context, instructorID primitive.ObjectID, in ComplexInput, templateID *primitive.ObjectID) (*ComplexDetails, error) {
	patient, err := s.access.patient(ctx, instructorID, in.PatientID)
	if err != nil {
		return nil, err
	}
	if !patient.IsActive {
		return nil, apperr.Validation("patient is in the trash")
	}
	if err = s.checkDiagnosis(ctx, in.DiagnosisID); err != nil {
		return nil, err
	}
	if err = s.validateEntries(ctx, in.Exercises); err != nil {
		return nil, err
	}

	complex := &domain.Complex{
		InstructorID:    instructorID,
		PatientID:       patient.ID,
		DiagnosisID:     in.DiagnosisID,
		TemplateID:      templateID,
		Title:           strings.TrimSpace(in.Title),
		Recommendations: in.Recommendations,
		Warnings:        in.Warnings,
		AccessToken:     uuid.NewString(),
		IsActive:        true,
	}
	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.Complexes.Create(ctx, complex); err != nil {
			return err
		}
		return s.store.Complexes.InsertExercises(ctx, complexRows(complex.ID, in.Exercises))
	})
	if err != nil {
		return nil, storeErr(err, nil)
	}

	s.log.Info("complex created", "complexId", complex.ID.Hex(), "patientId", patient.ID.Hex(), "exercises", len(in.Exercises))
	return s.details(ctx, complex)
}

func (s *compositionService) CreateComplexFromTemplate(ctx context.Context, instructorID primitive.ObjectID, in FromTemplateInput) (*ComplexDetails, error) {
	template, err := s.access.template(ctx, instructorID, in.TemplateID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Templates.ListExercises(ctx, template.ID)
	if err != nil {
		return nil, storeErr(err, nil)
	}

	// Copy every scalar so the complex never shares state with the template.
	entries := make([]ExerciseEntry, len(rows))
	for i, row := range rows {
		entries[i] = ExerciseEntry{ExerciseID: row.ExerciseID, ExerciseParams: copyParams(row.ExerciseParams)}
	}

	complexIn := ComplexInput{
		PatientID:       in.PatientID,
		DiagnosisID:     in.DiagnosisID,
		Title:           in.Title,
		Recommendations: in.Recommendations,
		Warnings:        in.Warnings,
		Exercises:       entries,
	}
	if complexIn.DiagnosisID == nil {
		complexIn.DiagnosisID = template.DiagnosisID
	}
	if complexIn.Title == "" {
		complexIn.Title = template.Name
	}
	return s.createComplex(ctx, instructorID, complexIn, &template.ID)
}

func (s *compositionService) ReplaceComplex(ctx context.Context, instructorID, complexID primitive.ObjectID, in ComplexInput) (*ComplexDetails, error) {
	complex, err := s.access.complex(ctx, instructorID, complexID)
	if err != nil {
		return nil, err
	}
	if !complex.IsActive {
		return nil, apperr.Validation("complex is in the trash")
	}
	if in.PatientID != primitive.NilObjectID && in.PatientID != complex.PatientID {
		return nil, apperr.Validation("a complex cannot be moved to another patient")
	}
	if err = s.checkDiagnosis(ctx, in.DiagnosisID); err != nil {
		return nil, err
	}
	if err = s.validateEntries(ctx, in.Exercises); err != nil {
		return nil, err
	}

	complex.DiagnosisID = in.DiagnosisID
	complex.Title = strings.TrimSpace(in.Title)
	complex.Recommendations = in.Recommendations
	complex.Warnings = in.Warnings

	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Complexes.UpdateMetadata(ctx, complex); err != nil {
			return err
		}
		if _, err := s.store.Complexes.DeleteExercises(ctx, complex.ID); err != nil {
			return err
		}
		return s.store.Complexes.InsertExercises(ctx, complexRows(complex.ID, in.Exercises))
	})
	if err != nil {
		return nil, storeErr(err, ErrComplexNotFound)
	}
	return s.details(ctx, complex)
}

func (s *compositionService) GetComplex(ctx context.Context, instructorID, complexID primitive.ObjectID) (*ComplexDetails, error) {
	complex, err := s.access.complex(ctx, instructorID, complexID)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, complex)
}

func (s *compositionService) ListComplexes(ctx context.Context, instructorID primitive.ObjectID, patientID *primitive.ObjectID, active bool) ([]domain.Complex, error) {
	if patientID == nil {
		list, err := s.store.Complexes.ListByInstructor(ctx, instructorID, &active)
		return list, storeErr(err, nil)
	}

	if _, err := s.access.patient(ctx, instructorID, *patientID); err != nil {
		return nil, err
	}
	all, err := s.store.Complexes.ListByPatient(ctx, *patientID)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	list := make([]domain.Complex, 0, len(all))
	for _, c := range all {
		if c.IsActive == active {
			list = append(list, c)
		}
	}
	return list, nil
}

// GetComplexByToken hides trashed complexes: a trashed program is not
// reachable by its patient link.
func (s *compositionService) GetComplexByToken(ctx context.Context, token string) (*ComplexDetails, error) {
	complex, err := s.access.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, complex)
}

func (s *compositionService) CreateTemplate(ctx context.Context, instructorID primitive.ObjectID, in TemplateInput) (*TemplateDetails, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("template name is required")
	}
	if err := s.checkDiagnosis(ctx, in.DiagnosisID); err != nil {
		return nil, err
	}
	if err := s.validateEntries(ctx, in.Exercises); err != nil {
		return nil, err
	}

	template := &domain.Template{
		InstructorID: instructorID,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		DiagnosisID:  in.DiagnosisID,
	}
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.Templates.Create(ctx, template); err != nil {
			return err
		}
		return s.store.Templates.InsertExercises(ctx, templateRows(template.ID, in.Exercises))
	})
	if err != nil {
		return nil, storeErr(err, nil)
	}
	return s.templateDetails(ctx, template)
}

func (s *compositionService) ReplaceTemplate(ctx context.Context, instructorID, templateID primitive.ObjectID, in TemplateInput) (*TemplateDetails, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("template name is required")
	}
	template, err := s.access.template(ctx, instructorID, templateID)
	if err != nil {
		return nil, err
	}
	if err = s.checkDiagnosis(ctx, in.DiagnosisID); err != nil {
		return nil, err
	}
	if err = s.validateEntries(ctx, in.Exercises); err != nil {
		return nil, err
	}

	template.Name = strings.TrimSpace(in.Name)
	template.Description = in.Description
	template.DiagnosisID = in.DiagnosisID

	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Templates.Update(ctx, template); err != nil {
			return err
		}
		if _, err := s.store.Templates.DeleteExercises(ctx, template.ID); err != nil {
			return err
		}
		return s.store.Templates.InsertExercises(ctx, templateRows(template.ID, in.Exercises))
	})
	if err != nil {
		return nil, storeErr(err, ErrTemplateNotFound)
	}
	return s.templateDetails(ctx, template)
}

func (s *compositionService) GetTemplate(ctx context.Context, instructorID, templateID primitive.ObjectID) (*TemplateDetails, error) {
	template, err := s.access.template(ctx, instructorID, templateID)
	if err != nil {
		return nil, err
	}
	return s.templateDetails(ctx, template)
}

func (s *compositionService) ListTemplates(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Template, error) {
	list, err := s.store.Templates.ListByInstructor(ctx, instructorID)
	return list, storeErr(err, nil)
}

// DeleteTemplate removes the template and its rows. Complexes created from
// it keep their own copies.
func (s *compositionService) DeleteTemplate(ctx context.Context, instructorID, templateID primitive.ObjectID) error {
	template, err := s.access.template(ctx, instructorID, templateID)
	if err != nil {
		return err
	}
	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.Templates.DeleteExercises(ctx, template.ID); err != nil {
			return err
		}
		return s.store.Templates.Delete(ctx, template.ID)
	})
	return storeErr(err, ErrTemplateNotFound)
}

func (s *compositionService) checkDiagnosis(ctx context.Context, id *primitive.ObjectID) error {
	if id == nil {
		return nil
	}
	_, err := s.store.Diagnoses.GetByID(ctx, *id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Validation("diagnosis %s does not exist", id.Hex())
	}
	return storeErr(err, nil)
}

// validateEntries rejects the whole list before anything is written.
func (s *compositionService) validateEntries(ctx context.Context, entries []ExerciseEntry) error {
	if len(entries) == 0 {
		return apperr.Validation("at least one exercise is required")
	}
	ids := make([]primitive.ObjectID, 0, len(entries))
	for i, e := range entries {
		if e.ExerciseID == primitive.NilObjectID {
			return apperr.Validation("exercises[%d]: exercise id is required", i)
		}
		if err := validateParams(e.ExerciseParams); err != nil {
			return apperr.Validation("exercises[%d]: %s", i, err.Error())
		}
		ids = append(ids, e.ExerciseID)
	}

	found, err := s.store.Exercises.GetByIDs(ctx, ids)
	if err != nil {
		return storeErr(err, nil)
	}
	known := make(map[primitive.ObjectID]bool, len(found))
	for _, e := range found {
		known[e.ID] = true
	}
	for i, e := range entries {
		if !known[e.ExerciseID] {
			return apperr.Validation("exercises[%d]: exercise %s does not exist", i, e.ExerciseID.Hex())
		}
	}
	return nil
}

// validateParams enforces positive sets and exactly one positive
// repetition metric.
func validateParams(p domain.ExerciseParams) error {
	if p.Sets <= 0 {
		return errors.New("sets must be positive")
	}
	if (p.Reps == nil) == (p.DurationSeconds == nil) {
		return errors.New("exactly one of reps and duration seconds must be set")
	}
	if p.Reps != nil && *p.Reps <= 0 {
		return errors.New("reps must be positive")
	}
	if p.DurationSeconds != nil && *p.DurationSeconds <= 0 {
		return errors.New("duration seconds must be positive")
	}
	if p.RestSeconds != nil && *p.RestSeconds < 0 {
		return errors.New("rest seconds cannot be negative")
	}
	return nil
}

func complexRows(complexID primitive.ObjectID, entries []ExerciseEntry) []domain.ComplexExercise {
	rows := make([]domain.ComplexExercise, len(entries))
	for i, e := range entries {
		rows[i] = domain.ComplexExercise{
			ComplexID:      complexID,
			ExerciseID:     e.ExerciseID,
			OrderNumber:    i + 1,
			ExerciseParams: copyParams(e.ExerciseParams),
		}
	}
	return rows
}

func templateRows(templateID primitive.ObjectID, entries []ExerciseEntry) []domain.TemplateExercise {
	rows := make([]domain.TemplateExercise, len(entries))
	for i, e := range entries {
		rows[i] = domain.TemplateExercise{
			TemplateID:     templateID,
			ExerciseID:     e.ExerciseID,
			OrderNumber:    i + 1,
			ExerciseParams: copyParams(e.ExerciseParams),
		}
	}
	return rows
}

func copyParams(p domain.ExerciseParams) domain.ExerciseParams {
	return domain.ExerciseParams{
		Sets:            p.Sets,
		Reps:            copyInt(p.Reps),
		DurationSeconds: copyInt(p.DurationSeconds),
		RestSeconds:     copyInt(p.RestSeconds),
		Notes:           p.Notes,
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (s *compositionService) details(ctx context.Context, complex *domain.Complex) (*ComplexDetails, error) {
	rows, err := s.store.Complexes.ListExercises(ctx, complex.ID)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ExerciseID
	}
	library, err := s.exerciseMap(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]ComplexItem, len(rows))
	for i, r := range rows {
		items[i] = ComplexItem{ComplexExercise: r, Exercise: library[r.ExerciseID]}
	}
	return &ComplexDetails{Complex: *complex, Exercises: items}, nil
}

func (s *compositionService) templateDetails(ctx context.Context, template *domain.Template) (*TemplateDetails, error) {
	rows, err := s.store.Templates.ListExercises(ctx, template.ID)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ExerciseID
	}
	library, err := s.exerciseMap(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]TemplateItem, len(rows))
	for i, r := range rows {
		items[i] = TemplateItem{TemplateExercise: r, Exercise: library[r.ExerciseID]}
	}
	return &TemplateDetails{Template: *template, Exercises: items}, nil
}

func (s *compositionService) exerciseMap(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Exercise, error) {
	found, err := s.store.Exercises.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	m := make(map[primitive.ObjectID]*domain.Exercise, len(found))
	for i := range found {
		m[found[i].ID] = &found[i]
	}
	return m, nil
}
