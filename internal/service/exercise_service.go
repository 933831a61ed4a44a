package service

import (
	"azarean/rehab-app/internal/apperr"
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/logger"
	"azarean/rehab-app/internal/repository"
	"azarean/rehab-app/internal/storage"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExerciseInput holds the editable fields of a library exercise.
type ExerciseInput struct {
	Title        string
	Description  string
	Instructions string
	BodyRegion   string
	Difficulty   string
	VideoURL     string
}

// ExerciseView is an exercise with a short-lived media download URL.
type ExerciseView struct {
	domain.Exercise
	MediaURL string `json:"mediaUrl,omitempty"`
}

// MediaUpload is handed to the client, which PUTs the file to UploadURL and
// then confirms ObjectKey.
type MediaUpload struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

type ExerciseService interface {
	CreateExercise(ctx context.Context, instructorID primitive.ObjectID, in ExerciseInput) (*ExerciseView, error)
	GetExercise(ctx context.Context, exerciseID primitive.ObjectID) (*ExerciseView, error)
	ListExercises(ctx context.Context) ([]ExerciseView, error)
	UpdateExercise(ctx context.Context, instructorID, exerciseID primitive.ObjectID, in ExerciseInput) (*ExerciseView, error)
	DeleteExercise(ctx context.Context, instructorID, exerciseID primitive.ObjectID) error
	CreateMediaUpload(ctx context.Context, instructorID, exerciseID primitive.ObjectID, fileName, contentType string) (*MediaUpload, error)
	ConfirmMedia(ctx context.Context, instructorID, exerciseID primitive.ObjectID, objectKey, contentType string) (*ExerciseView, error)
}

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
	complexRepo  repository.ComplexRepository
	templateRepo repository.TemplateRepository
	storage      storage.FileStorage
	log          *logger.Logger
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(store repository.Store, files storage.FileStorage, log *logger.Logger) ExerciseService {
	return &exerciseService{
		exerciseRepo: store.Exercises,
		complexRepo:  store.Complexes,
		templateRepo: store.Templates,
		storage:      files,
		log:          log.With("service", "exercise"),
	}
}

func (s *exerciseService) CreateExercise(ctx context.Context, instructorID primitive.ObjectID, in ExerciseInput) (*ExerciseView, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("exercise title is required")
	}

	exercise := &domain.Exercise{
		InstructorID: instructorID,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Instructions: in.Instructions,
		BodyRegion:   in.BodyRegion,
		Difficulty:   in.Difficulty,
		VideoURL:     in.VideoURL,
	}
	if _, err := s.exerciseRepo.Create(ctx, exercise); err != nil {
		return nil, storeErr(err, nil)
	}
	return &ExerciseView{Exercise: *exercise}, nil
}

// GetExercise reads from the shared library; any instructor may read.
func (s *exerciseService) GetExercise(ctx context.Context, exerciseID primitive.ObjectID) (*ExerciseView, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		return nil, storeErr(err, ErrExerciseNotFound)
	}
	view := s.view(ctx, *exercise)
	return &view, nil
}

func (s *exerciseService) ListExercises(ctx context.Context) ([]ExerciseView, error) {
	exercises, err := s.exerciseRepo.List(ctx)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	views := make([]ExerciseView, len(exercises))
	for i, e := range exercises {
		views[i] = s.view(ctx, e)
	}
	return views, nil
}

// UpdateExercise is allowed for the creator only.
func (s *exerciseService) UpdateExercise(ctx context.Context, instructorID, exerciseID primitive.ObjectID, in ExerciseInput) (*ExerciseView, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("exercise title is required")
	}
	existing, err := s.owned(ctx, instructorID, exerciseID)
	if err != nil {
		return nil, err
	}

	existing.Title = strings.TrimSpace(in.Title)
	existing.Description = in.Description
	existing.Instructions = in.Instructions
	existing.BodyRegion = in.BodyRegion
	existing.Difficulty = in.Difficulty
	existing.VideoURL = in.VideoURL

	if err = s.exerciseRepo.Update(ctx, existing); err != nil {
		return nil, storeErr(err, ErrExerciseNotFound)
	}
	view := s.view(ctx, *existing)
	return &view, nil
}

// DeleteExercise refuses to remove an exercise that any complex or template
// still references.
func (s *exerciseService) DeleteExercise(ctx context.Context, instructorID, exerciseID primitive.ObjectID) error {
	existing, err := s.owned(ctx, instructorID, exerciseID)
	if err != nil {
		return err
	}

	inComplexes, err := s.complexRepo.CountExerciseRefs(ctx, exerciseID)
	if err != nil {
		return storeErr(err, nil)
	}
	inTemplates, err := s.templateRepo.CountExerciseRefs(ctx, exerciseID)
	if err != nil {
		return storeErr(err, nil)
	}
	if inComplexes+inTemplates > 0 {
		return apperr.Validation("exercise is used by %d complex entries and %d template entries", inComplexes, inTemplates)
	}

	if err = s.exerciseRepo.Delete(ctx, exerciseID, instructorID); err != nil {
		return storeErr(err, ErrExerciseNotFound)
	}
	if existing.MediaKey != "" {
		s.deleteObject(ctx, existing.MediaKey)
	}
	return nil
}

// CreateMediaUpload presigns a PUT for a new object under the exercise's prefix.
func (s *exerciseService) CreateMediaUpload(ctx context.Context, instructorID, exerciseID primitive.ObjectID, fileName, contentType string) (*MediaUpload, error) {
	if !allowedMediaType(contentType) {
		return nil, apperr.Validation("content type %q is not an image or video", contentType)
	}
	if _, err := s.owned(ctx, instructorID, exerciseID); err != nil {
		return nil, err
	}

	objectKey := mediaPrefix(exerciseID) + uuid.NewString() + strings.ToLower(path.Ext(fileName))
	url, err := s.storage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, mediaErr(err)
	}
	return &MediaUpload{UploadURL: url, ObjectKey: objectKey}, nil
}

// ConfirmMedia records an uploaded object and removes the one it replaces.
func (s *exerciseService) ConfirmMedia(ctx context.Context, instructorID, exerciseID primitive.ObjectID, objectKey, contentType string) (*ExerciseView, error) {
	if !strings.HasPrefix(objectKey, mediaPrefix(exerciseID)) {
		return nil, apperr.Validation("object key does not belong to this exercise")
	}
	if !allowedMediaType(contentType) {
		return nil, apperr.Validation("content type %q is not an image or video", contentType)
	}
	existing, err := s.owned(ctx, instructorID, exerciseID)
	if err != nil {
		return nil, err
	}

	if err = s.exerciseRepo.SetMedia(ctx, exerciseID, objectKey, contentType); err != nil {
		return nil, storeErr(err, ErrExerciseNotFound)
	}
	if existing.MediaKey != "" && existing.MediaKey != objectKey {
		s.deleteObject(ctx, existing.MediaKey)
	}

	existing.MediaKey = objectKey
	existing.MediaContentType = contentType
	view := s.view(ctx, *existing)
	return &view, nil
}

func (s *exerciseService) owned(ctx context.Context, instructorID, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		return nil, storeErr(err, ErrExerciseNotFound)
	}
	if exercise.InstructorID != instructorID {
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

// view attaches a download URL. A storage failure only drops the URL.
func (s *exerciseService) view(ctx context.Context, exercise domain.Exercise) ExerciseView {
	v := ExerciseView{Exercise: exercise}
	if exercise.MediaKey == "" {
		return v
	}
	url, err := s.storage.GeneratePresignedDownloadURL(ctx, exercise.MediaKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		s.log.Warn("media url unavailable", "exerciseId", exercise.ID.Hex(), "error", err)
		return v
	}
	v.MediaURL = url
	return v
}

func (s *exerciseService) deleteObject(ctx context.Context, key string) {
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		s.log.Warn("failed to delete replaced media", "key", key, "error", err)
	}
}

func mediaPrefix(exerciseID primitive.ObjectID) string {
	return fmt.Sprintf("exercises/%s/", exerciseID.Hex())
}

func allowedMediaType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}

func mediaErr(err error) error {
	if errors.Is(err, storage.ErrNotConfigured) {
		return apperr.Validation("media uploads are not enabled")
	}
	return apperr.Internal(err)
}
