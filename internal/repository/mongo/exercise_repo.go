package mongo

import (
	"azarean/rehab-app/internal/domain"
	"azarean/rehab-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const exerciseCollectionName = "exercises"

// mongoExerciseRepository implements repository.ExerciseRepository
type mongoExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseRepository creates a new Exercise repository backed by MongoDB.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
	}
}

// Create inserts a new exercise into the shared library.
func (r *mongoExerciseRepository) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	if exercise.Title == "" || exercise.InstructorID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("exercise title and instructor ID are required")
	}

	exercise.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, exercise)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

// GetByID retrieves an exercise by its ID.
func (r *mongoExerciseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	var exercise domain.Exercise
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&exercise)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &exercise, nil
}

// GetByIDs returns the exercises that exist among ids. Missing IDs are
// simply absent from the result.
func (r *mongoExerciseRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error) {
	exercises := []domain.Exercise{}
	if len(ids) == 0 {
		return exercises, nil
	}
	filter := bson.M{"_id": bson.M{"$in": ids}}
	if err := findAll(ctx, r.collection, filter, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// List returns the whole shared library sorted by title.
func (r *mongoExerciseRepository) List(ctx context.Context) ([]domain.Exercise, error) {
	exercises := []domain.Exercise{}
	findOptions := options.Find().SetSort(bson.D{{Key: "title", Value: 1}})
	if err := findAll(ctx, r.collection, bson.M{}, &exercises, findOptions); err != nil {
		return nil, err
	}
	return exercises, nil
}

// Update modifies an existing exercise. The filter includes the creator so
// another instructor's exercise reads as not found.
func (r *mongoExerciseRepository) Update(ctx context.Context, exercise *domain.Exercise) error {
	if exercise.ID == primitive.NilObjectID {
		return errors.New("exercise ID is required for update")
	}

	filter := bson.M{"_id": exercise.ID, "instructorId": exercise.InstructorID}
	update := bson.M{
		"$set": bson.M{
			"title":        exercise.Title,
			"description":  exercise.Description,
			"instructions": exercise.Instructions,
			"bodyRegion":   exercise.BodyRegion,
			"difficulty":   exercise.Difficulty,
			"videoUrl":     exercise.VideoURL,
			"updatedAt":    time.Now().UTC(),
		},
	}

	var updated domain.Exercise
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		return err
	}
	*exercise = updated
	return nil
}

// SetMedia records the object storage key of an uploaded media file.
func (r *mongoExerciseRepository) SetMedia(ctx context.Context, id primitive.ObjectID, mediaKey, contentType string) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"mediaKey":         mediaKey,
			"mediaContentType": contentType,
			"updatedAt":        time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes an exercise, ensuring it belongs to the specified instructor.
func (r *mongoExerciseRepository) Delete(ctx context.Context, id primitive.ObjectID, instructorID primitive.ObjectID) error {
	filter := bson.M{
		"_id":          id,
		"instructorId": instructorID,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureExerciseIndexes creates necessary indexes for the exercises collection.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "instructorId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}},
			Options: options.Index().SetName("exercise_text_search"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
