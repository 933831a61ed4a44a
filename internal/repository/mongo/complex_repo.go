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

const (
	complexCollectionName         = "complexes"
	complexExerciseCollectionName = "complex_exercises"
)

// mongoComplexRepository implements repository.ComplexRepository over two
// collections: the complex headers and their ordered exercise rows.
type mongoComplexRepository struct {
	complexes *mongo.Collection
	exercises *mongo.Collection
}

func NewMongoComplexRepository(db *mongo.Database) repository.ComplexRepository {
	return &mongoComplexRepository{
		complexes: db.Collection(complexCollectionName),
		exercises: db.Collection(complexExerciseCollectionName),
	}
}

func (r *mongoComplexRepository) Create(ctx context.Context, complex *domain.Complex) (primitive.ObjectID, error) {
	if complex.AccessToken == "" || complex.PatientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("complex requires a patient and an access token")
	}

	complex.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	complex.CreatedAt = now
	complex.UpdatedAt = now

	result, err := r.complexes.InsertOne(ctx, complex)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoComplexRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Complex, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoComplexRepository) GetByAccessToken(ctx context.Context, token string) (*domain.Complex, error) {
	return r.findOne(ctx, bson.M{"accessToken": token})
}

func (r *mongoComplexRepository) findOne(ctx context.Context, filter bson.M) (*domain.Complex, error) {
	var complex domain.Complex
	err := r.complexes.FindOne(ctx, filter).Decode(&complex)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &complex, nil
}

func (r *mongoComplexRepository) ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]domain.Complex, error) {
	return r.list(ctx, bson.M{"patientId": patientID})
}

func (r *mongoComplexRepository) ListByPatientIDs(ctx context.Context, patientIDs []primitive.ObjectID) ([]domain.Complex, error) {
	if len(patientIDs) == 0 {
		return []domain.Complex{}, nil
	}
	return r.list(ctx, bson.M{"patientId": bson.M{"$in": patientIDs}})
}

func (r *mongoComplexRepository) ListByInstructor(ctx context.Context, instructorID primitive.ObjectID, active *bool) ([]domain.Complex, error) {
	filter := bson.M{"instructorId": instructorID}
	if active != nil {
		filter["isActive"] = *active
	}
	return r.list(ctx, filter)
}

// list returns matching complexes newest first.
func (r *mongoComplexRepository) list(ctx context.Context, filter bson.M) ([]domain.Complex, error) {
	complexes := []domain.Complex{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if err := findAll(ctx, r.complexes, filter, &complexes, findOptions); err != nil {
		return nil, err
	}
	return complexes, nil
}

// UpdateMetadata rewrites the descriptive fields of a complex. Patient,
// token and lifecycle state are immutable here.
func (r *mongoComplexRepository) UpdateMetadata(ctx context.Context, complex *domain.Complex) error {
	filter := bson.M{"_id": complex.ID}
	update := bson.M{
		"$set": bson.M{
			"diagnosisId":     complex.DiagnosisID,
			"title":           complex.Title,
			"recommendations": complex.Recommendations,
			"warnings":        complex.Warnings,
			"updatedAt":       time.Now().UTC(),
		},
	}

	var updated domain.Complex
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.complexes.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		return err
	}
	*complex = updated
	return nil
}

func (r *mongoComplexRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	update := bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now().UTC()}}
	result, err := r.complexes.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoComplexRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.complexes.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoComplexRepository) DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) (int64, error) {
	result, err := r.complexes.DeleteMany(ctx, bson.M{"patientId": patientID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// InsertExercises writes the ordered rows of a complex in one batch. The
// unique (complexId, orderNumber) index rejects duplicate positions.
func (r *mongoComplexRepository) InsertExercises(ctx context.Context, rows []domain.ComplexExercise) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]interface{}, len(rows))
	for i := range rows {
		rows[i].ID = primitive.NewObjectID()
		docs[i] = rows[i]
	}
	if _, err := r.exercises.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *mongoComplexRepository) ListExercises(ctx context.Context, complexID primitive.ObjectID) ([]domain.ComplexExercise, error) {
	rows := []domain.ComplexExercise{}
	findOptions := options.Find().SetSort(bson.D{{Key: "orderNumber", Value: 1}})
	if err := findAll(ctx, r.exercises, bson.M{"complexId": complexID}, &rows, findOptions); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mongoComplexRepository) DeleteExercises(ctx context.Context, complexID primitive.ObjectID) (int64, error) {
	result, err := r.exercises.DeleteMany(ctx, bson.M{"complexId": complexID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *mongoComplexRepository) DeleteExercisesByComplexIDs(ctx context.Context, complexIDs []primitive.ObjectID) (int64, error) {
	if len(complexIDs) == 0 {
		return 0, nil
	}
	result, err := r.exercises.DeleteMany(ctx, bson.M{"complexId": bson.M{"$in": complexIDs}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *mongoComplexRepository) CountExerciseRefs(ctx context.Context, exerciseID primitive.ObjectID) (int64, error) {
	return r.exercises.CountDocuments(ctx, bson.M{"exerciseId": exerciseID})
}

// EnsureComplexIndexes creates necessary indexes for the complexes collection.
func EnsureComplexIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "accessToken", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "patientId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "instructorId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func EnsureComplexExerciseIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "complexId", Value: 1}, {Key: "orderNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// In-use check before deleting a library exercise.
			Keys:    bson.D{{Key: "exerciseId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
