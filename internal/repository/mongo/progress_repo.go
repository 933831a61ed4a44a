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

const progressCollectionName = "progress_logs"

type mongoProgressRepository struct {
	collection *mongo.Collection
}

func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

func (r *mongoProgressRepository) Create(ctx context.Context, log *domain.ProgressLog) (primitive.ObjectID, error) {
	if log.ComplexID == primitive.NilObjectID || log.ExerciseID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("progress log requires complexId and exerciseId")
	}

	log.ID = primitive.NewObjectID()
	if log.CompletedAt.IsZero() {
		log.CompletedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoProgressRepository) ListByComplex(ctx context.Context, complexID primitive.ObjectID) ([]domain.ProgressLog, error) {
	return r.ListByComplexIDs(ctx, []primitive.ObjectID{complexID})
}

// ListByComplexIDs returns logs newest first.
func (r *mongoProgressRepository) ListByComplexIDs(ctx context.Context, complexIDs []primitive.ObjectID) ([]domain.ProgressLog, error) {
	logs := []domain.ProgressLog{}
	if len(complexIDs) == 0 {
		return logs, nil
	}
	filter := bson.M{"complexId": bson.M{"$in": complexIDs}}
	findOptions := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}})
	if err := findAll(ctx, r.collection, filter, &logs, findOptions); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *mongoProgressRepository) DeleteByComplexIDs(ctx context.Context, complexIDs []primitive.ObjectID) (int64, error) {
	if len(complexIDs) == 0 {
		return 0, nil
	}
	result, err := r.collection.DeleteMany(ctx, bson.M{"complexId": bson.M{"$in": complexIDs}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func EnsureProgressIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "complexId", Value: 1}, {Key: "completedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "patientId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
