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

const diagnosisCollectionName = "diagnoses"

type mongoDiagnosisRepository struct {
	collection *mongo.Collection
}

func NewMongoDiagnosisRepository(db *mongo.Database) repository.DiagnosisRepository {
	return &mongoDiagnosisRepository{
		collection: db.Collection(diagnosisCollectionName),
	}
}

func (r *mongoDiagnosisRepository) Create(ctx context.Context, diagnosis *domain.Diagnosis) (primitive.ObjectID, error) {
	diagnosis.ID = primitive.NewObjectID()
	diagnosis.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, diagnosis)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoDiagnosisRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Diagnosis, error) {
	var diagnosis domain.Diagnosis
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&diagnosis)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &diagnosis, nil
}

func (r *mongoDiagnosisRepository) List(ctx context.Context) ([]domain.Diagnosis, error) {
	diagnoses := []domain.Diagnosis{}
	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if err := findAll(ctx, r.collection, bson.M{}, &diagnoses, findOptions); err != nil {
		return nil, err
	}
	return diagnoses, nil
}

func EnsureDiagnosisIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
