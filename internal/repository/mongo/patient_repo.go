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

const patientCollectionName = "patients"

type mongoPatientRepository struct {
	collection *mongo.Collection
}

func NewMongoPatientRepository(db *mongo.Database) repository.PatientRepository {
	return &mongoPatientRepository{
		collection: db.Collection(patientCollectionName),
	}
}

func (r *mongoPatientRepository) Create(ctx context.Context, patient *domain.Patient) (primitive.ObjectID, error) {
	if patient.FullName == "" || patient.InstructorID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("patient name and instructor ID are required")
	}

	patient.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, patient)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoPatientRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Patient, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByUserID finds the patient record linked to a patient account.
func (r *mongoPatientRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Patient, error) {
	return r.findOne(ctx, bson.M{"userId": userID})
}

func (r *mongoPatientRepository) findOne(ctx context.Context, filter bson.M) (*domain.Patient, error) {
	var patient domain.Patient
	err := r.collection.FindOne(ctx, filter).Decode(&patient)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &patient, nil
}

// ListByInstructor returns the instructor's patients sorted by name.
func (r *mongoPatientRepository) ListByInstructor(ctx context.Context, instructorID primitive.ObjectID, active *bool) ([]domain.Patient, error) {
	filter := bson.M{"instructorId": instructorID}
	if active != nil {
		filter["isActive"] = *active
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}})

	patients := []domain.Patient{}
	if err := findAll(ctx, r.collection, filter, &patients, findOptions); err != nil {
		return nil, err
	}
	return patients, nil
}

// Update overwrites the editable profile fields. Ownership and lifecycle
// fields are never touched here.
func (r *mongoPatientRepository) Update(ctx context.Context, patient *domain.Patient) error {
	filter := bson.M{"_id": patient.ID}
	update := bson.M{
		"$set": bson.M{
			"fullName":  patient.FullName,
			"email":     patient.Email,
			"phone":     patient.Phone,
			"birthDate": patient.BirthDate,
			"notes":     patient.Notes,
			"updatedAt": time.Now().UTC(),
		},
	}

	var updated domain.Patient
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		return err
	}
	*patient = updated
	return nil
}

func (r *mongoPatientRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoPatientRepository) LinkUser(ctx context.Context, id, userID primitive.ObjectID) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"userId": userID, "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoPatientRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePatientIndexes creates necessary indexes for the patients collection.
func EnsurePatientIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Reporting and list views filter by owner and trash state.
			Keys:    bson.D{{Key: "instructorId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
		{
			// One patient record per linked account.
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
