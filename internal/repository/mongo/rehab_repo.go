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
	phaseCollectionName   = "rehab_phases"
	programCollectionName = "rehab_programs"
)

// mongoRehabRepository serves the read-mostly phase catalog and the
// per-patient programs.
type mongoRehabRepository struct {
	phases   *mongo.Collection
	programs *mongo.Collection
}

func NewMongoRehabRepository(db *mongo.Database) repository.RehabRepository {
	return &mongoRehabRepository{
		phases:   db.Collection(phaseCollectionName),
		programs: db.Collection(programCollectionName),
	}
}

func (r *mongoRehabRepository) ListPhases(ctx context.Context) ([]domain.RehabPhase, error) {
	phases := []domain.RehabPhase{}
	findOptions := options.Find().SetSort(bson.D{{Key: "phaseNumber", Value: 1}})
	if err := findAll(ctx, r.phases, bson.M{}, &phases, findOptions); err != nil {
		return nil, err
	}
	return phases, nil
}

func (r *mongoRehabRepository) GetPhase(ctx context.Context, number int) (*domain.RehabPhase, error) {
	var phase domain.RehabPhase
	err := r.phases.FindOne(ctx, bson.M{"phaseNumber": number}).Decode(&phase)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &phase, nil
}

// UpsertPhase replaces the catalog entry with the same phase number.
func (r *mongoRehabRepository) UpsertPhase(ctx context.Context, phase *domain.RehabPhase) error {
	filter := bson.M{"phaseNumber": phase.PhaseNumber}
	doc := *phase
	doc.ID = primitive.NilObjectID // keep the stored _id

	result, err := r.phases.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}
	if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
		phase.ID = id
	}
	return nil
}

func (r *mongoRehabRepository) CreateProgram(ctx context.Context, program *domain.RehabProgram) (primitive.ObjectID, error) {
	program.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now
	if program.CheckedCriteria == nil {
		program.CheckedCriteria = []int{}
	}

	result, err := r.programs.InsertOne(ctx, program)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoRehabRepository) GetProgram(ctx context.Context, patientID primitive.ObjectID) (*domain.RehabProgram, error) {
	var program domain.RehabProgram
	err := r.programs.FindOne(ctx, bson.M{"patientId": patientID}).Decode(&program)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &program, nil
}

// UpdateProgram writes the mutable program fields keyed by patient.
func (r *mongoRehabRepository) UpdateProgram(ctx context.Context, program *domain.RehabProgram) error {
	if program.CheckedCriteria == nil {
		program.CheckedCriteria = []int{}
	}
	program.UpdatedAt = time.Now().UTC()

	filter := bson.M{"patientId": program.PatientID}
	update := bson.M{
		"$set": bson.M{
			"currentPhase":    program.CurrentPhase,
			"surgeryDate":     program.SurgeryDate,
			"notes":           program.Notes,
			"checkedCriteria": program.CheckedCriteria,
			"phaseChangedAt":  program.PhaseChangedAt,
			"updatedAt":       program.UpdatedAt,
		},
	}

	result, err := r.programs.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoRehabRepository) DeleteProgram(ctx context.Context, patientID primitive.ObjectID) (int64, error) {
	result, err := r.programs.DeleteOne(ctx, bson.M{"patientId": patientID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func EnsurePhaseIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phaseNumber", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// EnsureProgramIndexes allows at most one program per patient.
func EnsureProgramIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "patientId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
