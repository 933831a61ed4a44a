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
	templateCollectionName         = "templates"
	templateExerciseCollectionName = "template_exercises"
)

type mongoTemplateRepository struct {
	templates *mongo.Collection
	exercises *mongo.Collection
}

func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		templates: db.Collection(templateCollectionName),
		exercises: db.Collection(templateExerciseCollectionName),
	}
}

func (r *mongoTemplateRepository) Create(ctx context.Context, template *domain.Template) (primitive.ObjectID, error) {
	if template.Name == "" || template.InstructorID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("template name and instructor ID are required")
	}

	template.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now

	result, err := r.templates.InsertOne(ctx, template)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Template, error) {
	var template domain.Template
	err := r.templates.FindOne(ctx, bson.M{"_id": id}).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

func (r *mongoTemplateRepository) ListByInstructor(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Template, error) {
	templates := []domain.Template{}
	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if err := findAll(ctx, r.templates, bson.M{"instructorId": instructorID}, &templates, findOptions); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *mongoTemplateRepository) Update(ctx context.Context, template *domain.Template) error {
	filter := bson.M{"_id": template.ID}
	update := bson.M{
		"$set": bson.M{
			"name":        template.Name,
			"description": template.Description,
			"diagnosisId": template.DiagnosisID,
			"updatedAt":   time.Now().UTC(),
		},
	}

	var updated domain.Template
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.templates.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		return err
	}
	*template = updated
	return nil
}

func (r *mongoTemplateRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.templates.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoTemplateRepository) InsertExercises(ctx context.Context, rows []domain.TemplateExercise) error {
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

func (r *mongoTemplateRepository) ListExercises(ctx context.Context, templateID primitive.ObjectID) ([]domain.TemplateExercise, error) {
	rows := []domain.TemplateExercise{}
	findOptions := options.Find().SetSort(bson.D{{Key: "orderNumber", Value: 1}})
	if err := findAll(ctx, r.exercises, bson.M{"templateId": templateID}, &rows, findOptions); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mongoTemplateRepository) DeleteExercises(ctx context.Context, templateID primitive.ObjectID) (int64, error) {
	result, err := r.exercises.DeleteMany(ctx, bson.M{"templateId": templateID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *mongoTemplateRepository) CountExerciseRefs(ctx context.Context, exerciseID primitive.ObjectID) (int64, error) {
	return r.exercises.CountDocuments(ctx, bson.M{"exerciseId": exerciseID})
}

func EnsureTemplateIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "instructorId", Value: 1}},
		Options: options.Index(),
	})
	return err
}

func EnsureTemplateExerciseIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "templateId", Value: 1}, {Key: "orderNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "exerciseId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
