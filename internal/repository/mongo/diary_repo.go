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

const diaryCollectionName = "diary_entries"

type mongoDiaryRepository struct {
	collection *mongo.Collection
}

func NewMongoDiaryRepository(db *mongo.Database) repository.DiaryRepository {
	return &mongoDiaryRepository{
		collection: db.Collection(diaryCollectionName),
	}
}

// Upsert writes the entry for (patientId, entryDate) in a single atomic
// operation so concurrent submissions for the same day leave one row.
func (r *mongoDiaryRepository) Upsert(ctx context.Context, entry *domain.DiaryEntry) (*domain.DiaryEntry, error) {
	now := time.Now().UTC()
	filter := bson.M{"patientId": entry.PatientID, "entryDate": entry.EntryDate}
	update := bson.M{
		"$set": bson.M{
			"painLevel":     entry.PainLevel,
			"swelling":      entry.Swelling,
			"exercisesDone": entry.ExercisesDone,
			"answers":       entry.Answers,
			"updatedAt":     now,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored domain.DiaryEntry
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if err != nil {
		// Two first-time writers can race on insert; the loser retries as an update.
		if mongo.IsDuplicateKeyError(err) {
			err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
		}
		if err != nil {
			return nil, err
		}
	}
	return &stored, nil
}

func (r *mongoDiaryRepository) GetByDate(ctx context.Context, patientID primitive.ObjectID, date string) (*domain.DiaryEntry, error) {
	var entry domain.DiaryEntry
	filter := bson.M{"patientId": patientID, "entryDate": date}
	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// ListByPatient returns entries newest first. YYYY-MM-DD strings sort
// chronologically.
func (r *mongoDiaryRepository) ListByPatient(ctx context.Context, patientID primitive.ObjectID, limit int) ([]domain.DiaryEntry, error) {
	entries := []domain.DiaryEntry{}
	findOptions := options.Find().SetSort(bson.D{{Key: "entryDate", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}
	if err := findAll(ctx, r.collection, bson.M{"patientId": patientID}, &entries, findOptions); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListDates projects only the entry dates, newest first.
func (r *mongoDiaryRepository) ListDates(ctx context.Context, patientID primitive.ObjectID) ([]string, error) {
	var rows []struct {
		EntryDate string `bson:"entryDate"`
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "entryDate", Value: -1}}).
		SetProjection(bson.M{"entryDate": 1, "_id": 0})
	if err := findAll(ctx, r.collection, bson.M{"patientId": patientID}, &rows, findOptions); err != nil {
		return nil, err
	}
	dates := make([]string, len(rows))
	for i, row := range rows {
		dates[i] = row.EntryDate
	}
	return dates, nil
}

func (r *mongoDiaryRepository) DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"patientId": patientID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureDiaryIndexes enforces one entry per patient per date.
func EnsureDiaryIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "patientId", Value: 1}, {Key: "entryDate", Value: -1}},
		Options: options.Index().SetUnique(true).SetName("uidx_patient_date"),
	})
	return err
}
