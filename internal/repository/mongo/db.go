package mongo

import (
	"azarean/rehab-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

var tracer = otel.Tracer("azarean/rehab-app/repository/mongo")

// ConnectDB establishes a connection to MongoDB using the provided URI.
// Multi-document transactions need a replica set, so the URI should name one.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

type transactor struct {
	client *mongo.Client
}

// NewTransactor runs each unit of work inside a session transaction.
func NewTransactor(client *mongo.Client) repository.Transactor {
	return &transactor{client: client}
}

func (t *transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Already inside a session: join it.
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "mongo.transaction", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	session, err := t.client.StartSession()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start session")
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction aborted")
		return err
	}
	return nil
}

// NewStore wires every repository against db.
func NewStore(client *mongo.Client, db *mongo.Database) repository.Store {
	return repository.Store{
		Tx:        NewTransactor(client),
		Users:     NewMongoUserRepository(db),
		Patients:  NewMongoPatientRepository(db),
		Exercises: NewMongoExerciseRepository(db),
		Diagnoses: NewMongoDiagnosisRepository(db),
		Complexes: NewMongoComplexRepository(db),
		Templates: NewMongoTemplateRepository(db),
		Diary:     NewMongoDiaryRepository(db),
		Progress:  NewMongoProgressRepository(db),
		Rehab:     NewMongoRehabRepository(db),
	}
}

// EnsureIndexes creates the indexes of every collection. Call this once
// during application startup or from the indexes command.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		collection string
		ensure     func(context.Context, *mongo.Collection) error
	}{
		{userCollectionName, EnsureUserIndexes},
		{patientCollectionName, EnsurePatientIndexes},
		{exerciseCollectionName, EnsureExerciseIndexes},
		{diagnosisCollectionName, EnsureDiagnosisIndexes},
		{complexCollectionName, EnsureComplexIndexes},
		{complexExerciseCollectionName, EnsureComplexExerciseIndexes},
		{templateCollectionName, EnsureTemplateIndexes},
		{templateExerciseCollectionName, EnsureTemplateExerciseIndexes},
		{diaryCollectionName, EnsureDiaryIndexes},
		{progressCollectionName, EnsureProgressIndexes},
		{phaseCollectionName, EnsurePhaseIndexes},
		{programCollectionName, EnsureProgramIndexes},
	}
	for _, step := range steps {
		if err := step.ensure(ctx, db.Collection(step.collection)); err != nil {
			return fmt.Errorf("indexes for %s: %w", step.collection, err)
		}
	}
	return nil
}

// insertedObjectID asserts the type of an InsertOne result ID.
func insertedObjectID(result *mongo.InsertOneResult) (primitive.ObjectID, error) {
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return id, nil
}

// findAll runs a find and decodes every document into out.
func findAll(ctx context.Context, coll *mongo.Collection, filter interface{}, out interface{}, opts ...*options.FindOptions) error {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, out); err != nil {
		return err
	}
	return cursor.Err()
}
