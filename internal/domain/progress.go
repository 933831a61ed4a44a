package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressLog is one append-only completion event. SessionID is an opaque
// client token that groups completions of the same visit.
type ProgressLog struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ComplexID        primitive.ObjectID `bson:"complexId" json:"complexId"`
	PatientID        primitive.ObjectID `bson:"patientId" json:"patientId"` // denormalized for reporting
	ExerciseID       primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	SessionID        string             `bson:"sessionId" json:"sessionId"`
	Completed        bool               `bson:"completed" json:"completed"`
	PainLevel        *int               `bson:"painLevel,omitempty" json:"painLevel,omitempty"`               // 0-10
	DifficultyRating *int               `bson:"difficultyRating,omitempty" json:"difficultyRating,omitempty"` // 1-5
	MoodRating       *int               `bson:"moodRating,omitempty" json:"moodRating,omitempty"`             // 1-5
	Comment          string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CompletedAt      time.Time          `bson:"completedAt" json:"completedAt"`
}
