// internal/domain/exercise.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise is a reusable definition in the shared library. Complexes and
// templates reference it by ID and never own it.
type Exercise struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InstructorID primitive.ObjectID `bson:"instructorId" json:"instructorId"` // creator; only they may edit
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Instructions string             `bson:"instructions,omitempty" json:"instructions,omitempty"`
	BodyRegion   string             `bson:"bodyRegion,omitempty" json:"bodyRegion,omitempty"` // e.g. "knee", "shoulder"
	Difficulty   string             `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	VideoURL     string             `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"` // external link

	// Uploaded media lives in object storage under MediaKey.
	MediaKey         string `bson:"mediaKey,omitempty" json:"-"`
	MediaContentType string `bson:"mediaContentType,omitempty" json:"mediaContentType,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
