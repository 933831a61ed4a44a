package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Diagnosis is a small catalog entry a Complex may reference.
type Diagnosis struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
