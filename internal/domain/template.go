// internal/domain/template.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Template is a patient-agnostic blueprint. Complexes materialized from it
// receive copies of its entries.
type Template struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	InstructorID primitive.ObjectID  `bson:"instructorId" json:"instructorId"`
	Name         string              `bson:"name" json:"name"`
	Description  string              `bson:"description,omitempty" json:"description,omitempty"`
	DiagnosisID  *primitive.ObjectID `bson:"diagnosisId,omitempty" json:"diagnosisId,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

type TemplateExercise struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TemplateID     primitive.ObjectID `bson:"templateId" json:"templateId"`
	ExerciseID     primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	OrderNumber    int                `bson:"orderNumber" json:"orderNumber"`
	ExerciseParams `bson:",inline"`
}
