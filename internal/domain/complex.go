package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Complex is a prescribed, ordered exercise program for one Patient.
// AccessToken lets the patient open it without logging in.
type Complex struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	InstructorID    primitive.ObjectID  `bson:"instructorId" json:"instructorId"`
	PatientID       primitive.ObjectID  `bson:"patientId" json:"patientId"`
	DiagnosisID     *primitive.ObjectID `bson:"diagnosisId,omitempty" json:"diagnosisId,omitempty"`
	TemplateID      *primitive.ObjectID `bson:"templateId,omitempty" json:"templateId,omitempty"` // provenance only
	Title           string              `bson:"title,omitempty" json:"title,omitempty"`
	Recommendations string              `bson:"recommendations,omitempty" json:"recommendations,omitempty"`
	Warnings        string              `bson:"warnings,omitempty" json:"warnings,omitempty"`
	AccessToken     string              `bson:"accessToken" json:"accessToken"`
	IsActive        bool                `bson:"isActive" json:"isActive"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (c *Complex) LifecycleState() LifecycleState {
	return stateOf(c.IsActive)
}

// ExerciseParams is the dosage of one ordered entry. Exactly one of Reps and
// DurationSeconds is set.
type ExerciseParams struct {
	Sets            int    `bson:"sets" json:"sets"`
	Reps            *int   `bson:"reps,omitempty" json:"reps,omitempty"`
	DurationSeconds *int   `bson:"durationSeconds,omitempty" json:"durationSeconds,omitempty"`
	RestSeconds     *int   `bson:"restSeconds,omitempty" json:"restSeconds,omitempty"`
	Notes           string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ComplexExercise places an Exercise at OrderNumber (1..N) inside a Complex.
type ComplexExercise struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ComplexID      primitive.ObjectID `bson:"complexId" json:"complexId"`
	ExerciseID     primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	OrderNumber    int                `bson:"orderNumber" json:"orderNumber"`
	ExerciseParams `bson:",inline"`
}
