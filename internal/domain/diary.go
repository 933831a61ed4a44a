package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the calendar-date format used for diary keys.
const DateLayout = "2006-01-02"

// Swelling is tri-state. A nil *Swelling means "not reported".
type Swelling string

const (
	SwellingLess Swelling = "less"
	SwellingSame Swelling = "same"
	SwellingMore Swelling = "more"
)

// DiaryAnswers are the structured sub-answers of a diary entry. All optional.
type DiaryAnswers struct {
	PainAtRest      *int   `bson:"painAtRest,omitempty" json:"painAtRest,omitempty"`
	PainOnMovement  *int   `bson:"painOnMovement,omitempty" json:"painOnMovement,omitempty"`
	SleepQuality    string `bson:"sleepQuality,omitempty" json:"sleepQuality,omitempty"` // good, fair, poor
	TookPainkillers *bool  `bson:"tookPainkillers,omitempty" json:"tookPainkillers,omitempty"`
	Stiffness       string `bson:"stiffness,omitempty" json:"stiffness,omitempty"` // none, morning, all_day
	Comment         string `bson:"comment,omitempty" json:"comment,omitempty"`
}

// DiaryEntry is unique per (PatientID, EntryDate).
type DiaryEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID     primitive.ObjectID `bson:"patientId" json:"patientId"`
	EntryDate     string             `bson:"entryDate" json:"entryDate"` // YYYY-MM-DD
	PainLevel     int                `bson:"painLevel" json:"painLevel"`
	Swelling      *Swelling          `bson:"swelling,omitempty" json:"swelling,omitempty"`
	ExercisesDone bool               `bson:"exercisesDone" json:"exercisesDone"`
	Answers       DiaryAnswers       `bson:"answers" json:"answers"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
