package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RehabProgram points a patient at a phase. CurrentPhase changes only by an
// explicit instructor action; SurgeryDate only anchors the elapsed-time hint.
type RehabProgram struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID       primitive.ObjectID `bson:"patientId" json:"patientId"`
	InstructorID    primitive.ObjectID `bson:"instructorId" json:"instructorId"`
	CurrentPhase    int                `bson:"currentPhase" json:"currentPhase"`
	SurgeryDate     *time.Time         `bson:"surgeryDate,omitempty" json:"surgeryDate,omitempty"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CheckedCriteria []int              `bson:"checkedCriteria" json:"checkedCriteria"` // indices into the current phase's criteria
	PhaseChangedAt  *time.Time         `bson:"phaseChangedAt,omitempty" json:"phaseChangedAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type FAQItem struct {
	Question string `bson:"question" json:"question" yaml:"question"`
	Answer   string `bson:"answer" json:"answer" yaml:"answer"`
}

// RehabPhase is one ordered stage of the roadmap catalog.
type RehabPhase struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id" yaml:"-"`
	PhaseNumber        int                `bson:"phaseNumber" json:"phaseNumber" yaml:"phase_number"`
	Title              string             `bson:"title" json:"title" yaml:"title"`
	Subtitle           string             `bson:"subtitle,omitempty" json:"subtitle,omitempty" yaml:"subtitle"`
	WeekStart          int                `bson:"weekStart" json:"weekStart" yaml:"week_start"`
	WeekEnd            int                `bson:"weekEnd" json:"weekEnd" yaml:"week_end"`
	DurationWeeks      int                `bson:"durationWeeks" json:"durationWeeks" yaml:"duration_weeks"`
	Goals              []string           `bson:"goals" json:"goals" yaml:"goals"`
	Restrictions       []string           `bson:"restrictions" json:"restrictions" yaml:"restrictions"`
	Allowed            []string           `bson:"allowed" json:"allowed" yaml:"allowed"`
	PainGuidance       string             `bson:"painGuidance,omitempty" json:"painGuidance,omitempty" yaml:"pain_guidance"`
	DailyLife          string             `bson:"dailyLife,omitempty" json:"dailyLife,omitempty" yaml:"daily_life"`
	RedFlags           []string           `bson:"redFlags" json:"redFlags" yaml:"red_flags"`
	FAQ                []FAQItem          `bson:"faq" json:"faq" yaml:"faq"`
	TransitionCriteria []string           `bson:"transitionCriteria" json:"transitionCriteria" yaml:"transition_criteria"`
	Color              string             `bson:"color,omitempty" json:"color,omitempty" yaml:"color"`
	Icon               string             `bson:"icon,omitempty" json:"icon,omitempty" yaml:"icon"`
}
