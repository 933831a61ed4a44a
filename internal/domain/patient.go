package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Patient is owned by the instructor who created it.
// IsActive=false means the record is in the trash.
type Patient struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	InstructorID primitive.ObjectID  `bson:"instructorId" json:"instructorId"`
	UserID       *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"` // linked patient account
	FullName     string              `bson:"fullName" json:"fullName"`
	Email        string              `bson:"email,omitempty" json:"email,omitempty"`
	Phone        string              `bson:"phone,omitempty" json:"phone,omitempty"`
	BirthDate    *time.Time          `bson:"birthDate,omitempty" json:"birthDate,omitempty"`
	Notes        string              `bson:"notes,omitempty" json:"notes,omitempty"`
	IsActive     bool                `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// LifecycleState reports ACTIVE or TRASHED. PURGED records no longer exist.
func (p *Patient) LifecycleState() LifecycleState {
	return stateOf(p.IsActive)
}
