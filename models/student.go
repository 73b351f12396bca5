package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Student struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	StudioID        uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;index;not null"`

	Name  string `gorm:"not null"`
	Phone string `gorm:"not null;uniqueIndex:idx_studio_phone,priority:2"`
	Email string
	Notes string

	PlanID uuid.UUID `gorm:"type:uuid;index;not null"`
	Plan   Plan      `gorm:"foreignKey:PlanID"`

	// Negotiated monthly price. Null means the plan price applies.
	CustomPrice *decimal.Decimal `gorm:"type:decimal(10,2)"`

	// Instructor responsible for this student; commissions on settled
	// payments are credited to them. Null means no commission is derived.
	InstructorID *uuid.UUID `gorm:"type:uuid;index"`

	EnrolledAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	IsActive   bool      `gorm:"default:true"`

	Payments []MonthlyPayment `gorm:"foreignKey:StudentID"`

	gorm.Model
}

func (s *Student) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// MonthlyPrice returns the amount the student is billed for one month:
// the negotiated custom price when present, otherwise the plan price.
func (s *Student) MonthlyPrice() decimal.Decimal {
	if s.CustomPrice != nil {
		return *s.CustomPrice
	}
	return s.Plan.Price
}
