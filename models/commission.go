package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionStatus string

const (
	CommissionPending CommissionStatus = "pending"
	CommissionPaid    CommissionStatus = "paid"
)

// Commission is an instructor's cut of one settled monthly payment. At most
// one exists per payment; nothing beyond the paid transition mutates it.
type Commission struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	StudioID     uuid.UUID `gorm:"type:uuid;index;not null"`
	InstructorID uuid.UUID `gorm:"type:uuid;index;not null"`
	PaymentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	BaseAmount       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CommissionRate   decimal.Decimal `gorm:"type:decimal(10,2);not null"` // percent, 0-100
	CommissionAmount decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	Status CommissionStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaidAt *time.Time

	CreatedByUserID uuid.UUID `gorm:"type:uuid;not null"`

	Instructor User           `gorm:"foreignKey:InstructorID"`
	Payment    MonthlyPayment `gorm:"foreignKey:PaymentID"`

	gorm.Model
}

func (c *Commission) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
