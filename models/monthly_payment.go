package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentCancelled PaymentStatus = "cancelled"
)

// MonthlyPayment is one billing record for one student for one calendar
// month. At most one exists per (student, reference month); cancellation is
// a status, never a delete.
type MonthlyPayment struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key"`
	StudioID     uuid.UUID  `gorm:"type:uuid;index;not null"`
	StudentID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_student_month,priority:1"`
	PlanID       uuid.UUID  `gorm:"type:uuid;index;not null"`
	InstructorID *uuid.UUID `gorm:"type:uuid;index"`

	// First day of the billed calendar month. Identifies the period, not a
	// point in time.
	ReferenceMonth time.Time `gorm:"type:date;not null;uniqueIndex:idx_student_month,priority:2"`

	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	OriginalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Discount       decimal.Decimal `gorm:"type:decimal(10,2);default:0.0"`
	LateFee        decimal.Decimal `gorm:"type:decimal(10,2);default:0.0"`
	Interest       decimal.Decimal `gorm:"type:decimal(10,2);default:0.0"`

	DueDate          time.Time  `gorm:"type:date;not null"`
	PaidAt           *time.Time
	GracePeriodUntil *time.Time `gorm:"type:date"`

	Status        PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentMethod *string       `gorm:"type:varchar(20)"` // cash, card, pix, transfer
	Notes         string        `gorm:"type:text"`
	ReceiptNumber string        `gorm:"uniqueIndex"`
	IsAutomatic   bool          `gorm:"default:false"`

	CreatedByUserID uuid.UUID  `gorm:"type:uuid;not null"`
	UpdatedByUserID *uuid.UUID `gorm:"type:uuid"`

	Student Student `gorm:"foreignKey:StudentID"`

	gorm.Model
}

func (m *MonthlyPayment) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}

// The receipt number is assigned exactly once, after the record first
// persists, and never changes afterwards.
func (m *MonthlyPayment) AfterCreate(tx *gorm.DB) (err error) {
	if m.ReceiptNumber != "" {
		return nil
	}
	m.ReceiptNumber = "REC-" + m.ReferenceMonth.Format("200601") + "-" +
		strings.ToUpper(strings.ReplaceAll(m.ID.String(), "-", "")[:8])
	return tx.Model(&MonthlyPayment{}).Where("id = ?", m.ID).
		Update("receipt_number", m.ReceiptNumber).Error
}

// Recompute restores the money invariant
// amount = original_amount + late_fee + interest - discount.
func (m *MonthlyPayment) Recompute() {
	m.Amount = m.OriginalAmount.Add(m.LateFee).Add(m.Interest).Sub(m.Discount).Round(2)
}

func (m *MonthlyPayment) IsSettleable() bool {
	return m.Status == PaymentPending || m.Status == PaymentOverdue
}
