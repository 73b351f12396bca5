package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionIncome     TransactionType = "income"
	TransactionExpense    TransactionType = "expense"
	TransactionCommission TransactionType = "commission"
)

// OriginKind tags what produced a ledger transaction.
type OriginKind string

const (
	OriginMonthlyPayment OriginKind = "monthly_payment"
	OriginCommission     OriginKind = "commission"
	OriginExpense        OriginKind = "expense"
)

func (k OriginKind) IsValid() bool {
	switch k {
	case OriginMonthlyPayment, OriginCommission, OriginExpense:
		return true
	}
	return false
}

// OriginRef points a ledger transaction back at the record that produced it.
// One origin produces at most one transaction; services locate the existing
// row by origin before ever inserting a new one.
type OriginRef struct {
	Kind OriginKind `gorm:"column:origin_kind;type:varchar(30);not null;index:idx_origin,priority:1"`
	ID   uuid.UUID  `gorm:"column:origin_id;type:uuid;not null;index:idx_origin,priority:2"`
}

func PaymentOrigin(id uuid.UUID) OriginRef {
	return OriginRef{Kind: OriginMonthlyPayment, ID: id}
}

func CommissionOrigin(id uuid.UUID) OriginRef {
	return OriginRef{Kind: OriginCommission, ID: id}
}

func ExpenseOrigin(id uuid.UUID) OriginRef {
	return OriginRef{Kind: OriginExpense, ID: id}
}

// Transaction is one append-only ledger record. Rows are never removed;
// the only mutation is the owning service reconciling amount, description
// and date of the row located by origin.
type Transaction struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	StudioID uuid.UUID `gorm:"type:uuid;index;not null"`

	Type        TransactionType `gorm:"type:varchar(20);not null;index"`
	Category    string          `gorm:"not null"`
	Description string          `gorm:"type:text"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	TransactionDate time.Time `gorm:"type:date;not null;index"`

	Origin OriginRef `gorm:"embedded"`

	// Instructor attribution for per-staff reporting; set for income from
	// instructor-owned students and for commission payouts.
	InstructorID *uuid.UUID `gorm:"type:uuid;index"`

	CreatedByUserID uuid.UUID `gorm:"type:uuid;not null"`

	gorm.Model
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
