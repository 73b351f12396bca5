// services/ledger_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"studiopro-backend/models"
	"studiopro-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CategoryMonthlyPayments = "Monthly payments"
	CategoryCommissions     = "Instructor commissions"
)

// LedgerService owns the append-only transaction ledger. Every origin
// (payment, commission, expense record) maps to at most one ledger row;
// recording is a lookup-or-create so reruns reconcile instead of duplicating.
type LedgerService struct {
	db *gorm.DB

	now func() time.Time
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db, now: time.Now}
}

// RecordPaymentIncome records the income entry for a settled payment inside
// the caller's transaction. No-op when the payment is not paid. A rerun
// finds the existing entry by origin and overwrites its amount, description
// and date instead of inserting a second row.
func (s *LedgerService) RecordPaymentIncome(tx *gorm.DB, payment *models.MonthlyPayment, actorID uuid.UUID) (*models.Transaction, error) {
	if payment.Status != models.PaymentPaid {
		return nil, nil
	}

	date := s.now()
	if payment.PaidAt != nil {
		date = *payment.PaidAt
	}

	return s.reconcile(tx, models.PaymentOrigin(payment.ID), models.Transaction{
		StudioID:        payment.StudioID,
		Type:            models.TransactionIncome,
		Category:        CategoryMonthlyPayments,
		Description:     fmt.Sprintf("Monthly payment %s (%s)", payment.ReceiptNumber, payment.ReferenceMonth.Format("2006-01")),
		Amount:          payment.Amount,
		TransactionDate: utils.BeginningOfDay(date),
		InstructorID:    payment.InstructorID,
		CreatedByUserID: actorID,
	})
}

// RecordCommission records (or reconciles) the ledger entry for a
// commission. Called at derivation and again at commission settlement, when
// the settlement date replaces the accrual date.
func (s *LedgerService) RecordCommission(tx *gorm.DB, commission *models.Commission, actorID uuid.UUID) (*models.Transaction, error) {
	date := s.now()
	description := fmt.Sprintf("Commission accrued for payment %s", commission.PaymentID)
	if commission.PaidAt != nil {
		date = *commission.PaidAt
		description = fmt.Sprintf("Commission paid for payment %s", commission.PaymentID)
	}

	instructorID := commission.InstructorID
	return s.reconcile(tx, models.CommissionOrigin(commission.ID), models.Transaction{
		StudioID:        commission.StudioID,
		Type:            models.TransactionCommission,
		Category:        CategoryCommissions,
		Description:     description,
		Amount:          commission.CommissionAmount,
		TransactionDate: utils.BeginningOfDay(date),
		InstructorID:    &instructorID,
		CreatedByUserID: actorID,
	})
}

// ExpenseInput is an expense supplied by the expense subsystem. ExpenseID
// ties the ledger entry back to the external record so re-submission
// reconciles instead of duplicating.
type ExpenseInput struct {
	ExpenseID   *uuid.UUID
	Category    string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
}

// RecordExpense records an expense ledger entry.
func (s *LedgerService) RecordExpense(studioID uuid.UUID, input ExpenseInput, actorID uuid.UUID) (*models.Transaction, error) {
	if input.Amount.IsNegative() {
		return nil, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if input.Category == "" {
		return nil, &ValidationError{Field: "category", Reason: "is required"}
	}

	expenseID := uuid.New()
	if input.ExpenseID != nil {
		expenseID = *input.ExpenseID
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}

	var entry *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.reconcile(tx, models.ExpenseOrigin(expenseID), models.Transaction{
			StudioID:        studioID,
			Type:            models.TransactionExpense,
			Category:        input.Category,
			Description:     input.Description,
			Amount:          input.Amount.Round(2),
			TransactionDate: utils.BeginningOfDay(date),
			CreatedByUserID: actorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// reconcile is the idempotency core: locate the entry for this origin and
// overwrite its mutable fields, or insert it when none exists yet.
func (s *LedgerService) reconcile(tx *gorm.DB, origin models.OriginRef, fresh models.Transaction) (*models.Transaction, error) {
	var existing models.Transaction
	err := tx.Where("origin_kind = ? AND origin_id = ?", origin.Kind, origin.ID).
		First(&existing).Error
	if err == nil {
		updates := map[string]interface{}{
			"amount":           fresh.Amount,
			"description":      fresh.Description,
			"transaction_date": fresh.TransactionDate,
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		existing.Amount = fresh.Amount
		existing.Description = fresh.Description
		existing.TransactionDate = fresh.TransactionDate
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh.Origin = origin
	if err := tx.Create(&fresh).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

// CategoryTotal is one category's total within a report window.
type CategoryTotal struct {
	Category string                 `json:"category"`
	Type     models.TransactionType `json:"type"`
	Total    decimal.Decimal        `json:"total"`
}

// InstructorTotal is one instructor's income and commission share.
type InstructorTotal struct {
	InstructorID uuid.UUID       `json:"instructorId"`
	Name         string          `json:"name"`
	Income       decimal.Decimal `json:"income"`
	Commissions  decimal.Decimal `json:"commissions"`
}

// MonthlySummary is one row of the month-by-month trend.
type MonthlySummary struct {
	Month        string          `json:"month"` // YYYY-MM
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Commissions  decimal.Decimal `json:"commissions"`
	Profit       decimal.Decimal `json:"profit"`
	IncomeGrowth decimal.Decimal `json:"incomeGrowth"` // percent vs previous month
}

// PeriodReport is the financial summary for a date window.
type PeriodReport struct {
	Start            time.Time         `json:"start"`
	End              time.Time         `json:"end"`
	TotalIncome      decimal.Decimal   `json:"totalIncome"`
	TotalExpenses    decimal.Decimal   `json:"totalExpenses"`
	TotalCommissions decimal.Decimal   `json:"totalCommissions"`
	Profit           decimal.Decimal   `json:"profit"`
	ProfitMargin     decimal.Decimal   `json:"profitMargin"` // percent of income
	ByCategory       []CategoryTotal   `json:"byCategory"`
	ByInstructor     []InstructorTotal `json:"byInstructor"`
	MonthlyTrend     []MonthlySummary  `json:"monthlyTrend"`
}

// Report aggregates the ledger over [start, end]: totals by type, category
// and instructor, profit and margin, and a month-by-month trend with one row
// per calendar month even when a month has no transactions.
func (s *LedgerService) Report(studioID uuid.UUID, start, end time.Time) (*PeriodReport, error) {
	start = utils.BeginningOfDay(start)
	end = utils.BeginningOfDay(end)

	income, expenses, commissions, err := s.totalsByType(studioID, start, end)
	if err != nil {
		return nil, err
	}

	profit := income.Sub(expenses).Sub(commissions)
	margin := decimal.Zero
	if !income.IsZero() {
		margin = profit.Div(income).Mul(oneHundred).Round(2)
	}

	var byCategory []CategoryTotal
	if err := s.db.Model(&models.Transaction{}).
		Select("category, type, COALESCE(SUM(amount), 0) as total").
		Where("studio_id = ? AND transaction_date BETWEEN ? AND ?", studioID, start, end).
		Group("category, type").
		Order("total DESC").
		Scan(&byCategory).Error; err != nil {
		return nil, err
	}

	var byInstructor []InstructorTotal
	if err := s.db.Table("transactions").
		Select(`transactions.instructor_id, users.name,
			COALESCE(SUM(CASE WHEN transactions.type = 'income' THEN transactions.amount ELSE 0 END), 0) as income,
			COALESCE(SUM(CASE WHEN transactions.type = 'commission' THEN transactions.amount ELSE 0 END), 0) as commissions`).
		Joins("JOIN users ON users.id = transactions.instructor_id").
		Where("transactions.studio_id = ? AND transactions.transaction_date BETWEEN ? AND ? AND transactions.deleted_at IS NULL",
			studioID, start, end).
		Group("transactions.instructor_id, users.name").
		Order("income DESC").
		Scan(&byInstructor).Error; err != nil {
		return nil, err
	}

	trend, err := s.monthlyTrend(studioID, start, end)
	if err != nil {
		return nil, err
	}

	return &PeriodReport{
		Start:            start,
		End:              end,
		TotalIncome:      income,
		TotalExpenses:    expenses,
		TotalCommissions: commissions,
		Profit:           profit,
		ProfitMargin:     margin,
		ByCategory:       byCategory,
		ByInstructor:     byInstructor,
		MonthlyTrend:     trend,
	}, nil
}

func (s *LedgerService) totalsByType(studioID uuid.UUID, start, end time.Time) (income, expenses, commissions decimal.Decimal, err error) {
	var rows []struct {
		Type  models.TransactionType
		Total decimal.Decimal
	}
	err = s.db.Model(&models.Transaction{}).
		Select("type, COALESCE(SUM(amount), 0) as total").
		Where("studio_id = ? AND transaction_date BETWEEN ? AND ?", studioID, start, end).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return
	}

	income, expenses, commissions = decimal.Zero, decimal.Zero, decimal.Zero
	for _, row := range rows {
		switch row.Type {
		case models.TransactionIncome:
			income = row.Total
		case models.TransactionExpense:
			expenses = row.Total
		case models.TransactionCommission:
			commissions = row.Total
		}
	}
	return
}

func (s *LedgerService) monthlyTrend(studioID uuid.UUID, start, end time.Time) ([]MonthlySummary, error) {
	trend := []MonthlySummary{}
	previousIncome := decimal.Zero

	for month := utils.StartOfMonth(start); !month.After(end); month = month.AddDate(0, 1, 0) {
		monthEnd := utils.EndOfMonth(month)
		income, expenses, commissions, err := s.totalsByType(studioID, month, monthEnd)
		if err != nil {
			return nil, err
		}

		trend = append(trend, MonthlySummary{
			Month:        month.Format("2006-01"),
			Income:       income,
			Expenses:     expenses,
			Commissions:  commissions,
			Profit:       income.Sub(expenses).Sub(commissions),
			IncomeGrowth: utils.GrowthPercent(income, previousIncome),
		})
		previousIncome = income
	}
	return trend, nil
}

// Balance returns income minus everything that is not income over the
// optional window.
func (s *LedgerService) Balance(studioID uuid.UUID, start, end *time.Time) (decimal.Decimal, error) {
	query := s.db.Model(&models.Transaction{}).Where("studio_id = ?", studioID)
	if start != nil {
		query = query.Where("transaction_date >= ?", utils.BeginningOfDay(*start))
	}
	if end != nil {
		query = query.Where("transaction_date <= ?", utils.BeginningOfDay(*end))
	}

	var row struct {
		Balance decimal.Decimal
	}
	err := query.
		Select("COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE -amount END), 0) as balance").
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Balance, nil
}
