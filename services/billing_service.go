// services/billing_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"studiopro-backend/models"
	"studiopro-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// BillingService drives the monthly payment lifecycle: batch generation,
// settlement with its commission and ledger side effects, delinquency
// detection, penalty accrual and the reverse transitions.
type BillingService struct {
	db          *gorm.DB
	commissions *CommissionService
	ledger      *LedgerService

	// injectable clock for deterministic tests
	now func() time.Time
}

func NewBillingService(db *gorm.DB, commissions *CommissionService, ledger *LedgerService) *BillingService {
	return &BillingService{
		db:          db,
		commissions: commissions,
		ledger:      ledger,
		now:         time.Now,
	}
}

// GenerationResult reports one run of the monthly batch.
type GenerationResult struct {
	Created       []models.MonthlyPayment `json:"created"`
	AlreadyExists int                     `json:"alreadyExists"`
	TotalEligible int                     `json:"totalEligible"`
	Failed        int                     `json:"failed"`
}

// Generate creates one pending payment for every active student that does
// not already have one for the given month. Safe to re-run: existing
// payments are counted and skipped, so a second run only picks up students
// enrolled since the first. Each student is processed in its own
// transaction; one failure never blocks the rest of the batch.
func (s *BillingService) Generate(studioID uuid.UUID, month time.Time, actorID uuid.UUID) (*GenerationResult, error) {
	period := utils.StartOfMonth(month)
	dueDate := utils.EndOfMonth(period)

	var students []models.Student
	if err := s.db.Preload("Plan").
		Where("studio_id = ? AND is_active = ?", studioID, true).
		Find(&students).Error; err != nil {
		return nil, err
	}

	result := &GenerationResult{
		Created:       []models.MonthlyPayment{},
		TotalEligible: len(students),
	}

	for _, student := range students {
		payment, err := s.generateForStudent(&student, period, dueDate, actorID)
		switch {
		case errors.Is(err, ErrDuplicatePayment):
			result.AlreadyExists++
		case err != nil:
			log.Printf("Generation failed for student %s (%s): %v", student.Name, student.ID, err)
			result.Failed++
		default:
			result.Created = append(result.Created, *payment)
		}
	}

	return result, nil
}

func (s *BillingService) generateForStudent(student *models.Student, period, dueDate time.Time, actorID uuid.UUID) (*models.MonthlyPayment, error) {
	amount := student.MonthlyPrice().Round(2)

	payment := models.MonthlyPayment{
		StudioID:        student.StudioID,
		StudentID:       student.ID,
		PlanID:          student.PlanID,
		InstructorID:    student.InstructorID,
		ReferenceMonth:  period,
		Amount:          amount,
		OriginalAmount:  amount,
		Discount:        decimal.Zero,
		LateFee:         decimal.Zero,
		Interest:        decimal.Zero,
		DueDate:         dueDate,
		Status:          models.PaymentPending,
		IsAutomatic:     true,
		CreatedByUserID: actorID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MonthlyPayment{}).
			Where("student_id = ? AND reference_month = ?", student.ID, period).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicatePayment
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreatePaymentInput is a manually entered payment (no batch run).
type CreatePaymentInput struct {
	StudentID uuid.UUID
	Month     time.Time
	Amount    *decimal.Decimal // override; defaults to the student's monthly price
	Discount  decimal.Decimal
	DueDate   *time.Time // defaults to the last day of the month
	Notes     string
}

// Create records a manual payment for a student and month. A second payment
// for an already-covered month is rejected with ErrDuplicatePayment.
func (s *BillingService) Create(studioID uuid.UUID, input CreatePaymentInput, actorID uuid.UUID) (*models.MonthlyPayment, error) {
	if input.Discount.IsNegative() {
		return nil, &ValidationError{Field: "discount", Reason: "must not be negative"}
	}
	if input.Amount != nil && input.Amount.IsNegative() {
		return nil, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}

	var student models.Student
	if err := s.db.Preload("Plan").
		Where("studio_id = ? AND id = ?", studioID, input.StudentID).
		First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	period := utils.StartOfMonth(input.Month)
	dueDate := utils.EndOfMonth(period)
	if input.DueDate != nil {
		dueDate = utils.BeginningOfDay(*input.DueDate)
	}

	original := student.MonthlyPrice().Round(2)
	if input.Amount != nil {
		original = input.Amount.Round(2)
	}

	payment := models.MonthlyPayment{
		StudioID:        student.StudioID,
		StudentID:       student.ID,
		PlanID:          student.PlanID,
		InstructorID:    student.InstructorID,
		ReferenceMonth:  period,
		OriginalAmount:  original,
		Discount:        input.Discount.Round(2),
		LateFee:         decimal.Zero,
		Interest:        decimal.Zero,
		DueDate:         dueDate,
		Status:          models.PaymentPending,
		Notes:           input.Notes,
		IsAutomatic:     false,
		CreatedByUserID: actorID,
	}
	payment.Recompute()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MonthlyPayment{}).
			Where("student_id = ? AND reference_month = ?", student.ID, period).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicatePayment
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Settle marks a pending or overdue payment as paid and, in the same
// transaction, derives the instructor commission and records the income
// ledger entry. Any failure past the status change rolls the whole
// settlement back; a paid payment with no commission or ledger row is never
// persisted.
func (s *BillingService) Settle(studioID, paymentID uuid.UUID, amountPaid decimal.Decimal, method, notes, receipt string, actorID uuid.UUID) (*models.MonthlyPayment, error) {
	var payment models.MonthlyPayment

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("studio_id = ? AND id = ?", studioID, paymentID).
			First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if !payment.IsSettleable() {
			return ErrInvalidStateTransition
		}
		if amountPaid.Cmp(payment.Amount) < 0 {
			return ErrInsufficientPayment
		}

		paidAt := s.now()
		updates := map[string]interface{}{
			"status":             models.PaymentPaid,
			"paid_at":            paidAt,
			"payment_method":     method,
			"updated_by_user_id": actorID,
		}
		if notes != "" {
			updates["notes"] = notes
		}
		if receipt != "" {
			updates["receipt_number"] = receipt
		}

		// Status precondition doubles as the optimistic concurrency check:
		// a concurrent settlement that already won leaves zero rows here.
		res := tx.Model(&models.MonthlyPayment{}).
			Where("id = ? AND status IN ?", payment.ID,
				[]models.PaymentStatus{models.PaymentPending, models.PaymentOverdue}).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidStateTransition
		}

		payment.Status = models.PaymentPaid
		payment.PaidAt = &paidAt
		payment.PaymentMethod = &method
		payment.UpdatedByUserID = &actorID
		if notes != "" {
			payment.Notes = notes
		}
		if receipt != "" {
			payment.ReceiptNumber = receipt
		}

		if _, err := s.commissions.Derive(tx, &payment, actorID); err != nil {
			return &SettlementError{Step: "commission", Err: err}
		}
		if _, err := s.ledger.RecordPaymentIncome(tx, &payment, actorID); err != nil {
			return &SettlementError{Step: "ledger", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkOverdue transitions every pending payment whose due date (and grace
// period, when one was granted) has passed. Already-overdue payments are
// untouched, so the daily sweep can run any number of times.
func (s *BillingService) MarkOverdue(studioID uuid.UUID) (int, error) {
	today := utils.BeginningOfDay(s.now())

	res := s.db.Model(&models.MonthlyPayment{}).
		Where("studio_id = ? AND status = ? AND due_date < ?", studioID, models.PaymentPending, today).
		Where("grace_period_until IS NULL OR grace_period_until < ?", today).
		Update("status", models.PaymentOverdue)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// ApplyPenalties recomputes the late fee and daily interest on every overdue
// payment:
//
//	late_fee = original * feePercent/100
//	interest = original * dailyRate/100 * daysLate
//
// Payments in any other state are left untouched; delinquency detection is
// MarkOverdue's job, not this one's. Rows are processed independently.
func (s *BillingService) ApplyPenalties(studioID uuid.UUID, feePercent, dailyRate decimal.Decimal) (int, error) {
	if feePercent.IsNegative() {
		return 0, &ValidationError{Field: "lateFeePercent", Reason: "must not be negative"}
	}
	if dailyRate.IsNegative() {
		return 0, &ValidationError{Field: "dailyInterestRate", Reason: "must not be negative"}
	}

	today := utils.BeginningOfDay(s.now())

	var overdue []models.MonthlyPayment
	if err := s.db.Where("studio_id = ? AND status = ?", studioID, models.PaymentOverdue).
		Find(&overdue).Error; err != nil {
		return 0, err
	}

	updated := 0
	for _, payment := range overdue {
		daysLate := utils.DaysBetween(payment.DueDate, today)
		if daysLate < 0 {
			daysLate = 0
		}

		payment.LateFee = payment.OriginalAmount.Mul(feePercent).Div(oneHundred).Round(2)
		payment.Interest = payment.OriginalAmount.Mul(dailyRate).Div(oneHundred).
			Mul(decimal.NewFromInt(int64(daysLate))).Round(2)
		payment.Recompute()

		res := s.db.Model(&models.MonthlyPayment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentOverdue).
			Updates(map[string]interface{}{
				"late_fee": payment.LateFee,
				"interest": payment.Interest,
				"amount":   payment.Amount,
			})
		if res.Error != nil {
			log.Printf("Penalty accrual failed for payment %s: %v", payment.ID, res.Error)
			continue
		}
		updated += int(res.RowsAffected)
	}
	return updated, nil
}

// Cancel moves a payment to cancelled from any state, keeping the reason in
// its notes. An earlier settlement's commission and ledger entry are NOT
// reversed here; see the report endpoints for how cancelled-but-paid rows
// surface.
func (s *BillingService) Cancel(studioID, paymentID uuid.UUID, reason string, actorID uuid.UUID) (*models.MonthlyPayment, error) {
	payment, err := s.find(studioID, paymentID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":             models.PaymentCancelled,
		"updated_by_user_id": actorID,
	}
	if reason != "" {
		updates["notes"] = appendNote(payment.Notes, "Cancelled: "+reason)
	}

	if err := s.db.Model(payment).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.find(studioID, paymentID)
}

// UndoSettlement returns a paid payment to pending, clearing the settlement
// fields. Only legal from paid.
func (s *BillingService) UndoSettlement(studioID, paymentID uuid.UUID, reason string, actorID uuid.UUID) (*models.MonthlyPayment, error) {
	payment, err := s.find(studioID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentPaid {
		return nil, ErrInvalidStateTransition
	}

	updates := map[string]interface{}{
		"status":             models.PaymentPending,
		"paid_at":            nil,
		"payment_method":     nil,
		"updated_by_user_id": actorID,
	}
	if reason != "" {
		updates["notes"] = appendNote(payment.Notes, "Settlement undone: "+reason)
	}

	res := s.db.Model(&models.MonthlyPayment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentPaid).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidStateTransition
	}
	return s.find(studioID, paymentID)
}

// UndoCancel returns a cancelled payment to pending. Only legal from
// cancelled; settlement fields are cleared along the way.
func (s *BillingService) UndoCancel(studioID, paymentID uuid.UUID, reason string, actorID uuid.UUID) (*models.MonthlyPayment, error) {
	payment, err := s.find(studioID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentCancelled {
		return nil, ErrInvalidStateTransition
	}

	updates := map[string]interface{}{
		"status":             models.PaymentPending,
		"paid_at":            nil,
		"payment_method":     nil,
		"updated_by_user_id": actorID,
	}
	if reason != "" {
		updates["notes"] = appendNote(payment.Notes, "Cancellation undone: "+reason)
	}

	res := s.db.Model(&models.MonthlyPayment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentCancelled).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidStateTransition
	}
	return s.find(studioID, paymentID)
}

// Recalculate re-reads the student's current plan or negotiated price and
// overwrites the payment's base amount. Used after a plan change before
// settlement; paid payments are left alone.
func (s *BillingService) Recalculate(studioID, paymentID uuid.UUID, actorID uuid.UUID) (*models.MonthlyPayment, error) {
	payment, err := s.find(studioID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentPaid {
		return payment, nil
	}

	var student models.Student
	if err := s.db.Preload("Plan").
		Where("id = ?", payment.StudentID).
		First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	payment.OriginalAmount = student.MonthlyPrice().Round(2)
	payment.Recompute()

	if err := s.db.Model(payment).Updates(map[string]interface{}{
		"original_amount":    payment.OriginalAmount,
		"amount":             payment.Amount,
		"updated_by_user_id": actorID,
	}).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// FindPayment returns one payment scoped to the studio.
func (s *BillingService) FindPayment(studioID, paymentID uuid.UUID) (*models.MonthlyPayment, error) {
	return s.find(studioID, paymentID)
}

func (s *BillingService) find(studioID, paymentID uuid.UUID) (*models.MonthlyPayment, error) {
	var payment models.MonthlyPayment
	if err := s.db.Where("studio_id = ? AND id = ?", studioID, paymentID).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return fmt.Sprintf("%s\n%s", existing, note)
}
