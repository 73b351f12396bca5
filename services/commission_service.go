// services/commission_service.go
package services

import (
	"errors"
	"log"
	"os"
	"time"

	"studiopro-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultCommissionRate reads the studio-wide fallback commission
// percentage from the environment, defaulting to 30.
func DefaultCommissionRate() decimal.Decimal {
	if env := os.Getenv("DEFAULT_COMMISSION_RATE"); env != "" {
		if rate, err := decimal.NewFromString(env); err == nil && !rate.IsNegative() {
			return rate
		}
	}
	return decimal.NewFromInt(30)
}

// CommissionService derives instructor commissions from settled payments and
// tracks their pending/paid lifecycle.
type CommissionService struct {
	db          *gorm.DB
	ledger      *LedgerService
	defaultRate decimal.Decimal

	now func() time.Time
}

func NewCommissionService(db *gorm.DB, ledger *LedgerService, defaultRate decimal.Decimal) *CommissionService {
	return &CommissionService{
		db:          db,
		ledger:      ledger,
		defaultRate: defaultRate,
		now:         time.Now,
	}
}

// Derive creates the commission for a settled payment inside the caller's
// transaction, along with its commission ledger entry. Idempotent: an
// existing commission for the payment is returned as-is. Payments that are
// not paid, or whose student has no instructor, yield no commission and no
// error.
func (s *CommissionService) Derive(tx *gorm.DB, payment *models.MonthlyPayment, actorID uuid.UUID) (*models.Commission, error) {
	if payment.Status != models.PaymentPaid {
		return nil, nil
	}

	var existing models.Commission
	err := tx.Where("payment_id = ?", payment.ID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if payment.InstructorID == nil {
		return nil, nil
	}

	var instructor models.User
	if err := tx.Where("id = ?", *payment.InstructorID).First(&instructor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rate := s.defaultRate
	if instructor.CommissionRate != nil {
		rate = *instructor.CommissionRate
	}

	base := payment.Amount
	commission := models.Commission{
		StudioID:         payment.StudioID,
		InstructorID:     instructor.ID,
		PaymentID:        payment.ID,
		BaseAmount:       base,
		CommissionRate:   rate,
		CommissionAmount: base.Mul(rate).Div(oneHundred).Round(2),
		Status:           models.CommissionPending,
		CreatedByUserID:  actorID,
	}

	if err := tx.Create(&commission).Error; err != nil {
		return nil, err
	}
	if _, err := s.ledger.RecordCommission(tx, &commission, actorID); err != nil {
		return nil, err
	}
	return &commission, nil
}

// DeriveByID loads the payment and derives its commission in a fresh
// transaction. This is the standalone backfill path, not the settlement one.
func (s *CommissionService) DeriveByID(studioID, paymentID uuid.UUID, actorID uuid.UUID) (*models.Commission, error) {
	var commission *models.Commission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.MonthlyPayment
		if err := tx.Where("studio_id = ? AND id = ?", studioID, paymentID).
			First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		var err error
		commission, err = s.Derive(tx, &payment, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return commission, nil
}

// Settle transitions a pending commission to paid and reconciles its ledger
// entry's date and description.
func (s *CommissionService) Settle(studioID, commissionID uuid.UUID, actorID uuid.UUID) (*models.Commission, error) {
	var commission models.Commission

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("studio_id = ? AND id = ?", studioID, commissionID).
			First(&commission).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if commission.Status != models.CommissionPending {
			return ErrInvalidStateTransition
		}

		paidAt := s.now()
		res := tx.Model(&models.Commission{}).
			Where("id = ? AND status = ?", commission.ID, models.CommissionPending).
			Updates(map[string]interface{}{
				"status":  models.CommissionPaid,
				"paid_at": paidAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidStateTransition
		}

		commission.Status = models.CommissionPaid
		commission.PaidAt = &paidAt

		_, err := s.ledger.RecordCommission(tx, &commission, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

// BatchResult reports a per-row isolated batch operation.
type BatchResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// SettleBatch settles every currently pending commission in the id set.
// Rows fail independently; one bad commission never aborts the batch.
func (s *CommissionService) SettleBatch(studioID uuid.UUID, ids []uuid.UUID, actorID uuid.UUID) (*BatchResult, error) {
	result := &BatchResult{Total: len(ids)}

	var pending []models.Commission
	if err := s.db.Where("studio_id = ? AND id IN ? AND status = ?",
		studioID, ids, models.CommissionPending).
		Find(&pending).Error; err != nil {
		return nil, err
	}

	for _, commission := range pending {
		if _, err := s.Settle(studioID, commission.ID, actorID); err != nil {
			log.Printf("Commission settle failed for %s: %v", commission.ID, err)
			result.Failed++
			continue
		}
		result.Processed++
	}
	return result, nil
}

// DeriveAllPending backfills commissions for settled payments that have
// none, optionally bounded by settlement date. Meant for repairing gaps
// left by out-of-band settlements; the settlement transaction itself never
// needs it.
func (s *CommissionService) DeriveAllPending(studioID uuid.UUID, start, end *time.Time, actorID uuid.UUID) (*BatchResult, error) {
	query := s.db.Where("studio_id = ? AND status = ? AND instructor_id IS NOT NULL", studioID, models.PaymentPaid).
		Where("id NOT IN (SELECT payment_id FROM commissions WHERE deleted_at IS NULL)")
	if start != nil {
		query = query.Where("paid_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("paid_at <= ?", *end)
	}

	var payments []models.MonthlyPayment
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}

	result := &BatchResult{Total: len(payments)}
	for _, payment := range payments {
		if _, err := s.DeriveByID(studioID, payment.ID, actorID); err != nil {
			log.Printf("Commission backfill failed for payment %s: %v", payment.ID, err)
			result.Failed++
			continue
		}
		result.Processed++
	}
	return result, nil
}
