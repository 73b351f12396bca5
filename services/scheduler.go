// services/scheduler.go
package services

import (
	"log"
	"os"
	"time"

	"studiopro-backend/models"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultLateFeePercent is the one-off late fee applied to the original
// amount of an overdue payment, overridable via env.
func DefaultLateFeePercent() decimal.Decimal {
	return envDecimal("LATE_FEE_PERCENT", decimal.NewFromFloat(2.0))
}

// DefaultDailyInterestRate is the daily interest percentage accrued per day
// late, overridable via env.
func DefaultDailyInterestRate() decimal.Decimal {
	return envDecimal("DAILY_INTEREST_RATE", decimal.NewFromFloat(0.033))
}

func envDecimal(name string, fallback decimal.Decimal) decimal.Decimal {
	if env := os.Getenv(name); env != "" {
		if d, err := decimal.NewFromString(env); err == nil && !d.IsNegative() {
			return d
		}
	}
	return fallback
}

// SchedulerService runs the recurring billing jobs: the daily delinquency
// sweep with penalty accrual, the monthly payment generation, and the daily
// payment reminder pass. Every run is gated by a JobRun row keyed on its
// logical period, so a scheduler firing twice does the work once.
type SchedulerService struct {
	db            *gorm.DB
	billing       *BillingService
	notifications *NotificationService

	now func() time.Time
}

func NewSchedulerService(db *gorm.DB, billing *BillingService, notifications *NotificationService) *SchedulerService {
	return &SchedulerService{
		db:            db,
		billing:       billing,
		notifications: notifications,
		now:           time.Now,
	}
}

func (s *SchedulerService) StartScheduler() {
	c := cron.New()

	// Delinquency sweep and penalties every day at 6 AM
	c.AddFunc("0 6 * * *", s.RunDailySweep)

	// Generate the new month's payments on the 1st at 5 AM
	c.AddFunc("0 5 1 * *", s.RunMonthlyGeneration)

	// Payment reminders every day at 9 AM
	c.AddFunc("0 9 * * *", s.notifications.SendDailyReminders)

	c.Start()
	log.Println("Billing scheduler started")
}

// RunDailySweep marks overdue payments and recomputes penalties for every
// studio. Deduped per studio per calendar date.
func (s *SchedulerService) RunDailySweep() {
	log.Println("Starting daily delinquency sweep...")

	feePercent := DefaultLateFeePercent()
	dailyRate := DefaultDailyInterestRate()
	runDate := s.now().Format("2006-01-02")

	var studios []models.Studio
	if err := s.db.Find(&studios).Error; err != nil {
		log.Printf("Failed to fetch studios: %v", err)
		return
	}

	for _, studio := range studios {
		run, fresh := s.markRun("sweep", runDate+":"+studio.ID.String())
		if !fresh {
			continue
		}

		swept, err := s.billing.MarkOverdue(studio.ID)
		if err != nil {
			log.Printf("Studio %s: sweep failed: %v", studio.ID, err)
			s.finishRun(run, 0, 1)
			continue
		}

		accrued, err := s.billing.ApplyPenalties(studio.ID, feePercent, dailyRate)
		if err != nil {
			log.Printf("Studio %s: penalty accrual failed: %v", studio.ID, err)
			s.finishRun(run, swept, 1)
			continue
		}

		log.Printf("Studio %s: %d payments marked overdue, %d penalties accrued", studio.ID, swept, accrued)
		s.finishRun(run, swept+accrued, 0)
	}

	log.Println("Daily delinquency sweep completed")
}

// RunMonthlyGeneration generates the current month's payments for every
// studio. Deduped per studio per month.
func (s *SchedulerService) RunMonthlyGeneration() {
	log.Println("Starting monthly payment generation...")

	runMonth := s.now().Format("2006-01")

	var studios []models.Studio
	if err := s.db.Find(&studios).Error; err != nil {
		log.Printf("Failed to fetch studios: %v", err)
		return
	}

	for _, studio := range studios {
		run, fresh := s.markRun("generate", runMonth+":"+studio.ID.String())
		if !fresh {
			continue
		}

		actorID, err := s.studioOwner(studio.ID)
		if err != nil {
			log.Printf("Studio %s: no owner for generation audit: %v", studio.ID, err)
			s.finishRun(run, 0, 1)
			continue
		}

		result, err := s.billing.Generate(studio.ID, s.now(), actorID)
		if err != nil {
			log.Printf("Studio %s: generation failed: %v", studio.ID, err)
			s.finishRun(run, 0, 1)
			continue
		}

		log.Printf("Studio %s: %d payments generated, %d already existed, %d failed",
			studio.ID, len(result.Created), result.AlreadyExists, result.Failed)
		s.finishRun(run, len(result.Created), result.Failed)
	}

	log.Println("Monthly payment generation completed")
}

// markRun claims the (job, key) slot. The unique index makes the second
// claimer lose, which is what keeps a double-fired schedule idempotent.
func (s *SchedulerService) markRun(job, key string) (*models.JobRun, bool) {
	run := models.JobRun{JobName: job, RunKey: key, RanAt: s.now()}
	if err := s.db.Create(&run).Error; err != nil {
		return nil, false
	}
	return &run, true
}

func (s *SchedulerService) finishRun(run *models.JobRun, processed, failed int) {
	if run == nil {
		return
	}
	if err := s.db.Model(run).Updates(map[string]interface{}{
		"processed": processed,
		"failed":    failed,
	}).Error; err != nil {
		log.Printf("Failed to update job run %s/%s: %v", run.JobName, run.RunKey, err)
	}
}

func (s *SchedulerService) studioOwner(studioID uuid.UUID) (uuid.UUID, error) {
	var owner models.User
	if err := s.db.Where("studio_id = ? AND role = ?", studioID, models.RoleOwner).
		First(&owner).Error; err != nil {
		return uuid.Nil, err
	}
	return owner.ID, nil
}
