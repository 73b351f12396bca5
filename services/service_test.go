// services/service_test.go
package services

import (
	"testing"
	"time"

	"studiopro-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Studio{},
		&models.User{},
		&models.Plan{},
		&models.Student{},
		&models.MonthlyPayment{},
		&models.Commission{},
		&models.Transaction{},
		&models.JobRun{},
		&models.NotificationLog{},
	))

	return db
}

// fixture is a studio with an owner, an instructor, a plan and one student
// assigned to the instructor.
type fixture struct {
	db         *gorm.DB
	studio     models.Studio
	owner      models.User
	instructor models.User
	plan       models.Plan
	student    models.Student

	billing     *BillingService
	commissions *CommissionService
	ledger      *LedgerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)

	f := &fixture{db: db}

	f.studio = models.Studio{ID: uuid.New(), Name: "Core Pilates"}
	require.NoError(t, db.Create(&f.studio).Error)

	f.owner = models.User{
		Email:    "owner@corepilates.test",
		Password: "secret-password",
		Name:     "Owner",
		Role:     models.RoleOwner,
		StudioID: f.studio.ID,
		IsActive: true,
	}
	require.NoError(t, db.Create(&f.owner).Error)

	f.instructor = models.User{
		Email:    "instructor@corepilates.test",
		Password: "secret-password",
		Name:     "Instructor",
		Role:     models.RoleInstructor,
		StudioID: f.studio.ID,
		IsActive: true,
	}
	require.NoError(t, db.Create(&f.instructor).Error)

	f.plan = models.Plan{
		StudioID: f.studio.ID,
		Name:     "Twice a week",
		Price:    decimal.RequireFromString("200.00"),
		IsActive: true,
	}
	require.NoError(t, db.Create(&f.plan).Error)

	instructorID := f.instructor.ID
	f.student = models.Student{
		StudioID:        f.studio.ID,
		CreatedByUserID: f.owner.ID,
		Name:            "Alice",
		Phone:           "+5511999990001",
		PlanID:          f.plan.ID,
		InstructorID:    &instructorID,
		EnrolledAt:      time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		IsActive:        true,
	}
	require.NoError(t, db.Create(&f.student).Error)

	f.ledger = NewLedgerService(db)
	f.commissions = NewCommissionService(db, f.ledger, decimal.NewFromInt(30))
	f.billing = NewBillingService(db, f.commissions, f.ledger)

	return f
}

// freeze pins every service clock to the given instant.
func (f *fixture) freeze(at time.Time) {
	f.billing.now = func() time.Time { return at }
	f.commissions.now = func() time.Time { return at }
	f.ledger.now = func() time.Time { return at }
}

func (f *fixture) addStudent(t *testing.T, name, phone string, customPrice *decimal.Decimal, instructorID *uuid.UUID) models.Student {
	t.Helper()
	student := models.Student{
		StudioID:        f.studio.ID,
		CreatedByUserID: f.owner.ID,
		Name:            name,
		Phone:           phone,
		PlanID:          f.plan.ID,
		CustomPrice:     customPrice,
		InstructorID:    instructorID,
		EnrolledAt:      time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		IsActive:        true,
	}
	require.NoError(t, f.db.Create(&student).Error)
	return student
}

func (f *fixture) reloadPayment(t *testing.T, id uuid.UUID) models.MonthlyPayment {
	t.Helper()
	var payment models.MonthlyPayment
	require.NoError(t, f.db.Where("id = ?", id).First(&payment).Error)
	return payment
}

func march2025() time.Time {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
}
