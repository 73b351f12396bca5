// services/billing_service_test.go
package services

import (
	"testing"
	"time"

	"studiopro-backend/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertMoneyInvariant(t *testing.T, p models.MonthlyPayment) {
	t.Helper()
	expected := p.OriginalAmount.Add(p.LateFee).Add(p.Interest).Sub(p.Discount).Round(2)
	assert.True(t, p.Amount.Equal(expected),
		"amount %s != original %s + late fee %s + interest %s - discount %s",
		p.Amount, p.OriginalAmount, p.LateFee, p.Interest, p.Discount)
}

func TestGenerateCreatesOnePaymentPerStudent(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "Bruno", "+5511999990002", nil, nil)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)

	assert.Len(t, result.Created, 2)
	assert.Equal(t, 0, result.AlreadyExists)
	assert.Equal(t, 2, result.TotalEligible)

	payment := result.Created[0]
	assert.True(t, payment.Amount.Equal(decimal.RequireFromString("200.00")))
	assert.True(t, payment.OriginalAmount.Equal(payment.Amount))
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.True(t, payment.IsAutomatic)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), payment.DueDate)
	assert.NotEmpty(t, payment.ReceiptNumber)
	assertMoneyInvariant(t, payment)
}

func TestGenerateIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, first.Created, 1)

	second, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, second.Created, 0)
	assert.Equal(t, 1, second.AlreadyExists)

	var count int64
	require.NoError(t, f.db.Model(&models.MonthlyPayment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGeneratePicksUpNewStudentsOnRerun(t *testing.T) {
	f := newFixture(t)

	first, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, first.Created, 1)

	f.addStudent(t, "Bruno", "+5511999990002", nil, nil)

	second, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, second.Created, 1)
	assert.Equal(t, 1, second.AlreadyExists)
	assert.Equal(t, "Bruno", mustStudentName(t, f, second.Created[0]))
}

func mustStudentName(t *testing.T, f *fixture, p models.MonthlyPayment) string {
	t.Helper()
	var student models.Student
	require.NoError(t, f.db.Where("id = ?", p.StudentID).First(&student).Error)
	return student.Name
}

func TestGenerateUsesCustomPrice(t *testing.T) {
	f := newFixture(t)
	custom := decimal.RequireFromString("150.00")
	f.addStudent(t, "Bruno", "+5511999990002", &custom, nil)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)

	amounts := []string{result.Created[0].Amount.StringFixed(2), result.Created[1].Amount.StringFixed(2)}
	assert.Contains(t, amounts, "200.00")
	assert.Contains(t, amounts, "150.00")
}

func TestGenerateSkipsInactiveStudents(t *testing.T) {
	f := newFixture(t)
	inactive := f.addStudent(t, "Bruno", "+5511999990002", nil, nil)
	require.NoError(t, f.db.Model(&inactive).Update("is_active", false).Error)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, result.Created, 1)
	assert.Equal(t, 1, result.TotalEligible)
}

func TestCreateRejectsDuplicateMonth(t *testing.T) {
	f := newFixture(t)

	_, err := f.billing.Create(f.studio.ID, CreatePaymentInput{
		StudentID: f.student.ID,
		Month:     march2025(),
	}, f.owner.ID)
	require.NoError(t, err)

	_, err = f.billing.Create(f.studio.ID, CreatePaymentInput{
		StudentID: f.student.ID,
		Month:     time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), // same calendar month
	}, f.owner.ID)
	assert.ErrorIs(t, err, ErrDuplicatePayment)
}

func TestCreateRejectsNegativeAmounts(t *testing.T) {
	f := newFixture(t)

	negative := decimal.RequireFromString("-10.00")
	_, err := f.billing.Create(f.studio.ID, CreatePaymentInput{
		StudentID: f.student.ID,
		Month:     march2025(),
		Amount:    &negative,
	}, f.owner.ID)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateAppliesDiscount(t *testing.T) {
	f := newFixture(t)

	payment, err := f.billing.Create(f.studio.ID, CreatePaymentInput{
		StudentID: f.student.ID,
		Month:     march2025(),
		Discount:  decimal.RequireFromString("20.00"),
	}, f.owner.ID)
	require.NoError(t, err)

	assert.Equal(t, "180.00", payment.Amount.StringFixed(2))
	assert.Equal(t, "200.00", payment.OriginalAmount.StringFixed(2))
	assertMoneyInvariant(t, *payment)
}

func TestSettleMarksPaidAndRecordsSideEffects(t *testing.T) {
	f := newFixture(t)
	f.freeze(time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC))

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	settled, err := f.billing.Settle(f.studio.ID, paymentID,
		decimal.RequireFromString("200.00"), "pix", "", "", f.owner.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPaid, settled.Status)
	require.NotNil(t, settled.PaidAt)
	require.NotNil(t, settled.PaymentMethod)
	assert.Equal(t, "pix", *settled.PaymentMethod)

	// Exactly one commission for this payment
	var commissions []models.Commission
	require.NoError(t, f.db.Where("payment_id = ?", paymentID).Find(&commissions).Error)
	require.Len(t, commissions, 1)
	assert.Equal(t, "60.00", commissions[0].CommissionAmount.StringFixed(2))
	assert.Equal(t, models.CommissionPending, commissions[0].Status)

	// Exactly one income ledger entry for this payment
	var entries []models.Transaction
	require.NoError(t, f.db.Where("origin_kind = ? AND origin_id = ?",
		models.OriginMonthlyPayment, paymentID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TransactionIncome, entries[0].Type)
	assert.Equal(t, "200.00", entries[0].Amount.StringFixed(2))
}

func TestSettleRejectsInsufficientPayment(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	_, err = f.billing.Settle(f.studio.ID, paymentID,
		decimal.RequireFromString("199.99"), "cash", "", "", f.owner.ID)
	assert.ErrorIs(t, err, ErrInsufficientPayment)

	// No state change and no side effects
	payment := f.reloadPayment(t, paymentID)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Nil(t, payment.PaidAt)

	var commissionCount, entryCount int64
	require.NoError(t, f.db.Model(&models.Commission{}).Count(&commissionCount).Error)
	require.NoError(t, f.db.Model(&models.Transaction{}).Count(&entryCount).Error)
	assert.EqualValues(t, 0, commissionCount)
	assert.EqualValues(t, 0, entryCount)
}

func TestSettleRejectsPaidPayment(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	_, err = f.billing.Settle(f.studio.ID, paymentID,
		decimal.RequireFromString("200.00"), "pix", "", "", f.owner.ID)
	require.NoError(t, err)

	_, err = f.billing.Settle(f.studio.ID, paymentID,
		decimal.RequireFromString("200.00"), "pix", "", "", f.owner.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestMarkOverdueOnlyTouchesDuePendingPayments(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "Bruno", "+5511999990002", nil, nil)
	f.addStudent(t, "Carla", "+5511999990003", nil, nil)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, result.Created, 3)

	// One gets paid, one gets cancelled, one stays pending
	paid := result.Created[0]
	cancelled := result.Created[1]
	pending := result.Created[2]

	_, err = f.billing.Settle(f.studio.ID, paid.ID,
		decimal.RequireFromString("200.00"), "card", "", "", f.owner.ID)
	require.NoError(t, err)
	_, err = f.billing.Cancel(f.studio.ID, cancelled.ID, "moved away", f.owner.ID)
	require.NoError(t, err)

	f.freeze(time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC))

	swept, err := f.billing.MarkOverdue(f.studio.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	assert.Equal(t, models.PaymentPaid, f.reloadPayment(t, paid.ID).Status)
	assert.Equal(t, models.PaymentCancelled, f.reloadPayment(t, cancelled.ID).Status)
	assert.Equal(t, models.PaymentOverdue, f.reloadPayment(t, pending.ID).Status)

	// A second sweep finds nothing left to transition
	swept, err = f.billing.MarkOverdue(f.studio.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}

func TestMarkOverdueRespectsGracePeriod(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	grace := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.db.Model(&models.MonthlyPayment{}).
		Where("id = ?", paymentID).
		Update("grace_period_until", grace).Error)

	f.freeze(time.Date(2025, 4, 5, 8, 0, 0, 0, time.UTC))
	swept, err := f.billing.MarkOverdue(f.studio.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)

	f.freeze(time.Date(2025, 4, 11, 8, 0, 0, 0, time.UTC))
	swept, err = f.billing.MarkOverdue(f.studio.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
}

func TestApplyPenaltiesComputesFeeAndInterest(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	f.freeze(time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC))

	_, err = f.billing.MarkOverdue(f.studio.ID)
	require.NoError(t, err)

	accrued, err := f.billing.ApplyPenalties(f.studio.ID,
		decimal.RequireFromString("2.0"), decimal.RequireFromString("0.033"))
	require.NoError(t, err)
	assert.Equal(t, 1, accrued)

	payment := f.reloadPayment(t, paymentID)
	assert.Equal(t, "4.00", payment.LateFee.StringFixed(2))
	assert.Equal(t, "0.13", payment.Interest.StringFixed(2)) // 200 * 0.033% * 2 days
	assert.Equal(t, "204.13", payment.Amount.StringFixed(2))
	assertMoneyInvariant(t, payment)
}

func TestSettleRollsBackWhenCommissionWriteFails(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	// Sabotage the commission write so the settlement transaction fails
	// after the payment update has already happened inside it.
	require.NoError(t, f.db.Migrator().DropTable(&models.Commission{}))

	_, err = f.billing.Settle(f.studio.ID, paymentID,
		decimal.RequireFromString("200.00"), "pix", "", "", f.owner.ID)
	var settlementErr *SettlementError
	require.ErrorAs(t, err, &settlementErr)
	assert.Equal(t, "commission", settlementErr.Step)

	// The whole settlement rolled back: payment untouched, no ledger rows
	payment := f.reloadPayment(t, paymentID)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Nil(t, payment.PaidAt)
	assert.Nil(t, payment.PaymentMethod)

	var entryCount int64
	require.NoError(t, f.db.Model(&models.Transaction{}).Count(&entryCount).Error)
	assert.EqualValues(t, 0, entryCount)
}

func TestApplyPenaltiesRejectsNegativeRates(t *testing.T) {
	f := newFixture(t)

	var validationErr *ValidationError

	_, err := f.billing.ApplyPenalties(f.studio.ID,
		decimal.RequireFromString("-2.0"), decimal.RequireFromString("0.033"))
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "lateFeePercent", validationErr.Field)

	_, err = f.billing.ApplyPenalties(f.studio.ID,
		decimal.RequireFromString("2.0"), decimal.RequireFromString("-0.033"))
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "dailyInterestRate", validationErr.Field)
}

func TestApplyPenaltiesIgnoresNonOverduePayments(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	accrued, err := f.billing.ApplyPenalties(f.studio.ID,
		decimal.RequireFromString("2.0"), decimal.RequireFromString("0.033"))
	require.NoError(t, err)
	assert.Equal(t, 0, accrued)

	payment := f.reloadPayment(t, paymentID)
	assert.True(t, payment.LateFee.IsZero())
	assert.True(t, payment.Interest.IsZero())
	assert.Equal(t, "200.00", payment.Amount.StringFixed(2))
}

func TestUndoSettlementOnlyFromPaid(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	// pending -> not allowed
	_, err = f.billing.UndoSettlement(f.studio.ID, paymentID, "", f.owner.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = f.billing.Settle(f.studio.ID, paymentID,
		decimal.RequireFromString("200.00"), "pix", "", "", f.owner.ID)
	require.NoError(t, err)

	restored, err := f.billing.UndoSettlement(f.studio.ID, paymentID, "typo", f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, restored.Status)
	assert.Nil(t, restored.PaidAt)
	assert.Nil(t, restored.PaymentMethod)

	// cancelled -> not allowed either
	_, err = f.billing.Cancel(f.studio.ID, paymentID, "", f.owner.ID)
	require.NoError(t, err)
	_, err = f.billing.UndoSettlement(f.studio.ID, paymentID, "", f.owner.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestUndoCancelOnlyFromCancelled(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	_, err = f.billing.UndoCancel(f.studio.ID, paymentID, "", f.owner.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = f.billing.Cancel(f.studio.ID, paymentID, "mistake", f.owner.ID)
	require.NoError(t, err)

	restored, err := f.billing.UndoCancel(f.studio.ID, paymentID, "", f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, restored.Status)
}

func TestCancelFromAnyStateKeepsReason(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	_, err = f.billing.Settle(f.studio.ID, paymentID,
		decimal.RequireFromString("200.00"), "pix", "", "", f.owner.ID)
	require.NoError(t, err)

	cancelled, err := f.billing.Cancel(f.studio.ID, paymentID, "charge dispute", f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, cancelled.Status)
	assert.Contains(t, cancelled.Notes, "charge dispute")

	// Cancelling a previously paid payment does not reverse its commission
	// or ledger entry; the stale rows remain by observed design.
	var commissionCount, entryCount int64
	require.NoError(t, f.db.Model(&models.Commission{}).Count(&commissionCount).Error)
	require.NoError(t, f.db.Model(&models.Transaction{}).Count(&entryCount).Error)
	assert.EqualValues(t, 1, commissionCount)
	assert.EqualValues(t, 1, entryCount)
}

func TestRecalculatePicksUpPlanChange(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	require.NoError(t, f.db.Model(&models.Plan{}).
		Where("id = ?", f.plan.ID).
		Update("price", decimal.RequireFromString("240.00")).Error)

	recalced, err := f.billing.Recalculate(f.studio.ID, paymentID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "240.00", recalced.Amount.StringFixed(2))
	assert.Equal(t, "240.00", recalced.OriginalAmount.StringFixed(2))
	assertMoneyInvariant(t, *recalced)
}

func TestRecalculateIsNoOpForPaidPayment(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	paymentID := result.Created[0].ID

	_, err = f.billing.Settle(f.studio.ID, paymentID,
		decimal.RequireFromString("200.00"), "pix", "", "", f.owner.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Plan{}).
		Where("id = ?", f.plan.ID).
		Update("price", decimal.RequireFromString("240.00")).Error)

	recalced, err := f.billing.Recalculate(f.studio.ID, paymentID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "200.00", recalced.Amount.StringFixed(2))
}

// Full lifecycle: generation, sweep, penalty accrual, settlement with
// commission and ledger side effects.
func TestDelinquencyLifecycle(t *testing.T) {
	f := newFixture(t)

	result, err := f.billing.Generate(f.studio.ID, march2025(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	paymentID := result.Created[0].ID
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), result.Created[0].DueDate)

	f.freeze(time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC))

	swept, err := f.billing.MarkOverdue(f.studio.ID)
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	_, err = f.billing.ApplyPenalties(f.studio.ID,
		decimal.RequireFromString("2.0"), decimal.RequireFromString("0.033"))
	require.NoError(t, err)

	payment := f.reloadPayment(t, paymentID)
	require.Equal(t, "204.13", payment.Amount.StringFixed(2))

	// Short payment is still rejected after accrual
	_, err = f.billing.Settle(f.studio.ID, paymentID,
		decimal.RequireFromString("200.00"), "cash", "", "", f.owner.ID)
	require.ErrorIs(t, err, ErrInsufficientPayment)

	settled, err := f.billing.Settle(f.studio.ID, paymentID,
		decimal.RequireFromString("204.13"), "cash", "", "", f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, settled.Status)

	var commission models.Commission
	require.NoError(t, f.db.Where("payment_id = ?", paymentID).First(&commission).Error)
	assert.Equal(t, "204.13", commission.BaseAmount.StringFixed(2))
	assert.Equal(t, "30", commission.CommissionRate.String())
	assert.Equal(t, "61.24", commission.CommissionAmount.StringFixed(2))

	var entry models.Transaction
	require.NoError(t, f.db.Where("origin_kind = ? AND origin_id = ?",
		models.OriginMonthlyPayment, paymentID).First(&entry).Error)
	assert.Equal(t, "204.13", entry.Amount.StringFixed(2))
}
