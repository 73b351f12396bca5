// controllers/payment.go
package controllers

import (
	"net/http"
	"time"

	"studiopro-backend/config"
	"studiopro-backend/models"
	"studiopro-backend/services"
	"studiopro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GeneratePaymentsInput defines the JSON body for a generation run
type GeneratePaymentsInput struct {
	Month time.Time `json:"month" binding:"required"`
}

// CreatePaymentInput defines the JSON body for a manually entered payment
type CreatePaymentInput struct {
	StudentID uuid.UUID        `json:"studentId" binding:"required"`
	Month     time.Time        `json:"month" binding:"required"`
	Amount    *decimal.Decimal `json:"amount"`
	Discount  *decimal.Decimal `json:"discount"`
	DueDate   *time.Time       `json:"dueDate"`
	Notes     string           `json:"notes"`
}

// SettlePaymentInput defines the JSON body for settling a payment
type SettlePaymentInput struct {
	AmountPaid    decimal.Decimal `json:"amountPaid" binding:"required"`
	PaymentMethod string          `json:"paymentMethod" binding:"required,oneof=cash card pix transfer"`
	Notes         string          `json:"notes"`
	ReceiptNumber string          `json:"receiptNumber"`
}

// ReasonInput carries the optional reason for cancel/undo operations
type ReasonInput struct {
	Reason string `json:"reason"`
}

// SweepInput overrides the penalty parameters for a manual sweep
type SweepInput struct {
	LateFeePercent    *decimal.Decimal `json:"lateFeePercent"`
	DailyInterestRate *decimal.Decimal `json:"dailyInterestRate"`
}

// GeneratePayments runs the monthly batch for the studio. Re-running for the
// same month only creates payments for students added since the last run.
func GeneratePayments(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	var input GeneratePaymentsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	result, err := billingService().Generate(studioUUID, input.Month, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CreatePayment records a manually entered payment
func CreatePayment(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	var input CreatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	discount := decimal.Zero
	if input.Discount != nil {
		discount = *input.Discount
	}

	payment, err := billingService().Create(studioUUID, services.CreatePaymentInput{
		StudentID: input.StudentID,
		Month:     input.Month,
		Amount:    input.Amount,
		Discount:  discount,
		DueDate:   input.DueDate,
		Notes:     input.Notes,
	}, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// GetPayments retrieves the studio's payments, optionally filtered
func GetPayments(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	query := config.DB.Preload("Student").Where("studio_id = ?", studioUUID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if studentID := c.Query("studentId"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if month := c.Query("month"); month != "" {
		parsed, err := time.Parse("2006-01", month)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid month format, expected YYYY-MM")
			return
		}
		query = query.Where("reference_month = ?", utils.StartOfMonth(parsed))
	}

	var payments []models.MonthlyPayment
	if err := query.Order("due_date DESC").Find(&payments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve payments")
		return
	}

	c.JSON(http.StatusOK, payments)
}

// GetPayment retrieves a specific payment by ID
func GetPayment(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	paymentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID format")
		return
	}

	payment, err := billingService().FindPayment(studioUUID, paymentUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// SettlePayment marks a payment as paid. The commission and the income
// ledger entry are produced in the same transaction; a failure in either
// leaves the payment untouched.
func SettlePayment(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	paymentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID format")
		return
	}

	var input SettlePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	payment, err := billingService().Settle(studioUUID, paymentUUID,
		input.AmountPaid, input.PaymentMethod, input.Notes, input.ReceiptNumber, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// CancelPayment cancels a payment from any state
func CancelPayment(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	paymentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID format")
		return
	}

	var input ReasonInput
	c.ShouldBindJSON(&input)

	payment, err := billingService().Cancel(studioUUID, paymentUUID, input.Reason, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// UndoSettlement returns a paid payment to pending
func UndoSettlement(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	paymentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID format")
		return
	}

	var input ReasonInput
	c.ShouldBindJSON(&input)

	payment, err := billingService().UndoSettlement(studioUUID, paymentUUID, input.Reason, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// UndoCancel returns a cancelled payment to pending
func UndoCancel(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	paymentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID format")
		return
	}

	var input ReasonInput
	c.ShouldBindJSON(&input)

	payment, err := billingService().UndoCancel(studioUUID, paymentUUID, input.Reason, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// SweepPayments runs the delinquency sweep and penalty accrual on demand
func SweepPayments(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	var input SweepInput
	c.ShouldBindJSON(&input)

	feePercent := services.DefaultLateFeePercent()
	if input.LateFeePercent != nil {
		feePercent = *input.LateFeePercent
	}
	dailyRate := services.DefaultDailyInterestRate()
	if input.DailyInterestRate != nil {
		dailyRate = *input.DailyInterestRate
	}

	billing := billingService()
	swept, err := billing.MarkOverdue(studioUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	accrued, err := billing.ApplyPenalties(studioUUID, feePercent, dailyRate)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"markedOverdue":    swept,
		"penaltiesAccrued": accrued,
	})
}

// RecalculatePayment re-reads the student's current price into an unpaid payment
func RecalculatePayment(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	paymentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID format")
		return
	}

	payment, err := billingService().Recalculate(studioUUID, paymentUUID, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}
