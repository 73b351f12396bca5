// controllers/expense.go
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

// CreateExpenseInput defines the JSON body for recording an expense. An
// optional expenseId lets the expense subsystem re-submit the same record
// without duplicating the ledger entry.
type CreateExpenseInput struct {
	ExpenseID   *uuid.UUID      `json:"expenseId"`
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Date        *time.Time      `json:"date"`
}

// CreateExpense records an expense ledger entry
func CreateExpense(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	var input CreateExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	date := time.Now()
	if input.Date != nil {
		date = *input.Date
	}

	entry, err := ledgerService().RecordExpense(studioUUID, services.ExpenseInput{
		ExpenseID:   input.ExpenseID,
		Category:    input.Category,
		Description: input.Description,
		Amount:      input.Amount,
		Date:        date,
	}, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// GetExpenses retrieves the studio's expense ledger entries
func GetExpenses(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	query := config.DB.Where("studio_id = ? AND type = ?", studioUUID, models.TransactionExpense)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var expenses []models.Transaction
	if err := query.Order("transaction_date DESC").Find(&expenses).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve expenses")
		return
	}

	c.JSON(http.StatusOK, expenses)
}
