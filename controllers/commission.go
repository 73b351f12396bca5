// controllers/commission.go
package controllers

import (
	"net/http"
	"time"

	"studiopro-backend/config"
	"studiopro-backend/models"
	"studiopro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettleCommissionBatchInput defines the JSON body for a batch settlement
type SettleCommissionBatchInput struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1"`
}

// BackfillCommissionsInput bounds the backfill by settlement date
type BackfillCommissionsInput struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// GetCommissions retrieves the studio's commissions, optionally filtered
func GetCommissions(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	query := config.DB.Preload("Instructor").Preload("Payment").
		Where("studio_id = ?", studioUUID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if instructorID := c.Query("instructorId"); instructorID != "" {
		query = query.Where("instructor_id = ?", instructorID)
	}

	var commissions []models.Commission
	if err := query.Order("created_at DESC").Find(&commissions).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve commissions")
		return
	}

	c.JSON(http.StatusOK, commissions)
}

// SettleCommission marks one pending commission as paid
func SettleCommission(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	commissionUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid commission ID format")
		return
	}

	commission, err := commissionService().Settle(studioUUID, commissionUUID, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, commission)
}

// SettleCommissionBatch settles every pending commission in the id set.
// One failing row is reported in the counts, not raised.
func SettleCommissionBatch(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	var input SettleCommissionBatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	result, err := commissionService().SettleBatch(studioUUID, input.IDs, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BackfillCommissions derives commissions for settled payments that have none
func BackfillCommissions(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	var input BackfillCommissionsInput
	c.ShouldBindJSON(&input)

	result, err := commissionService().DeriveAllPending(studioUUID, input.Start, input.End, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeriveCommission derives the commission for one settled payment
func DeriveCommission(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	paymentUUID, err := uuid.Parse(c.Param("paymentId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID format")
		return
	}

	commission, err := commissionService().DeriveByID(studioUUID, paymentUUID, userUUID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if commission == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No commission applicable for this payment"})
		return
	}

	c.JSON(http.StatusOK, commission)
}
