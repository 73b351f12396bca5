// controllers/common.go
package controllers

import (
	"errors"
	"net/http"

	"studiopro-backend/config"
	"studiopro-backend/services"
	"studiopro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requireStudio pulls the authenticated studio id out of the request
// context.
func requireStudio(c *gin.Context) (uuid.UUID, bool) {
	studioID, exists := c.Get("studioId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "Studio ID not found in context")
		return uuid.Nil, false
	}
	studioUUID, err := uuid.Parse(studioID.(string))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid studio ID format")
		return uuid.Nil, false
	}
	return studioUUID, true
}

// requireActor pulls the authenticated user id out of the request context.
// Lifecycle operations stamp it on audit fields; it is always passed
// explicitly into the services.
func requireActor(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return uuid.Nil, false
	}
	userUUID, err := uuid.Parse(userID.(string))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userUUID, true
}

func ledgerService() *services.LedgerService {
	return services.NewLedgerService(config.DB)
}

func commissionService() *services.CommissionService {
	return services.NewCommissionService(config.DB, ledgerService(), services.DefaultCommissionRate())
}

func billingService() *services.BillingService {
	ledger := ledgerService()
	return services.NewBillingService(config.DB,
		services.NewCommissionService(config.DB, ledger, services.DefaultCommissionRate()), ledger)
}

// respondDomainError maps service errors onto HTTP status codes.
func respondDomainError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var settlementErr *services.SettlementError

	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, http.StatusNotFound, "Record not found")
	case errors.Is(err, services.ErrDuplicatePayment):
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidStateTransition),
		errors.Is(err, services.ErrInsufficientPayment):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &validationErr):
		utils.RespondWithError(c, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &settlementErr):
		utils.RespondWithError(c, http.StatusInternalServerError, settlementErr.Error())
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
	}
}
