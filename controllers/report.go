// controllers/report.go
package controllers

import (
	"net/http"
	"time"

	"studiopro-backend/utils"

	"github.com/gin-gonic/gin"
)

// GetLedgerReport returns the financial summary for a date window:
// totals by type, category and instructor, profit, margin and the
// month-by-month trend.
func GetLedgerReport(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	start, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid end date, expected YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		utils.RespondWithError(c, http.StatusBadRequest, "End date must not be before start date")
		return
	}

	report, err := ledgerService().Report(studioUUID, start, end)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetBalance returns income minus everything else over an optional window
func GetBalance(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	var start, end *time.Time
	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD")
			return
		}
		start = &parsed
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid end date, expected YYYY-MM-DD")
			return
		}
		end = &parsed
	}

	balance, err := ledgerService().Balance(studioUUID, start, end)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}
