// controllers/dashboard.go
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

// DashboardOverview is the studio's at-a-glance billing picture, including
// the facts the notification subsystem consumes (overdue and due-soon
// payments, pending commissions).
type DashboardOverview struct {
	MonthRevenue       decimal.Decimal         `json:"monthRevenue"`
	RevenueGrowth      decimal.Decimal         `json:"revenueGrowth"`
	ActiveStudents     int64                   `json:"activeStudents"`
	PendingPayments    int64                   `json:"pendingPayments"`
	OverduePayments    int64                   `json:"overduePayments"`
	OverdueList        []models.MonthlyPayment `json:"overdueList"`
	DueSoonPayments    int64                   `json:"dueSoonPayments"`
	PendingCommissions int64                   `json:"pendingCommissions"`
	CommissionsOwed    decimal.Decimal         `json:"commissionsOwed"`
}

// GetDashboardOverview returns the billing overview for the studio
func GetDashboardOverview(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	now := time.Now()
	monthStart := utils.StartOfMonth(now)
	monthEnd := utils.EndOfMonth(now)
	lastMonthStart := monthStart.AddDate(0, -1, 0)
	lastMonthEnd := utils.EndOfMonth(lastMonthStart)

	var overview DashboardOverview

	monthRevenue, err := incomeBetween(studioUUID, monthStart, monthEnd)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get monthly revenue")
		return
	}
	lastMonthRevenue, err := incomeBetween(studioUUID, lastMonthStart, lastMonthEnd)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get last month revenue")
		return
	}
	overview.MonthRevenue = monthRevenue
	overview.RevenueGrowth = utils.GrowthPercent(monthRevenue, lastMonthRevenue)

	if err := config.DB.Model(&models.Student{}).
		Where("studio_id = ? AND is_active = ?", studioUUID, true).
		Count(&overview.ActiveStudents).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count students")
		return
	}

	if err := config.DB.Model(&models.MonthlyPayment{}).
		Where("studio_id = ? AND status = ?", studioUUID, models.PaymentPending).
		Count(&overview.PendingPayments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count pending payments")
		return
	}

	notifications := services.NewNotificationService(config.DB)

	overdueList, err := notifications.OverduePayments(studioUUID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to list overdue payments")
		return
	}
	overview.OverdueList = overdueList
	overview.OverduePayments = int64(len(overdueList))

	dueSoon, err := notifications.PaymentsDueSoon(studioUUID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to list payments due soon")
		return
	}
	overview.DueSoonPayments = int64(len(dueSoon))

	if err := config.DB.Model(&models.Commission{}).
		Where("studio_id = ? AND status = ?", studioUUID, models.CommissionPending).
		Count(&overview.PendingCommissions).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count pending commissions")
		return
	}

	var owed struct {
		Total decimal.Decimal
	}
	if err := config.DB.Model(&models.Commission{}).
		Select("COALESCE(SUM(commission_amount), 0) as total").
		Where("studio_id = ? AND status = ?", studioUUID, models.CommissionPending).
		Scan(&owed).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to total pending commissions")
		return
	}
	overview.CommissionsOwed = owed.Total

	c.JSON(http.StatusOK, overview)
}

func incomeBetween(studioID uuid.UUID, start, end time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := config.DB.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("studio_id = ? AND type = ? AND transaction_date BETWEEN ? AND ?",
			studioID, models.TransactionIncome, start, end).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
