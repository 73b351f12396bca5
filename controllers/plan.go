package controllers

import (
	"errors"
	"net/http"
	"studiopro-backend/config"
	"studiopro-backend/models"
	"studiopro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreatePlanInput defines the expected JSON structure for creating a plan
type CreatePlanInput struct {
	Name           string          `json:"name" binding:"required"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price" binding:"required"`
	ClassesPerWeek int             `json:"classesPerWeek" binding:"min=1"`
}

// UpdatePlanInput defines the expected JSON structure for updating a plan
type UpdatePlanInput struct {
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price"`
	ClassesPerWeek *int             `json:"classesPerWeek"`
	IsActive       *bool            `json:"isActive"`
}

// CreatePlan creates a new subscription plan for the studio
func CreatePlan(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	var input CreatePlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if input.Price.IsNegative() {
		utils.RespondWithError(c, http.StatusBadRequest, "Price must not be negative")
		return
	}

	plan := models.Plan{
		StudioID:       studioUUID,
		Name:           input.Name,
		Description:    input.Description,
		Price:          input.Price.Round(2),
		ClassesPerWeek: input.ClassesPerWeek,
		IsActive:       true,
	}

	if err := config.DB.Create(&plan).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create plan")
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GetPlans retrieves all plans for the studio
func GetPlans(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	var plans []models.Plan
	if err := config.DB.Where("studio_id = ?", studioUUID).Find(&plans).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve plans")
		return
	}

	c.JSON(http.StatusOK, plans)
}

// GetPlan retrieves a specific plan by ID
func GetPlan(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	planUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid plan ID format")
		return
	}

	var plan models.Plan
	if err := config.DB.Where("studio_id = ? AND id = ?", studioUUID, planUUID).
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Plan not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, plan)
}

// UpdatePlan updates an existing plan. Open payments keep their amounts
// until they are explicitly recalculated.
func UpdatePlan(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	planUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid plan ID format")
		return
	}

	var input UpdatePlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var plan models.Plan
	if err := config.DB.Where("studio_id = ? AND id = ?", studioUUID, planUUID).
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Plan not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		plan.Name = *input.Name
	}
	if input.Description != nil {
		plan.Description = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			utils.RespondWithError(c, http.StatusBadRequest, "Price must not be negative")
			return
		}
		plan.Price = input.Price.Round(2)
	}
	if input.ClassesPerWeek != nil {
		plan.ClassesPerWeek = *input.ClassesPerWeek
	}
	if input.IsActive != nil {
		plan.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&plan).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update plan")
		return
	}

	c.JSON(http.StatusOK, plan)
}

// DeletePlan soft deletes a plan that has no active students
func DeletePlan(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	planUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid plan ID format")
		return
	}

	var plan models.Plan
	if err := config.DB.Where("studio_id = ? AND id = ?", studioUUID, planUUID).
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Plan not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	var activeStudents int64
	if err := config.DB.Model(&models.Student{}).
		Where("plan_id = ? AND is_active = ?", planUUID, true).
		Count(&activeStudents).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if activeStudents > 0 {
		utils.RespondWithError(c, http.StatusConflict, "Plan still has active students")
		return
	}

	if err := config.DB.Delete(&plan).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete plan")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted successfully"})
}
