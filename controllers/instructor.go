// controllers/instructor.go
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

// AddInstructorInput defines the JSON body for adding an instructor
type AddInstructorInput struct {
	Name           string           `json:"name" binding:"required"`
	Email          string           `json:"email" binding:"required,email"`
	Phone          string           `json:"phone"`
	Password       string           `json:"password" binding:"required,min=8"`
	CommissionRate *decimal.Decimal `json:"commissionRate"` // percent; null means the studio default
}

// UpdateInstructorInput defines the JSON body for updating an instructor
type UpdateInstructorInput struct {
	Name           *string          `json:"name"`
	Phone          *string          `json:"phone"`
	CommissionRate *decimal.Decimal `json:"commissionRate"`
	IsActive       *bool            `json:"isActive"`
}

func validRate(rate *decimal.Decimal) bool {
	if rate == nil {
		return true
	}
	return !rate.IsNegative() && rate.Cmp(decimal.NewFromInt(100)) <= 0
}

// GetInstructors lists the studio's instructors
func GetInstructors(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	var instructors []models.User
	if err := config.DB.
		Where("studio_id = ? AND role = ?", studioUUID, models.RoleInstructor).
		Find(&instructors).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve instructors")
		return
	}

	c.JSON(http.StatusOK, instructors)
}

// AddInstructor creates an instructor account for the studio
func AddInstructor(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	var input AddInstructorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if !validRate(input.CommissionRate) {
		utils.RespondWithError(c, http.StatusBadRequest, "Commission rate must be between 0 and 100")
		return
	}

	var existing models.User
	result := config.DB.Where("email = ?", input.Email).First(&existing)
	if result.Error == nil {
		utils.RespondWithError(c, http.StatusConflict, "Email already registered")
		return
	} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	instructor := models.User{
		Email:          input.Email,
		Password:       input.Password, // Hashed in BeforeCreate hook
		Name:           input.Name,
		Phone:          input.Phone,
		Role:           models.RoleInstructor,
		StudioID:       studioUUID,
		CommissionRate: input.CommissionRate,
	}

	if err := config.DB.Create(&instructor).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create instructor")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":             instructor.ID,
		"name":           instructor.Name,
		"email":          instructor.Email,
		"commissionRate": instructor.CommissionRate,
	})
}

// UpdateInstructor updates an instructor's profile or commission rate.
// Already-derived commissions keep the rate they were created with.
func UpdateInstructor(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	instructorUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid instructor ID format")
		return
	}

	var input UpdateInstructorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if !validRate(input.CommissionRate) {
		utils.RespondWithError(c, http.StatusBadRequest, "Commission rate must be between 0 and 100")
		return
	}

	var instructor models.User
	if err := config.DB.
		Where("studio_id = ? AND id = ? AND role = ?", studioUUID, instructorUUID, models.RoleInstructor).
		First(&instructor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Instructor not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.CommissionRate != nil {
		updates["commission_rate"] = *input.CommissionRate
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if err := config.DB.Model(&instructor).Updates(updates).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update instructor")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             instructor.ID,
		"name":           instructor.Name,
		"email":          instructor.Email,
		"commissionRate": instructor.CommissionRate,
		"isActive":       instructor.IsActive,
	})
}
