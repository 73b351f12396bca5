package controllers

import (
	"errors"
	"net/http"
	"studiopro-backend/config"
	"studiopro-backend/models"
	"studiopro-backend/utils"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateStudentInput defines the expected JSON structure for creating a student
type CreateStudentInput struct {
	Name         string           `json:"name" binding:"required"`
	Phone        string           `json:"phone" binding:"required"`
	Email        *string          `json:"email"`
	Notes        string           `json:"notes"`
	PlanID       uuid.UUID        `json:"planId" binding:"required"`
	CustomPrice  *decimal.Decimal `json:"customPrice"`
	InstructorID *uuid.UUID       `json:"instructorId"`
	EnrolledAt   *time.Time       `json:"enrolledAt"`
}

// UpdateStudentInput defines the expected JSON structure for updating a student
type UpdateStudentInput struct {
	Name         *string          `json:"name"`
	Phone        *string          `json:"phone"`
	Email        *string          `json:"email"`
	Notes        *string          `json:"notes"`
	PlanID       *uuid.UUID       `json:"planId"`
	CustomPrice  *decimal.Decimal `json:"customPrice"`
	InstructorID *uuid.UUID       `json:"instructorId"`
	IsActive     *bool            `json:"isActive"`
}

// CreateStudent enrolls a new student in the studio
func CreateStudent(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}
	userUUID, ok := requireActor(c)
	if !ok {
		return
	}

	var input CreateStudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
		return
	}
	if input.CustomPrice != nil && input.CustomPrice.IsNegative() {
		utils.RespondWithError(c, http.StatusBadRequest, "Custom price must not be negative")
		return
	}

	// Validate plan exists in the same studio
	var plan models.Plan
	if err := config.DB.Where("studio_id = ? AND id = ?", studioUUID, input.PlanID).
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusBadRequest, "Plan not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	// Validate instructor exists in the same studio
	if input.InstructorID != nil {
		var instructor models.User
		if err := config.DB.Where("studio_id = ? AND id = ?", studioUUID, *input.InstructorID).
			First(&instructor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondWithError(c, http.StatusBadRequest, "Instructor not found")
			} else {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			}
			return
		}
	}

	enrolledAt := time.Now()
	if input.EnrolledAt != nil {
		enrolledAt = *input.EnrolledAt
	}

	student := models.Student{
		StudioID:        studioUUID,
		CreatedByUserID: userUUID,
		Name:            input.Name,
		Phone:           input.Phone,
		Notes:           input.Notes,
		PlanID:          input.PlanID,
		CustomPrice:     input.CustomPrice,
		InstructorID:    input.InstructorID,
		EnrolledAt:      enrolledAt,
		IsActive:        true,
	}
	if input.Email != nil {
		student.Email = *input.Email
	}

	if err := config.DB.Create(&student).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create student")
		return
	}

	c.JSON(http.StatusCreated, student)
}

// GetStudents retrieves all students for the studio
func GetStudents(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	query := config.DB.Preload("Plan").Where("studio_id = ?", studioUUID)
	if active := c.Query("active"); active == "true" {
		query = query.Where("is_active = ?", true)
	}
	if instructorID := c.Query("instructorId"); instructorID != "" {
		query = query.Where("instructor_id = ?", instructorID)
	}

	var students []models.Student
	if err := query.Find(&students).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve students")
		return
	}

	c.JSON(http.StatusOK, students)
}

// GetStudent retrieves a specific student by ID
func GetStudent(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	studentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid student ID format")
		return
	}

	var student models.Student
	if err := config.DB.Preload("Plan").
		Where("studio_id = ? AND id = ?", studioUUID, studentUUID).
		First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Student not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, student)
}

// UpdateStudent updates an existing student
func UpdateStudent(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	studentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid student ID format")
		return
	}

	var input UpdateStudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var student models.Student
	if err := config.DB.Where("studio_id = ? AND id = ?", studioUUID, studentUUID).
		First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Student not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		student.Name = *input.Name
	}
	if input.Phone != nil {
		if !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
			return
		}
		student.Phone = *input.Phone
	}
	if input.Email != nil {
		student.Email = *input.Email
	}
	if input.Notes != nil {
		student.Notes = *input.Notes
	}
	if input.PlanID != nil {
		var plan models.Plan
		if err := config.DB.Where("studio_id = ? AND id = ?", studioUUID, *input.PlanID).
			First(&plan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondWithError(c, http.StatusBadRequest, "Plan not found")
			} else {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			}
			return
		}
		student.PlanID = *input.PlanID
	}
	if input.CustomPrice != nil {
		if input.CustomPrice.IsNegative() {
			utils.RespondWithError(c, http.StatusBadRequest, "Custom price must not be negative")
			return
		}
		student.CustomPrice = input.CustomPrice
	}
	if input.InstructorID != nil {
		var instructor models.User
		if err := config.DB.Where("studio_id = ? AND id = ?", studioUUID, *input.InstructorID).
			First(&instructor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondWithError(c, http.StatusBadRequest, "Instructor not found")
			} else {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			}
			return
		}
		student.InstructorID = input.InstructorID
	}
	if input.IsActive != nil {
		student.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&student).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update student")
		return
	}

	c.JSON(http.StatusOK, student)
}

// DeleteStudent soft deletes a student; their payment history is kept
func DeleteStudent(c *gin.Context) {
	studioUUID, ok := requireStudio(c)
	if !ok {
		return
	}

	studentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid student ID format")
		return
	}

	var student models.Student
	if err := config.DB.Where("studio_id = ? AND id = ?", studioUUID, studentUUID).
		First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Student not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := config.DB.Delete(&student).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete student")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Student deleted successfully"})
}
