package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"studiopro-backend/utils"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleOwner      = "owner"
	RoleInstructor = "instructor"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	Email    string    `gorm:"uniqueIndex;not null"`
	Password string    `gorm:"not null"`
	Name     string    `gorm:"not null"`
	Phone    string

	Role     string    `gorm:"type:varchar(20);not null"` // 'owner' or 'instructor'
	StudioID uuid.UUID `gorm:"type:uuid;index;not null"`

	// Commission percentage for instructors. Null means the studio-wide
	// default rate applies.
	CommissionRate *decimal.Decimal `gorm:"type:decimal(10,2)"`

	Studio Studio `gorm:"foreignKey:StudioID"`

	LastLogin *time.Time
	IsActive  bool `gorm:"default:true"`

	gorm.Model
}

// Initialize UUID and hash password before creating
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return
}

// Custom JSONB type for working hours
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, &j)
	case string:
		return json.Unmarshal([]byte(v), &j)
	case nil:
		*j = nil
		return nil
	}
	return errors.New("unsupported type for JSONB scan")
}
