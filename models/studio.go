package models

import (
	"github.com/google/uuid"
)

type Studio struct {
	ID                    uuid.UUID `gorm:"type:uuid;primary_key"`
	Name                  string    `gorm:"not null"`
	Address               string
	WorkingHours          JSONB `gorm:"type:jsonb;default:'{}'"`
	PaymentReminders      bool  `gorm:"default:true"`
	WhatsAppNotifications bool  `gorm:"default:false"`
	SMSNotifications      bool  `gorm:"default:false"`

	Users    []User    `gorm:"foreignKey:StudioID"`
	Students []Student `gorm:"foreignKey:StudioID"`
	Plans    []Plan    `gorm:"foreignKey:StudioID"`
}
