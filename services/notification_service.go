// services/notification_service.go
package services

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"studiopro-backend/models"
	"studiopro-backend/utils"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

const (
	NotificationDueSoon = "payment_due_soon"
	NotificationOverdue = "payment_overdue"

	dueSoonDays = 3
)

// NotificationService delivers payment reminders. It consumes the billing
// facts (overdue payments, payments due soon) and never touches billing
// state; a delivery failure only shows up in the notification log.
type NotificationService struct {
	db     *gorm.DB
	client *twilio.RestClient

	now func() time.Time
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	// Initialize Twilio client
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &NotificationService{
		db: db,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
		now: time.Now,
	}
}

func (s *NotificationService) SendDailyReminders() {
	log.Println("Starting daily payment reminder processing...")

	var studios []models.Studio
	if err := s.db.Where("payment_reminders = ?", true).Find(&studios).Error; err != nil {
		log.Printf("Failed to fetch studios: %v", err)
		return
	}

	for _, studio := range studios {
		s.ProcessStudioReminders(studio.ID)
	}

	log.Println("Daily payment reminder processing completed")
}

func (s *NotificationService) ProcessStudioReminders(studioID uuid.UUID) {
	overdue, err := s.OverduePayments(studioID)
	if err != nil {
		log.Printf("Studio %s: Failed to get overdue payments: %v", studioID, err)
	} else {
		s.sendReminders(studioID, overdue, NotificationOverdue)
	}

	dueSoon, err := s.PaymentsDueSoon(studioID)
	if err != nil {
		log.Printf("Studio %s: Failed to get payments due soon: %v", studioID, err)
	} else {
		s.sendReminders(studioID, dueSoon, NotificationDueSoon)
	}
}

// OverduePayments lists the studio's overdue payments with students loaded.
func (s *NotificationService) OverduePayments(studioID uuid.UUID) ([]models.MonthlyPayment, error) {
	var payments []models.MonthlyPayment
	err := s.db.Preload("Student").
		Where("studio_id = ? AND status = ?", studioID, models.PaymentOverdue).
		Find(&payments).Error
	return payments, err
}

// PaymentsDueSoon lists pending payments due within the next few days.
func (s *NotificationService) PaymentsDueSoon(studioID uuid.UUID) ([]models.MonthlyPayment, error) {
	today := utils.BeginningOfDay(s.now())
	horizon := today.AddDate(0, 0, dueSoonDays)

	var payments []models.MonthlyPayment
	err := s.db.Preload("Student").
		Where("studio_id = ? AND status = ? AND due_date BETWEEN ? AND ?",
			studioID, models.PaymentPending, today, horizon).
		Find(&payments).Error
	return payments, err
}

func (s *NotificationService) sendReminders(studioID uuid.UUID, payments []models.MonthlyPayment, reminderType string) {
	today := utils.BeginningOfDay(s.now())

	for _, payment := range payments {
		// One reminder per payment per type per day
		var count int64
		if err := s.db.Model(&models.NotificationLog{}).
			Where("payment_id = ? AND type = ? AND sent_at >= ?", payment.ID, reminderType, today).
			Count(&count).Error; err != nil {
			log.Printf("Failed to check reminder log for payment %s: %v", payment.ID, err)
			continue
		}
		if count > 0 {
			continue
		}

		message := s.buildMessage(&payment, reminderType)

		// Determine channel (WhatsApp if available, else SMS)
		channel := "sms"
		var to string

		// Use WhatsApp if phone is in E.164 format and starts with '+'
		if strings.HasPrefix(payment.Student.Phone, "+") {
			to = "whatsapp:" + payment.Student.Phone
			channel = "whatsapp"
		} else {
			to = payment.Student.Phone
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetBody(message)

		if channel == "whatsapp" {
			params.SetFrom("whatsapp:" + os.Getenv("TWILIO_WHATSAPP_NUMBER"))
		} else {
			params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))
		}

		resp, err := s.client.Api.CreateMessage(params)
		status := "sent"
		errorMsg := ""

		if err != nil {
			log.Printf("Failed to send reminder to %s: %v", payment.Student.Phone, err)
			status = "failed"
			errorMsg = err.Error()
		} else if resp.Sid != nil {
			log.Printf("Reminder sent to %s, SID: %s", payment.Student.Phone, *resp.Sid)
		} else {
			log.Printf("Reminder sent to %s, but no SID returned", payment.Student.Phone)
		}

		notificationLog := models.NotificationLog{
			StudioID:     studioID,
			StudentID:    payment.StudentID,
			PaymentID:    payment.ID,
			Type:         reminderType,
			Message:      message,
			Status:       status,
			ErrorMessage: errorMsg,
			Channel:      channel,
			SentAt:       s.now(),
		}

		if err := s.db.Create(&notificationLog).Error; err != nil {
			log.Printf("Failed to log reminder for payment %s: %v", payment.ID, err)
		}
	}
}

func (s *NotificationService) buildMessage(payment *models.MonthlyPayment, reminderType string) string {
	month := payment.ReferenceMonth.Format("January 2006")
	if reminderType == NotificationOverdue {
		return fmt.Sprintf("Hi %s, your payment of %s for %s is overdue since %s. Please get in touch with the studio.",
			payment.Student.Name, payment.Amount.StringFixed(2), month, payment.DueDate.Format("Jan 2"))
	}
	return fmt.Sprintf("Hi %s, a friendly reminder: your payment of %s for %s is due on %s.",
		payment.Student.Name, payment.Amount.StringFixed(2), month, payment.DueDate.Format("Jan 2"))
}
