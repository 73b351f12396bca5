package main

import (
	"fmt"
	"log"
	"os"
	"studiopro-backend/config"
	"studiopro-backend/models"
	"studiopro-backend/routes"
	"studiopro-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.Studio{},
		&models.User{},
		&models.Plan{},
		&models.Student{},
		&models.MonthlyPayment{},
		&models.Commission{},
		&models.Transaction{},
		&models.JobRun{},
		&models.NotificationLog{},
	)
}

func main() {

	ledger := services.NewLedgerService(config.DB)
	commissions := services.NewCommissionService(config.DB, ledger, services.DefaultCommissionRate())
	billing := services.NewBillingService(config.DB, commissions, ledger)
	notifications := services.NewNotificationService(config.DB)

	scheduler := services.NewSchedulerService(config.DB, billing, notifications)
	scheduler.StartScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter()
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
