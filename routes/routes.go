package routes

import (
	"os"
	"strings"

	"studiopro-backend/config"
	"studiopro-backend/controllers"
	"studiopro-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		allowedOrigins = strings.Split(env, ",")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		// Student routes
		students := api.Group("/students")
		{
			students.POST("", controllers.CreateStudent)
			students.GET("", controllers.GetStudents)
			students.GET("/:id", controllers.GetStudent)
			students.PUT("/:id", controllers.UpdateStudent)
			students.DELETE("/:id", controllers.DeleteStudent)
		}

		// Plan routes
		plans := api.Group("/plans")
		{
			plans.POST("", controllers.CreatePlan)
			plans.GET("", controllers.GetPlans)
			plans.GET("/:id", controllers.GetPlan)
			plans.PUT("/:id", controllers.UpdatePlan)
			plans.DELETE("/:id", controllers.DeletePlan)
		}

		// Payment routes
		payments := api.Group("/payments")
		{
			payments.POST("/generate", controllers.GeneratePayments)
			payments.POST("", controllers.CreatePayment)
			payments.GET("", controllers.GetPayments)
			payments.GET("/:id", controllers.GetPayment)
			payments.POST("/:id/settle", controllers.SettlePayment)
			payments.POST("/:id/cancel", controllers.CancelPayment)
			payments.POST("/:id/undo-settlement", controllers.UndoSettlement)
			payments.POST("/:id/undo-cancel", controllers.UndoCancel)
			payments.PUT("/:id/recalculate", controllers.RecalculatePayment)
			payments.POST("/sweep", controllers.SweepPayments)
		}

		// Commission routes
		commissions := api.Group("/commissions")
		{
			commissions.GET("", controllers.GetCommissions)
			commissions.POST("/:id/settle", controllers.SettleCommission)
			commissions.POST("/settle-batch", controllers.SettleCommissionBatch)
			commissions.POST("/backfill", controllers.BackfillCommissions)
			commissions.POST("/derive/:paymentId", controllers.DeriveCommission)
		}

		// Expense routes
		expenses := api.Group("/expenses")
		{
			expenses.POST("", controllers.CreateExpense)
			expenses.GET("", controllers.GetExpenses)
		}

		// Report routes
		api.GET("/reports/ledger", controllers.GetLedgerReport)
		api.GET("/reports/balance", controllers.GetBalance)

		// Dashboard routes
		api.GET("/dashboard", controllers.GetDashboardOverview)

		// Instructor routes
		instructors := api.Group("/instructors")
		{
			instructors.GET("", controllers.GetInstructors)
			instructors.POST("", controllers.AddInstructor)
			instructors.PUT("/:id", controllers.UpdateInstructor)
		}
	}

	return r
}
