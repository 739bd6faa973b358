package main

import (
	"fmt"
	"log"
	"os"

	"leadcrm/internal/auth"
	"leadcrm/internal/database"
	"leadcrm/internal/handlers"
	"leadcrm/internal/models"
	"leadcrm/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; production sets real environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database
	if err := database.InitDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Initialize Google OAuth
	if err := auth.InitOAuth(); err != nil {
		log.Fatal("Failed to initialize OAuth:", err)
	}

	// Start the report scheduler
	statsService := services.NewReportStatsService()
	scheduler := services.NewReportScheduler(
		services.NewGormSubscriptionStore(),
		services.NewManagerReportBuilder(statsService),
		services.NewEmailService(),
	)
	scheduler.Start()
	defer scheduler.Stop()
	handlers.SetReportScheduler(scheduler)

	// Initialize Gin router
	router := gin.Default()

	// Configure trusted proxies
	router.SetTrustedProxies([]string{"127.0.0.1"})

	// CORS for the frontend
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
	}))

	// Basic routes
	router.GET("/", handlers.HomeHandler)
	router.GET("/health", handlers.HealthHandler)

	// Auth routes (no auth required)
	router.GET("/auth/login", handlers.LoginHandler)
	router.GET("/auth/callback", handlers.GoogleCallbackHandler)

	// Protected routes (auth required)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.POST("/auth/logout", handlers.LogoutHandler)
		api.GET("/auth/me", handlers.GetCurrentUser)
		api.POST("/auth/avatar", handlers.UploadAvatar)

		// Leads
		api.GET("/leads", handlers.ListLeads)
		api.GET("/leads/stats", handlers.GetLeadStats)
		api.GET("/leads/with-email-count", handlers.ListLeadsWithEmailCount)
		api.GET("/leads/:id", handlers.GetLead)
		api.POST("/leads", handlers.CreateLead)
		api.PUT("/leads/:id", handlers.UpdateLead)
		api.DELETE("/leads/:id", handlers.DeleteLead)
		api.POST("/leads/import", handlers.ImportLeadsCSV)
		api.POST("/leads/import-excel", handlers.ImportLeadsExcel)
		api.POST("/leads/send-emails", handlers.SendEmailsToLeads)
		api.POST("/leads/score-batch", handlers.ScoreLeadsBatch)
		api.POST("/leads/:id/normalize-location", handlers.NormalizeLeadLocation)
		api.POST("/leads/:id/enrich", handlers.EnrichLead)
		api.POST("/leads/:id/score", handlers.ScoreLead)
		api.POST("/leads/:id/draft-email", handlers.DraftEmail)

		// Email templates
		api.GET("/templates", handlers.ListTemplates)
		api.GET("/templates/:id", handlers.GetTemplate)
		api.POST("/templates", handlers.CreateTemplate)
		api.PUT("/templates/:id", handlers.UpdateTemplate)
		api.DELETE("/templates/:id", handlers.DeleteTemplate)

		// Email logs
		api.GET("/email-logs", handlers.ListEmailLogs)
		api.GET("/email-logs/:id", handlers.GetEmailLog)
		api.POST("/email-logs", handlers.CreateEmailLog)
		api.DELETE("/email-logs/:id", handlers.DeleteEmailLog)

		// Replies
		api.GET("/email-replies", handlers.ListEmailReplies)
		api.DELETE("/email-replies/:id", handlers.DeleteEmailReply)
		api.POST("/email-replies/check-inbox", handlers.CheckInbox)

		// AI chat
		api.POST("/chat", handlers.Chat)
		api.GET("/chat/history", handlers.ChatHistory)
		api.DELETE("/chat/history", handlers.ClearChatHistory)

		// Report subscriptions and deliveries
		api.GET("/reports/config", handlers.ListReportSubscriptions)
		api.GET("/reports/config/:id", handlers.GetReportSubscription)
		api.GET("/reports/logs", handlers.ListReportDeliveries)
		api.POST("/reports/trigger", handlers.TriggerReportCheck)
		api.POST("/reports/send/:id", handlers.SendReportNow)

		// Director-only administration
		admin := api.Group("")
		admin.Use(auth.RequireRole(models.RoleDirector))
		{
			admin.GET("/users", handlers.ListUsers)
			admin.POST("/users", handlers.CreateUser)
			admin.PUT("/users/:username", handlers.UpdateUser)
			admin.DELETE("/users/:username", handlers.DeleteUser)

			admin.POST("/reports/config", handlers.CreateReportSubscription)
			admin.PUT("/reports/config/:id", handlers.UpdateReportSubscription)
			admin.DELETE("/reports/config/:id", handlers.DeleteReportSubscription)
		}
	}

	// Start the server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("Server starting on port %s...\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
