package main

import (
	"log"
	"time"

	"github.com/t03ya/ratingMKC/internal/config"
	"github.com/t03ya/ratingMKC/internal/database"
	"github.com/t03ya/ratingMKC/internal/handlers"
	"github.com/t03ya/ratingMKC/internal/middleware"
	"github.com/t03ya/ratingMKC/internal/services"
	"github.com/t03ya/ratingMKC/internal/telegram"
	"github.com/t03ya/ratingMKC/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	hub := ws.NewHub()

	authService := services.NewAuthService(db, cfg.JWTSecret)
	ledgerService := services.NewLedgerService(db)
	cooldownService := services.NewCooldownService(db, time.Duration(cfg.Policy.CooldownSeconds)*time.Second)

	client := telegram.NewClient(cfg.BotToken)
	reconciler := telegram.NewReconciler(client, cfg.Policy.OwnerLabel)
	cleaner := telegram.NewCleaner(client)

	notifier := telegram.NewOperatorNotifier(client, cfg.OperatorChatID)

	eventService := services.NewEventService(db, ledgerService, reconciler, notifier, cfg.Policy.MaxGrant)

	updateHandler := telegram.NewUpdateHandler(
		client, eventService, ledgerService, cooldownService,
		reconciler, cleaner, hub, cfg.Policy, cfg.OperatorID,
	)

	authHandler := handlers.NewAuthHandler(authService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, eventService, reconciler)
	eventsHandler := handlers.NewEventsHandler(hub)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Bot-API-Key"},
		AllowCredentials: true,
	}))

	r.GET("/ws/chat/:id", eventsHandler.HandleWebSocket)

	runner := telegram.NewRunner(client, updateHandler, cleaner, cfg.BotToken, cfg.WebhookBaseURL, cfg.WebhookSecret)
	if cfg.BotToken != "" {
		runner.Start()
		defer runner.Stop()
	} else {
		log.Println("BOT_TOKEN not set, bot disabled")
	}
	r.POST("/webhook/bot/:secret", runner.HandleWebhook)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		chats := api.Group("/chats")
		{
			chats.GET("/:id/leaderboard", middleware.BotAuth(cfg.BotAPIKey), ledgerHandler.GetLeaderboard)
			chats.GET("/:id/users/:uid", middleware.BotAuth(cfg.BotAPIKey), ledgerHandler.GetProfile)

			chats.POST("/:id/grant", middleware.JWTAuth(authService), ledgerHandler.Grant)
			chats.POST("/:id/resync", middleware.JWTAuth(authService), ledgerHandler.Resync)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
