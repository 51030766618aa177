package main

import (
	"fmt"
	"log"
	"net/http"

	"vendara-integration/internal/api"
	"vendara-integration/internal/api/handlers"
	"vendara-integration/internal/api/middleware"
	"vendara-integration/internal/engine/ingest"
	"vendara-integration/internal/engine/messages"
	"vendara-integration/internal/engine/webhook"
	"vendara-integration/internal/pkg/logger"
	"vendara-integration/internal/pkg/metrics"
	"vendara-integration/internal/platform/auth"
	"vendara-integration/internal/platform/config"
	"vendara-integration/internal/platform/database"
	"vendara-integration/internal/platform/events"
	"vendara-integration/internal/platform/repositories"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)
	metrics.Register()

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	publisher, err := events.Connect(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer publisher.Close()

	// Repositories
	eventRepo := repositories.NewInboundEventRepository(db)
	messageRepo := repositories.NewOutboundMessageRepository(db)

	// Services
	gate := webhook.NewGate(cfg.WhatsApp.AppSecret, cfg.WhatsApp.VerifyToken)
	ingestSvc := ingest.NewService(eventRepo, publisher)
	messageSvc := messages.NewService(messageRepo)
	tokenSvc := auth.NewTokenService(cfg.JWT)

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(gate, ingestSvc, messageSvc)
	messageHandler := handlers.NewMessageHandler(messageSvc)
	eventHandler := handlers.NewEventHandler(eventRepo)
	authHandler := handlers.NewAuthHandler(tokenSvc, cfg.Services)
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)

	// Router
	deps := &api.Dependencies{
		WebhookHandler: webhookHandler,
		MessageHandler: messageHandler,
		EventHandler:   eventHandler,
		AuthHandler:    authHandler,
		HealthHandler:  healthHandler,
		AuthMiddleware: authMiddleware,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
