package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"vendara-integration/internal/pkg/logger"
	"vendara-integration/internal/pkg/metrics"
	"vendara-integration/internal/platform/config"
	"vendara-integration/internal/platform/database"
	"vendara-integration/internal/platform/repositories"
	"vendara-integration/internal/whatsapp"
	"vendara-integration/internal/workers"
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

	messageRepo := repositories.NewOutboundMessageRepository(db)
	client := whatsapp.NewClient(cfg.WhatsApp)

	sender := workers.NewSendWorker(workers.SendWorkerConfig{
		Store:        messageRepo,
		Sender:       client,
		PollInterval: cfg.Worker.PollInterval,
		BatchSize:    cfg.Worker.BatchSize,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsPort := cfg.Worker.MetricsPort
	if metricsPort == 0 {
		metricsPort = 9091
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		addr := fmt.Sprintf(":%d", metricsPort)
		log.Printf("Worker metrics on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Metrics server failed: %v", err)
		}
	}()

	log.Println("Starting outbound send worker...")
	sender.Start(ctx)

	// Block until the process is asked to stop, then drain the worker.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	sender.Stop()
}
