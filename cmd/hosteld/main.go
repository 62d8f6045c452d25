package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"hostel-sync-backend/config"
	"hostel-sync-backend/internal/allocation"
	"hostel-sync-backend/internal/api"
	"hostel-sync-backend/internal/auth"
	"hostel-sync-backend/internal/cache"
	"hostel-sync-backend/internal/db"
	"hostel-sync-backend/internal/gateway"
	"hostel-sync-backend/internal/notification"
	"hostel-sync-backend/internal/realtime"
	"hostel-sync-backend/internal/requests"
	"hostel-sync-backend/internal/snapshot"
	"hostel-sync-backend/internal/syncer"
)

func main() {
	logger := log.New(os.Stdout, "hostel-backend ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}
	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize snapshot database: %v", err)
	}
	snapStore := snapshot.NewGormStore(gormDB)
	logger.Println("snapshot store initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entityCache := cache.New()
	gw := gateway.NewClient(&cfg.Remote)

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, snapStore, &webpushOptions)
	workerPool.Start(ctx)

	collectionSyncer := syncer.New(gw, entityCache, snapStore, workerPool)
	collectionSyncer.Prime(ctx)
	logger.Println("entity cache primed from snapshot store")

	coordinator := allocation.NewCoordinator(gw, entityCache, collectionSyncer)
	requestService := requests.NewService(gw, collectionSyncer)

	// The sync session is established against the identity provider; the
	// listener's subscriptions live exactly as long as it does.
	authClient := auth.NewClient(&cfg.Auth)
	listener := realtime.NewListener(&cfg.Realtime, collectionSyncer)

	sessionCtx, endSession := context.WithCancel(ctx)
	authClient.OnSessionChange(func(session *auth.Session) {
		if session == nil {
			logger.Println("session ended, tearing down realtime subscriptions")
			endSession()
		}
	})

	if cfg.Auth.URL != "" && cfg.Auth.Email != "" {
		session, err := authClient.SignIn(ctx, cfg.Auth.Email, cfg.Auth.Password)
		if err != nil {
			logger.Fatalf("service account sign-in failed: %v", err)
		}
		logger.Printf("signed in as %s (%s)", session.User.Email, session.User.Metadata.Role)
	} else {
		logger.Println("no service account configured, continuing unauthenticated")
	}
	go listener.Run(sessionCtx)

	router := api.NewRouter(
		api.NewHandler(entityCache, coordinator, requestService, gw, collectionSyncer, snapStore, &webpushOptions),
		&cfg.Server,
	)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	if authClient.Session() != nil {
		signOutCtx, signOutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := authClient.SignOut(signOutCtx); err != nil {
			logger.Printf("sign-out failed: %v", err)
		}
		signOutCancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
