package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"miniblog/internal/api"
	"miniblog/internal/app/service"
	"miniblog/internal/common/security"
	"miniblog/internal/domain/repository"
	"miniblog/internal/platform/config"
	"miniblog/internal/platform/database"
	"miniblog/internal/platform/sessions"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// 1. Load Configuration
	cfg := config.Load()
	logger.Info("configuration loaded")

	// 2. Initialize Database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer db.Close()
	logger.Info("database connected")

	// 3. Initialize Redis (session registry)
	rdb, err := sessions.Connect(cfg)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()
	logger.Info("redis connected")

	// 4. Token authority for session cookies
	tokens := security.NewTokenAuthority(cfg.SessionKey, cfg.SessionTTL)

	// 5. Repositories
	userRepo := repository.NewPgUserRepository(db)
	postRepo := repository.NewPgPostRepository(db)
	sessionRepo := repository.NewRedisSessionRepository(rdb)
	txRunner := repository.NewSQLTxRunner(db)

	// 6. Services
	authService := service.NewAuthService(userRepo, cfg.BcryptCost)
	sessionService := service.NewSessionService(authService, sessionRepo, tokens)
	postService := service.NewPostService(postRepo, txRunner)

	// 7. Router & HTTP Server
	router := api.NewRouter(api.RouterDeps{
		AuthService:    authService,
		SessionService: sessionService,
		PostService:    postService,
		Tokens:         tokens,
		Logger:         logger,
		HomePath:       cfg.DefaultHomePath,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Infof("server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("could not listen on %s: %v", cfg.APIPort, err)
		}
	}()

	<-stop // Wait for interrupt signal

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("server shutdown failed: %v", err)
	}

	logger.Info("server stopped gracefully")
}
