package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"terapiahub/internal/auth"
	"terapiahub/internal/config"
	"terapiahub/internal/devserver"
	"terapiahub/internal/models"
)

// demo accounts printed at startup so the CLI can be pointed at them
var demoUsers = []struct {
	id   int64
	role models.Role
	name string
}{
	{42, models.RoleParent, "Madre Demo"},
	{9, models.RoleTherapist, "Terapeuta Demo"},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	backend := devserver.New(logger)
	backend.SetChildren([]models.Child{
		{ID: 2, Nombre: "Mateo"},
		{ID: 1, Nombre: "Lucía"},
	})

	for _, u := range demoUsers {
		token, err := auth.IssueToken([]byte(cfg.DevJWTSecret), u.id, u.role, u.name, 24*time.Hour)
		if err != nil {
			logger.Error("issue_dev_token_failed", "user_id", u.id, "error", err)
			continue
		}
		fmt.Printf("%-10s user %-3d AUTH_TOKEN=%s\n", u.role, u.id, token)
	}

	addr := fmt.Sprintf("localhost:%d", cfg.DevServerPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting_devserver", "addr", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("received_shutdown_signal")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown_failed", "error", err)
		}
		logger.Info("server_stopped_gracefully")
	case err := <-errChan:
		logger.Error("server_error", "error", err.Error())
		os.Exit(1)
	}
}
