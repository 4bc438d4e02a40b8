package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-waiter/config"
	"github.com/yeremiapane/restaurant-waiter/database"
	"github.com/yeremiapane/restaurant-waiter/hub"
	"github.com/yeremiapane/restaurant-waiter/router"
	"github.com/yeremiapane/restaurant-waiter/utils"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.InfoLogger.Printf("Starting floor server with %s", cfg)

	utils.SetJWTSecret(cfg.Auth.JWTSecret)
	utils.TokenTTL = cfg.Auth.TokenTTL

	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	if cfg.SeedFile != "" {
		if err := database.SeedFloorFromFile(db, cfg.SeedFile); err != nil {
			utils.ErrorLogger.Printf("Error seeding floor: %v", err)
		}
	}

	h := hub.New()
	defer h.Close()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.SetupRouter(db, h, cfg.Server.CORSOrigins),
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Printf("Shutdown error: %v", err)
	}
	utils.InfoLogger.Println("Floor server stopped")
}
