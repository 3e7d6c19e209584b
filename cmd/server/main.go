package main

import (
	"context"
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/photofeed/backend/internal/router"
	"github.com/photofeed/backend/internal/storage"
	"github.com/photofeed/backend/pkg/cache"
	"github.com/photofeed/backend/pkg/config"
	"github.com/photofeed/backend/pkg/firebase"
	"github.com/photofeed/backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	// Redis backs logout token revocation; absence is tolerated
	redisClient := cache.InitRedis(cfg.RedisAddr)
	defer cache.Close(redisClient)

	// Firebase login is optional
	var firebaseAuthClient *auth.Client
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		firebaseAuthClient = firebaseApp.AuthClient
	} else {
		log.Println("Firebase credentials not configured, firebase-login disabled.")
	}

	// Photo file storage
	store, err := storage.NewDiskStorage(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize photo storage: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	if err := router.SetupRoutes(e, db.Postgres, db.Mongo, cfg, redisClient, firebaseAuthClient, store); err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
