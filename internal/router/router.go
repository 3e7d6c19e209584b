package router

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/photofeed/backend/internal/handlers"
	"github.com/photofeed/backend/internal/middleware"
	"github.com/photofeed/backend/internal/models"
	"github.com/photofeed/backend/internal/repositories"
	"github.com/photofeed/backend/internal/storage"
	"github.com/photofeed/backend/pkg/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware and the error shape
// the API promises: {"error": "..."} with the matching status code.
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Logger())
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.HTTPErrorHandler = errorHandler
	log.Println("Global middleware configured.")
}

// errorHandler renders every error as {"error": message}. Unexpected errors
// are logged and surfaced as a generic 500.
func errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "Internal server error"
	if httpErr, ok := err.(*echo.HTTPError); ok {
		code = httpErr.Code
		message = fmt.Sprintf("%v", httpErr.Message)
	} else {
		c.Logger().Error(err)
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		c.NoContent(code)
		return
	}
	if err := c.JSON(code, map[string]string{"error": message}); err != nil {
		c.Logger().Error(err)
	}
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(
	e *echo.Echo,
	pgdb *gorm.DB,
	mgClient *mongo.Client,
	cfg *config.Config,
	redisClient *redis.Client,
	firebaseAuthClient *auth.Client,
	store *storage.DiskStorage,
) error {
	// AutoMigrate PostgreSQL models
	if err := pgdb.AutoMigrate(
		&models.User{},
		&models.Favorite{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	log.Println("PostgreSQL auto-migrations completed.")

	mongoDB := mgClient.Database(cfg.MongoDatabase)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// Uploaded photo files
	e.Static("/uploads", store.Dir())

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	favoriteRepo := repositories.NewPostgresFavoriteRepository(pgdb)
	photoRepo := repositories.NewMongoPhotoRepository(mongoDB)
	commentRepo := repositories.NewMongoCommentRepository(mongoDB)
	activityRepo := repositories.NewMongoActivityRepository(mongoDB)
	tx := repositories.NewMongoTxRunner(mgClient)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, activityRepo, firebaseAuthClient, redisClient, cfg.JWTSecret)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret, redisClient))
	authHandler.RegisterSessionRoutes(api)

	userHandler := handlers.NewUserHandler(userRepo, photoRepo, commentRepo, activityRepo, favoriteRepo, store, tx)
	userHandler.RegisterUserRoutes(api)
	log.Println("User routes configured.")

	photoHandler := handlers.NewPhotoHandler(photoRepo, userRepo, commentRepo, activityRepo, favoriteRepo, store, tx)
	photoHandler.RegisterPhotoRoutes(api)
	log.Println("Photo routes configured.")

	commentHandler := handlers.NewCommentHandler(commentRepo, photoRepo, userRepo, activityRepo, tx)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	activityHandler := handlers.NewActivityHandler(activityRepo, userRepo, photoRepo, commentRepo)
	activityHandler.RegisterActivityRoutes(api)
	log.Println("Activity routes configured.")

	if err := ValidateRoutePatterns(e); err != nil {
		return err
	}
	log.Println("All routes configured.")
	return nil
}

var paramNamePattern = regexp.MustCompile(`^\w+$`)

// ValidateRoutePatterns checks every registered route path at startup and
// rejects malformed patterns (empty segments, unnamed parameters, wildcards
// before the end) instead of letting them fail at request time.
func ValidateRoutePatterns(e *echo.Echo) error {
	for _, route := range e.Routes() {
		if err := validatePattern(route.Path); err != nil {
			return fmt.Errorf("invalid route pattern %q: %w", route.Path, err)
		}
	}
	return nil
}

func validatePattern(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("must start with /")
	}
	segments := strings.Split(path[1:], "/")
	for i, segment := range segments {
		switch {
		case segment == "":
			// A single trailing empty segment is the root route
			if !(len(segments) == 1 && i == 0) {
				return fmt.Errorf("empty path segment")
			}
		case strings.HasPrefix(segment, ":"):
			if !paramNamePattern.MatchString(segment[1:]) {
				return fmt.Errorf("parameter without a valid name")
			}
		case segment == "*":
			if i != len(segments)-1 {
				return fmt.Errorf("wildcard must be the last segment")
			}
		}
	}
	return nil
}
