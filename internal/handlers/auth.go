package handlers

import (
	"context"
	"net/http"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/photofeed/backend/internal/middleware"
	"github.com/photofeed/backend/internal/models"
	"github.com/photofeed/backend/internal/repositories"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

// AuthHandler handles registration, login, logout and profile retrieval
type AuthHandler struct {
	userRepository     repositories.UserRepository
	activityRepository repositories.ActivityRepository
	firebaseAuth       *auth.Client // nil when Firebase login is not configured
	redisClient        *redis.Client
	jwtSecret          string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	userRepo repositories.UserRepository,
	activityRepo repositories.ActivityRepository,
	firebaseAuthClient *auth.Client,
	redisClient *redis.Client,
	jwtSecret string,
) *AuthHandler {
	return &AuthHandler{
		userRepository:     userRepo,
		activityRepository: activityRepo,
		firebaseAuth:       firebaseAuthClient,
		redisClient:        redisClient,
		jwtSecret:          jwtSecret,
	}
}

// RegisterAuthRoutes registers the unauthenticated auth routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// RegisterSessionRoutes registers auth routes that require a valid token
func (h *AuthHandler) RegisterSessionRoutes(g *echo.Group) {
	g.POST("/auth/logout", h.Logout)
	g.GET("/auth/profile", h.Profile)
}

// Register creates a new account, records a USER_REGISTERED activity and
// returns a token for the fresh session
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	// Check the username is free
	if _, err := h.userRepository.GetUserByUsername(req.Username); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "Username already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Username:    req.Username,
		Password:    string(hashedPassword),
		Location:    req.Location,
		Occupation:  req.Occupation,
		Description: req.Description,
	}
	if err := h.userRepository.CreateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.recordActivity(c.Request().Context(), user, models.ActivityUserRegistered); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusCreated, echo.Map{"token": token, "user": user})
}

// Login authenticates a username/password pair, records a USER_LOGIN
// activity and returns a token
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByUsername(req.Username)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	if err := h.recordActivity(c.Request().Context(), user, models.ActivityUserLogin); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user})
}

// Logout records a USER_LOGOUT activity and revokes the presented token by
// denylisting it in Redis until it would have expired anyway
func (h *AuthHandler) Logout(c echo.Context) error {
	claims := currentUserClaims(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	user, err := h.userRepository.GetUserByID(claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	if err := h.recordActivity(c.Request().Context(), user, models.ActivityUserLogout); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if h.redisClient != nil {
		if token, ok := c.Get("token").(string); ok && token != "" {
			ttl := tokenTTL
			if claims.ExpiresAt != nil {
				if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
					ttl = remaining
				}
			}
			h.redisClient.Set(c.Request().Context(), middleware.DenylistKeyPrefix+token, "1", ttl)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// Profile returns the authenticated user's own record
func (h *AuthHandler) Profile(c echo.Context) error {
	user, err := h.userRepository.GetUserByID(currentUserID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, user)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin exchanges a Firebase ID token for a local session, creating
// the account on first sight. Only available when credentials are configured.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase login is not configured")
	}

	var req FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, err := h.firebaseAuth.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	// Firebase UIDs double as usernames for federated accounts
	user, err := h.userRepository.GetUserByUsername(token.UID)
	if err != nil {
		firstName, lastName := token.UID, ""
		if name, ok := token.Claims["name"].(string); ok && name != "" {
			firstName = name
		}
		user = &models.User{
			FirstName: firstName,
			LastName:  lastName,
			Username:  token.UID,
		}
		if err := h.userRepository.CreateUser(user); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
		}
		if err := h.recordActivity(c.Request().Context(), user, models.ActivityUserRegistered); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	if err := h.recordActivity(c.Request().Context(), user, models.ActivityUserLogin); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	localJWT, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, echo.Map{"token": localJWT, "user": user})
}

// recordActivity appends an activity of the given kind and moves the user's
// most-recent-activity pointer to it
func (h *AuthHandler) recordActivity(ctx context.Context, user *models.User, kind models.ActivityKind) error {
	activity := &models.Activity{UserID: user.ID, Kind: kind}
	if err := h.activityRepository.Record(ctx, activity); err != nil {
		return err
	}
	user.LastActivityID = activity.ID.Hex()
	return h.userRepository.UpdateUser(user)
}

// generateJWT generates a signed token for a given user
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
