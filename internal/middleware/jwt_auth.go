package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/photofeed/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// DenylistKeyPrefix namespaces revoked tokens in Redis
const DenylistKeyPrefix = "token:denylist:"

// JWTAuthMiddleware checks for a valid bearer JWT, rejects revoked tokens,
// and stores the claims in the request context. redisClient may be nil, in
// which case logout revocation is not enforced.
func JWTAuthMiddleware(jwtSecret string, redisClient *redis.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}

			// Expecting "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}
			tokenString := parts[1]

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})

			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			if redisClient != nil {
				revoked, err := redisClient.Exists(c.Request().Context(), DenylistKeyPrefix+tokenString).Result()
				if err == nil && revoked > 0 {
					return echo.NewHTTPError(http.StatusUnauthorized, "Token has been revoked")
				}
			}

			// Store user claims and the raw token (logout needs it) in context
			c.Set("user", claims)
			c.Set("token", tokenString)

			return next(c)
		}
	}
}
