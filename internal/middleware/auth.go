package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ronaldkim807/NairobiLB/internal/models"
	"github.com/Ronaldkim807/NairobiLB/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Ctx key and helpers for the authenticated user.
// Unexported type avoids collisions with other packages.

type ctxKey string

const authUserKey ctxKey = "auth_user"

func ContextWithUser(ctx context.Context, user models.AuthUser) context.Context {
	return context.WithValue(ctx, authUserKey, user)
}

func UserFromContext(ctx context.Context) (models.AuthUser, bool) {
	v := ctx.Value(authUserKey)
	if v == nil {
		return models.AuthUser{}, false
	}
	user, ok := v.(models.AuthUser)
	return user, ok
}

// JWTAuth validates the Bearer token and loads the user. The token must be
// signed with HS256 and carry user_id and role claims; the user row is
// checked so deactivated accounts lose access immediately.
func JWTAuth(secret string, userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userIDFloat, ok := claims["user_id"].(float64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		userID := int64(userIDFloat)

		user, err := userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if user == nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		authUser := models.AuthUser{ID: user.ID, Role: user.Role}

		c.Set("user_id", user.ID)
		c.Request = c.Request.WithContext(ContextWithUser(c.Request.Context(), authUser))

		c.Next()
	}
}

// RequireOrganizer rejects requests from users who cannot create events.
// Must run after JWTAuth.
func RequireOrganizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !user.CanOrganize() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Organizer role required"})
			return
		}
		c.Next()
	}
}

// GenerateToken issues a signed JWT for the user. Exposed for seed tooling
// and tests; the platform's auth service issues production tokens.
func GenerateToken(secret string, userID int64, role string, expirySeconds int64) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
	}
	if expirySeconds > 0 {
		claims["exp"] = time.Now().Unix() + expirySeconds
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
