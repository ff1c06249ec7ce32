package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"phoneverifier/internal/apperr"
	"phoneverifier/internal/models"
)

// ContextUserID is the gin context key holding the authenticated user id.
const ContextUserID = "user_id"

// Claims of the access tokens issued by the CMS. Directus puts the user id
// into "id"; other issuers use the standard "sub".
type Claims struct {
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Subject
}

// AuthMiddleware resolves the caller from a bearer token or the session
// cookie. Requests without a token pass through anonymous; the services
// decide whether that is allowed. A token that fails validation is rejected.
func AuthMiddleware(secret []byte, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1) пропускаем preflight
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		// 2) читаем токен: Authorization или cookie
		tokenStr, ok := tokenFromRequest(c, cookieName)
		if !ok {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}
		if tokenStr == "" {
			c.Next()
			return
		}

		// 3) парсим и валидируем токен
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			// принимаем только HMAC
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			// пустой ключ подписывается кем угодно
			if len(secret) == 0 {
				return nil, jwt.ErrInvalidKey
			}
			return secret, nil
		}, jwt.WithLeeway(2*time.Minute), jwt.WithExpirationRequired())
		if err != nil || !token.Valid || claims.UserID() == "" {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		// 4) прокидываем пользователя в контекст
		c.Set(ContextUserID, claims.UserID())
		c.Next()
	}
}

// tokenFromRequest returns ok=false for a malformed Authorization header.
func tokenFromRequest(c *gin.Context, cookieName string) (string, bool) {
	if authHeader := strings.TrimSpace(c.GetHeader("Authorization")); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil {
			return strings.TrimSpace(v), true
		}
	}
	return "", true
}

// AccountabilityFrom returns the caller resolved by AuthMiddleware.
func AccountabilityFrom(c *gin.Context) models.Accountability {
	return models.Accountability{UserID: c.GetString(ContextUserID)}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.APIResponse{
		Success: false,
		Message: msg,
		Code:    apperr.Unauthorized.Code(),
	})
}
