package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"phoneverifier/internal/models"
)

// RequireMaintenanceKey guards maintenance endpoints with the X-Maintenance-Key
// header. An empty key leaves the route open.
func RequireMaintenanceKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-Maintenance-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, models.APIResponse{
				Success: false,
				Message: "forbidden",
				Code:    "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}
