package routes

import (
	"github.com/gin-gonic/gin"

	"phoneverifier/internal/handlers"
	"phoneverifier/internal/middleware"
)

type Options struct {
	JWTSecret      []byte
	CookieName     string
	MaintenanceKey string
}

func SetupRoutes(r *gin.Engine, verificationHandler *handlers.VerificationHandler, opts Options) *gin.Engine {
	// ---- public
	r.GET("/healthz", handlers.Healthz)

	// ---- verification (JWT: пользователь определяется из токена)
	verification := r.Group("/verification", middleware.AuthMiddleware(opts.JWTSecret, opts.CookieName))
	{
		verification.POST("/request", verificationHandler.Request)
		verification.POST("/resend", verificationHandler.Resend)
		verification.POST("/verify", verificationHandler.Verify)
	}

	// ---- maintenance
	r.POST("/verification/cleanup", middleware.RequireMaintenanceKey(opts.MaintenanceKey), verificationHandler.Cleanup)

	return r
}
