package handlers

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"phoneverifier/internal/apperr"
	"phoneverifier/internal/models"
)

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: message, Data: data})
}

// respondError is the single place where errors become HTTP responses.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.Internal {
		logger.Error("unexpected error",
			zap.String("op", op),
			zap.String("user_id", c.GetString("user_id")),
			zap.Error(err))
		captureException(c, err)
		c.JSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Message: apperr.Internal.DefaultMessage(),
			Code:    apperr.Internal.Code(),
		})
		return
	}

	if appErr.Kind.Status() >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("op", op), zap.String("code", appErr.Kind.Code()), zap.Error(err))
		captureException(c, err)
	} else {
		logger.Debug("request rejected", zap.String("op", op), zap.String("code", appErr.Kind.Code()))
	}
	c.JSON(appErr.Kind.Status(), models.APIResponse{
		Success: false,
		Message: appErr.PublicMessage(),
		Code:    appErr.Kind.Code(),
	})
}

// bindError reports a malformed or incomplete request body.
func bindError(c *gin.Context, logger *zap.Logger, op string, err error) {
	logger.Debug("bind json failed", zap.String("op", op), zap.Error(err))
	respondError(c, logger, op, apperr.Newf(apperr.ValidationFailed, "Invalid request body: "+err.Error()))
}

func captureException(c *gin.Context, err error) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}
