package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"phoneverifier/internal/middleware"
	"phoneverifier/internal/models"
)

// VerificationService is the use-case surface the handler needs.
type VerificationService interface {
	Request(ctx context.Context, acc models.Accountability, phoneNumber, countryCode string) (*models.IssueResult, error)
	Resend(ctx context.Context, acc models.Accountability, phoneNumber, countryCode string) (*models.IssueResult, error)
	Verify(ctx context.Context, acc models.Accountability, phoneNumber, otp string) (*models.VerifyResult, error)
	ClearExpired(ctx context.Context) (*models.CleanupResult, error)
}

type VerificationHandler struct {
	Service VerificationService
	logger  *zap.Logger
}

func NewVerificationHandler(s VerificationService, logger *zap.Logger) *VerificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationHandler{Service: s, logger: logger}
}

// @Summary      Запросить код подтверждения
// @Description  Проверяет номер, сохраняет хэш кода и отправляет SMS
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.RequestVerificationInput  true  "Номер телефона и страна"
// @Success      200   {object}  models.APIResponse{data=models.IssueResult}
// @Failure      400   {object}  models.APIResponse
// @Failure      401   {object}  models.APIResponse
// @Failure      409   {object}  models.APIResponse
// @Failure      429   {object}  models.APIResponse
// @Failure      500   {object}  models.APIResponse
// @Router       /verification/request [post]
func (h *VerificationHandler) Request(c *gin.Context) {
	var req models.RequestVerificationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "request", err)
		return
	}
	res, err := h.Service.Request(c.Request.Context(), middleware.AccountabilityFrom(c), req.PhoneNumber, req.CountryCode)
	if err != nil {
		respondError(c, h.logger, "request", err)
		return
	}
	respondOK(c, "Verification code sent successfully", res)
}

// @Summary      Отправить код повторно
// @Description  Генерирует новый код для номера из последнего запроса
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.ResendVerificationInput  true  "Номер телефона"
// @Success      200   {object}  models.APIResponse{data=models.IssueResult}
// @Failure      400   {object}  models.APIResponse
// @Failure      404   {object}  models.APIResponse
// @Failure      429   {object}  models.APIResponse
// @Failure      500   {object}  models.APIResponse
// @Router       /verification/resend [post]
func (h *VerificationHandler) Resend(c *gin.Context) {
	var req models.ResendVerificationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "resend", err)
		return
	}
	res, err := h.Service.Resend(c.Request.Context(), middleware.AccountabilityFrom(c), req.PhoneNumber, req.CountryCode)
	if err != nil {
		respondError(c, h.logger, "resend", err)
		return
	}
	respondOK(c, "Verification code resent successfully", res)
}

// @Summary      Подтвердить номер
// @Description  Сверяет код и помечает номер как подтверждённый
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.VerifyPhoneInput  true  "Номер и код"
// @Success      200   {object}  models.APIResponse{data=models.VerifyResult}
// @Failure      400   {object}  models.APIResponse
// @Failure      404   {object}  models.APIResponse
// @Failure      409   {object}  models.APIResponse
// @Router       /verification/verify [post]
func (h *VerificationHandler) Verify(c *gin.Context) {
	var req models.VerifyPhoneInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "verify", err)
		return
	}
	res, err := h.Service.Verify(c.Request.Context(), middleware.AccountabilityFrom(c), req.PhoneNumber, req.OTP)
	if err != nil {
		respondError(c, h.logger, "verify", err)
		return
	}
	respondOK(c, "Phone number verified successfully", res)
}

// @Summary      Очистить просроченные коды
// @Tags         Maintenance
// @Produce      json
// @Param        X-Maintenance-Key  header    string  false  "Ключ обслуживания"
// @Success      200  {object}  models.APIResponse{data=models.CleanupResult}
// @Failure      403  {object}  models.APIResponse
// @Router       /verification/cleanup [post]
func (h *VerificationHandler) Cleanup(c *gin.Context) {
	res, err := h.Service.ClearExpired(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "cleanup", err)
		return
	}
	respondOK(c, "Expired verification codes cleared", res)
}

// @Summary  Liveness
// @Tags     Health
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /healthz [get]
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
