package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoneverifier/internal/apperr"
	"phoneverifier/internal/models"
)

type stubService struct {
	acc     models.Accountability
	phone   string
	country string
	otp     string
	err     error
}

func (s *stubService) Request(_ context.Context, acc models.Accountability, phone, country string) (*models.IssueResult, error) {
	s.acc, s.phone, s.country = acc, phone, country
	if s.err != nil {
		return nil, s.err
	}
	return &models.IssueResult{ExpiresIn: 600, CanResendAfter: 60}, nil
}

func (s *stubService) Resend(_ context.Context, acc models.Accountability, phone, country string) (*models.IssueResult, error) {
	s.acc, s.phone, s.country = acc, phone, country
	if s.err != nil {
		return nil, s.err
	}
	return &models.IssueResult{ExpiresIn: 600, CanResendAfter: 60}, nil
}

func (s *stubService) Verify(_ context.Context, acc models.Accountability, phone, otp string) (*models.VerifyResult, error) {
	s.acc, s.phone, s.otp = acc, phone, otp
	if s.err != nil {
		return nil, s.err
	}
	return &models.VerifyResult{VerifiedPhone: phone}, nil
}

func (s *stubService) ClearExpired(context.Context) (*models.CleanupResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.CleanupResult{Cleared: 2}, nil
}

func perform(t *testing.T, h gin.HandlerFunc, userID, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if userID != "" {
		c.Set("user_id", userID)
	}
	h(c)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestVerificationHandler_Request(t *testing.T) {
	svc := &stubService{}
	h := NewVerificationHandler(svc, nil)

	w, resp := perform(t, h.Request, "u1", `{"phone_number":"+201234567890","country_code":"EG"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, map[string]interface{}{"expires_in": float64(600), "can_resend_after": float64(60)}, resp["data"])
	assert.NotContains(t, resp, "code")
	assert.Equal(t, "u1", svc.acc.UserID)
	assert.Equal(t, "EG", svc.country)
}

func TestVerificationHandler_RequestMissingField(t *testing.T) {
	h := NewVerificationHandler(&stubService{}, nil)

	w, resp := perform(t, h.Request, "u1", `{"phone_number":"+201234567890"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "VALIDATION_ERROR", resp["code"])
}

func TestVerificationHandler_ResendWithoutCountry(t *testing.T) {
	svc := &stubService{}
	h := NewVerificationHandler(svc, nil)

	w, _ := perform(t, h.Resend, "u1", `{"phone_number":"+201234567890"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.country)
}

func TestVerificationHandler_Verify(t *testing.T) {
	svc := &stubService{}
	h := NewVerificationHandler(svc, nil)

	w, resp := perform(t, h.Verify, "u1", `{"phone_number":"+201234567890","otp":"1234"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"verified_phone": "+201234567890"}, resp["data"])
	assert.Equal(t, "1234", svc.otp)
}

func TestVerificationHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.ErrInvalidPhoneFormat, 400, "INVALID_PHONE_FORMAT"},
		{apperr.ErrRateLimited, 429, "RATE_LIMITED"},
		{apperr.ErrOtpExpired, 400, "OTP_EXPIRED"},
		{apperr.ErrOtpInvalid, 400, "OTP_INVALID"},
		{apperr.ErrPhoneInUse, 409, "PHONE_IN_USE"},
		{apperr.ErrUserNotFound, 404, "USER_NOT_FOUND"},
		{apperr.ErrUnauthorized, 401, "UNAUTHORIZED"},
		{apperr.Wrap(apperr.SMSFailed, errors.New("provider down")), 500, "SMS_FAILED"},
		{apperr.ErrMaxAttemptsExceeded, 400, "MAX_ATTEMPTS_EXCEEDED"},
		{apperr.ErrNoPendingVerification, 404, "NO_PENDING_VERIFICATION"},
		{errors.New("db is gone"), 500, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := NewVerificationHandler(&stubService{err: tt.err}, nil)
			w, resp := perform(t, h.Verify, "u1", `{"phone_number":"+201234567890","otp":"1234"}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tt.code, resp["code"])
			assert.NotEmpty(t, resp["message"])
			assert.NotContains(t, resp["message"], "provider down")
			assert.NotContains(t, resp["message"], "db is gone")
		})
	}
}

func TestVerificationHandler_Cleanup(t *testing.T) {
	h := NewVerificationHandler(&stubService{}, nil)
	w, resp := perform(t, h.Cleanup, "", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"cleared": float64(2)}, resp["data"])
}
