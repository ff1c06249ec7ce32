package sms

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"phoneverifier/internal/config"
	"phoneverifier/internal/logging"
)

// BeOnSender sends codes through the BeOn OTP API (Egyptian numbers).
type BeOnSender struct {
	cfg    config.BeOnConfig
	client HTTPDoer
	logger *zap.Logger
}

func NewBeOnSender(cfg config.BeOnConfig, client HTTPDoer, logger *zap.Logger) *BeOnSender {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BeOnSender{cfg: cfg, client: client, logger: logger}
}

func (s *BeOnSender) SendOTP(ctx context.Context, phoneNumber, code string, expiryMinutes int) error {
	// DRY-RUN: без HTTP-запроса
	if s.cfg.DryRun {
		s.logger.Info("beon dry-run",
			zap.String("phone", logging.MaskPhone(phoneNumber)),
			zap.Int("expiry_minutes", expiryMinutes))
		return nil
	}
	if s.cfg.Token == "" {
		return fmt.Errorf("beon: %w", ErrNotConfigured)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"phoneNumber": phoneNumber,
		"name":        s.cfg.Sender,
		"type":        "sms",
		"otp_length":  strconv.Itoa(len(code)),
		"lang":        s.cfg.Lang,
		"reference":   uuid.NewString(),
		"custom_code": code,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("beon form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("beon form: %w", err)
	}

	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/api/v3/messages/otp"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("beon request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("beon-token", s.cfg.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("beon send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{Provider: "beon", Status: resp.StatusCode, Detail: readBody(resp)}
	}
	s.logger.Debug("beon sent", zap.String("phone", logging.MaskPhone(phoneNumber)))
	return nil
}
