package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"phoneverifier/internal/config"
	"phoneverifier/internal/logging"
)

// VonageSender sends codes through the Vonage (Nexmo) SMS API.
type VonageSender struct {
	cfg    config.VonageConfig
	client HTTPDoer
	logger *zap.Logger
}

type vonageResponse struct {
	MessageCount string `json:"message-count"`
	Messages     []struct {
		Status    string `json:"status"`
		MessageID string `json:"message-id"`
		ErrorText string `json:"error-text"`
	} `json:"messages"`
}

func NewVonageSender(cfg config.VonageConfig, client HTTPDoer, logger *zap.Logger) *VonageSender {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VonageSender{cfg: cfg, client: client, logger: logger}
}

func (s *VonageSender) SendOTP(ctx context.Context, phoneNumber, code string, expiryMinutes int) error {
	if s.cfg.DryRun {
		s.logger.Info("vonage dry-run",
			zap.String("phone", logging.MaskPhone(phoneNumber)),
			zap.Int("expiry_minutes", expiryMinutes))
		return nil
	}
	if s.cfg.APIKey == "" || s.cfg.APISecret == "" {
		return fmt.Errorf("vonage: %w", ErrNotConfigured)
	}

	form := url.Values{
		"api_key":    {s.cfg.APIKey},
		"api_secret": {s.cfg.APISecret},
		"from":       {s.cfg.From},
		"to":         {strings.TrimPrefix(phoneNumber, "+")},
		"text":       {otpText(code, expiryMinutes)},
	}
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/sms/json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("vonage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("vonage send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{Provider: "vonage", Status: resp.StatusCode, Detail: readBody(resp)}
	}

	var result vonageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("vonage parse response: %w", err)
	}
	if len(result.Messages) == 0 {
		return &ProviderError{Provider: "vonage", Detail: "empty response"}
	}
	if m := result.Messages[0]; m.Status != "0" {
		return &ProviderError{Provider: "vonage", Detail: fmt.Sprintf("status %s: %s", m.Status, m.ErrorText)}
	}
	s.logger.Debug("vonage sent",
		zap.String("phone", logging.MaskPhone(phoneNumber)),
		zap.String("message_id", result.Messages[0].MessageID))
	return nil
}
