// Package sms holds the SMS provider adapters used to deliver verification codes.
package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNotConfigured is returned when a provider has no credentials and is
// not in dry-run mode.
var ErrNotConfigured = errors.New("sms provider credentials are not configured")

// Sender delivers one verification code.
type Sender interface {
	SendOTP(ctx context.Context, phoneNumber, code string, expiryMinutes int) error
}

// HTTPDoer is the transport the adapters use; *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProviderError is a non-success answer from a provider.
type ProviderError struct {
	Provider string
	Status   int
	Detail   string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Detail)
}

func otpText(code string, expiryMinutes int) string {
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, expiryMinutes)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return strings.TrimSpace(string(b))
}
