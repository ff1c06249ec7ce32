package sms

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Dispatcher routes a code to the sender registered for a provider name and
// bounds every call by a timeout.
type Dispatcher struct {
	senders map[string]Sender
	timeout time.Duration
}

func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{senders: make(map[string]Sender), timeout: timeout}
}

func (d *Dispatcher) Register(provider string, s Sender) *Dispatcher {
	d.senders[strings.ToLower(provider)] = s
	return d
}

func (d *Dispatcher) Send(ctx context.Context, provider, phoneNumber, code string, expiryMinutes int) error {
	s, ok := d.senders[strings.ToLower(provider)]
	if !ok {
		return fmt.Errorf("sms provider %q is not configured", provider)
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := s.SendOTP(ctx, phoneNumber, code, expiryMinutes); err != nil {
		return fmt.Errorf("%s: %w", provider, err)
	}
	return nil
}
