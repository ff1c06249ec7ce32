package services

import (
	"context"
	"time"

	"phoneverifier/internal/apperr"
	"phoneverifier/internal/models"
	"phoneverifier/internal/repositories"
)

// RateLimitService enforces N issued codes per rolling window and a resend
// cooldown for each (user, phone) pair.
type RateLimitService struct {
	log         repositories.RequestLog
	maxRequests int
	window      time.Duration
	cooldown    time.Duration
	now         func() time.Time
}

func NewRateLimitService(log repositories.RequestLog, maxRequests int, window, cooldown time.Duration) *RateLimitService {
	return &RateLimitService{
		log:         log,
		maxRequests: maxRequests,
		window:      window,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

func (s *RateLimitService) WithClock(now func() time.Time) *RateLimitService {
	s.now = now
	return s
}

// CheckRateLimit fails with RateLimited once the pair has maxRequests
// entries inside the trailing window.
func (s *RateLimitService) CheckRateLimit(ctx context.Context, userID, phone string) error {
	n, err := s.log.CountSince(ctx, userID, phone, s.now().Add(-s.window))
	if err != nil {
		return err
	}
	if n >= s.maxRequests {
		return apperr.ErrRateLimited
	}
	return nil
}

// CanResend is false while any entry of the pair is inside the cooldown.
func (s *RateLimitService) CanResend(ctx context.Context, userID, phone string) (bool, error) {
	n, err := s.log.CountSince(ctx, userID, phone, s.now().Add(-s.cooldown))
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (s *RateLimitService) Record(ctx context.Context, userID, phone, kind string) error {
	return s.log.Record(ctx, models.VerificationRequest{
		UserID:      userID,
		PhoneNumber: phone,
		Kind:        kind,
		CreatedAt:   s.now(),
	})
}

// Prune drops log entries that no longer affect any decision.
func (s *RateLimitService) Prune(ctx context.Context) (int64, error) {
	keep := s.window
	if s.cooldown > keep {
		keep = s.cooldown
	}
	return s.log.Prune(ctx, s.now().Add(-keep))
}
