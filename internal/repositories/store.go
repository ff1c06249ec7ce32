package repositories

import (
	"context"
	"time"

	"phoneverifier/internal/models"
)

// UserVerificationStore reads and writes the verification fields on user records.
type UserVerificationStore interface {
	GetCurrentUser(ctx context.Context, acc models.Accountability) (*models.UserVerification, error)
	IsPhoneNumberTaken(ctx context.Context, phone, excludeUserID string) (bool, error)
	// UpdateUserVerification starts a new pending verification: it overwrites
	// phone, code and expiry, resets attempts, clears the verified flag and
	// stamps created_at.
	UpdateUserVerification(ctx context.Context, userID, phone, countryCode, otpHash string, expiresAt time.Time) error
	// RefreshPendingOTP replaces the pending code on resend. created_at is kept.
	RefreshPendingOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error
	// ClearPendingOTP drops the pending code only if it is still otpHash.
	ClearPendingOTP(ctx context.Context, userID, otpHash string) error
	VerifyUserPhone(ctx context.Context, userID, phone string) error
	IncrementAttempts(ctx context.Context, userID string) (int, error)
	ClearExpiredOTPs(ctx context.Context) (int64, error)
}

// RequestLog keeps one entry per issued code for rate limiting.
type RequestLog interface {
	Record(ctx context.Context, req models.VerificationRequest) error
	// CountSince counts entries of the pair created strictly after since.
	CountSince(ctx context.Context, userID, phone string, since time.Time) (int, error)
	// Prune drops entries created before the cutoff.
	Prune(ctx context.Context, before time.Time) (int64, error)
}
