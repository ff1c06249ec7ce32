package models

import "time"

// UserVerification: поля верификации телефона на записи пользователя.
// OTPHash == nil означает, что ожидающей проверки нет.
type UserVerification struct {
	ID            string     `json:"id"`
	PhoneNumber   *string    `json:"phone_number"`
	CountryCode   *string    `json:"country_code"`
	OTPHash       *string    `json:"-"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Attempts      int        `json:"attempts"`
	VerifiedPhone bool       `json:"verified_phone"`
	CreatedAt     *time.Time `json:"created_at"`
}

// HasPending reports whether a hashed code is waiting to be verified.
func (v *UserVerification) HasPending() bool {
	return v.OTPHash != nil && *v.OTPHash != ""
}

// IsExpired reports whether the pending code is past its expiry at now.
func (v *UserVerification) IsExpired(now time.Time) bool {
	return v.ExpiresAt == nil || now.After(*v.ExpiresAt)
}

// Phone returns the stored phone number or "".
func (v *UserVerification) Phone() string {
	if v.PhoneNumber == nil {
		return ""
	}
	return *v.PhoneNumber
}

// Country returns the stored country code or "".
func (v *UserVerification) Country() string {
	if v.CountryCode == nil {
		return ""
	}
	return *v.CountryCode
}

// Accountability is the caller identity resolved from the request.
type Accountability struct {
	UserID string
}

const (
	RequestKindRequest = "request"
	RequestKindResend  = "resend"
)

// VerificationRequest is one entry of the request log used for rate limiting.
type VerificationRequest struct {
	UserID      string    `json:"user_id"`
	PhoneNumber string    `json:"phone_number"`
	Kind        string    `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
}
