package models

type RequestVerificationInput struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	CountryCode string `json:"country_code" binding:"required"`
}

type ResendVerificationInput struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	CountryCode string `json:"country_code"`
}

type VerifyPhoneInput struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
}

// IssueResult is returned by request and resend.
type IssueResult struct {
	ExpiresIn      int `json:"expires_in"`
	CanResendAfter int `json:"can_resend_after"`
}

type VerifyResult struct {
	VerifiedPhone string `json:"verified_phone"`
}

type CleanupResult struct {
	Cleared int64 `json:"cleared"`
}

// APIResponse is the envelope of every verification endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
}
