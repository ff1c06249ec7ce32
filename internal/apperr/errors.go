// Package apperr defines the error taxonomy of the verification flows.
// Every domain failure carries a stable Kind; the HTTP layer maps it to a
// status code and a machine-readable code in exactly one place.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	ValidationFailed
	InvalidPhoneFormat
	RateLimited
	OtpExpired
	OtpInvalid
	PhoneInUse
	UserNotFound
	Unauthorized
	SMSFailed
	MaxAttemptsExceeded
	NoPendingVerification
)

type kindInfo struct {
	code    string
	status  int
	message string
}

var kinds = map[Kind]kindInfo{
	Internal:              {"INTERNAL_ERROR", http.StatusInternalServerError, "Internal server error"},
	ValidationFailed:      {"VALIDATION_ERROR", http.StatusBadRequest, "Invalid request body"},
	InvalidPhoneFormat:    {"INVALID_PHONE_FORMAT", http.StatusBadRequest, "Invalid phone number format"},
	RateLimited:           {"RATE_LIMITED", http.StatusTooManyRequests, "Too many verification requests, please try again later"},
	OtpExpired:            {"OTP_EXPIRED", http.StatusBadRequest, "Verification code has expired, please request a new one"},
	OtpInvalid:            {"OTP_INVALID", http.StatusBadRequest, "Invalid verification code"},
	PhoneInUse:            {"PHONE_IN_USE", http.StatusConflict, "Phone number is already in use by another account"},
	UserNotFound:          {"USER_NOT_FOUND", http.StatusNotFound, "User not found"},
	Unauthorized:          {"UNAUTHORIZED", http.StatusUnauthorized, "Authentication required"},
	SMSFailed:             {"SMS_FAILED", http.StatusInternalServerError, "Failed to send verification code"},
	MaxAttemptsExceeded:   {"MAX_ATTEMPTS_EXCEEDED", http.StatusBadRequest, "Too many failed attempts, please request a new code"},
	NoPendingVerification: {"NO_PENDING_VERIFICATION", http.StatusNotFound, "No pending verification found"},
}

// Code returns the machine-readable code, e.g. "RATE_LIMITED".
func (k Kind) Code() string { return kinds[k].code }

// Status returns the HTTP status the kind maps to.
func (k Kind) Status() int { return kinds[k].status }

// DefaultMessage returns the user-facing message used when none is given.
func (k Kind) DefaultMessage() string { return kinds[k].message }

func (k Kind) String() string { return k.Code() }

// Error is a tagged domain error. Two errors match under errors.Is when
// their kinds are equal, so the sentinels below work as comparison targets.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.DefaultMessage()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// PublicMessage is the message safe to show to clients (no wrapped cause).
func (e *Error) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.DefaultMessage()
}

func New(kind Kind) *Error { return &Error{Kind: kind} }

func Newf(kind Kind, message string) *Error { return &Error{Kind: kind, Message: message} }

func Wrap(kind Kind, err error) *Error { return &Error{Kind: kind, Err: err} }

// KindOf reports the kind of err, or Internal for non-domain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

var (
	ErrValidationFailed      = New(ValidationFailed)
	ErrInvalidPhoneFormat    = New(InvalidPhoneFormat)
	ErrRateLimited           = New(RateLimited)
	ErrOtpExpired            = New(OtpExpired)
	ErrOtpInvalid            = New(OtpInvalid)
	ErrPhoneInUse            = New(PhoneInUse)
	ErrUserNotFound          = New(UserNotFound)
	ErrUnauthorized          = New(Unauthorized)
	ErrSMSFailed             = New(SMSFailed)
	ErrMaxAttemptsExceeded   = New(MaxAttemptsExceeded)
	ErrNoPendingVerification = New(NoPendingVerification)
)
