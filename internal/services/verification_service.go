package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"phoneverifier/internal/apperr"
	"phoneverifier/internal/lock"
	"phoneverifier/internal/logging"
	"phoneverifier/internal/models"
	"phoneverifier/internal/repositories"
)

// OTPSender delivers a code through the named provider.
type OTPSender interface {
	Send(ctx context.Context, provider, phoneNumber, code string, expiryMinutes int) error
}

// VerificationOptions are the tunables of the verification lifecycle.
type VerificationOptions struct {
	TTL            time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
}

// VerificationService drives request -> resend -> verify for the current user.
type VerificationService struct {
	store   repositories.UserVerificationStore
	limiter *RateLimitService
	otp     *OTPService
	phones  *PhoneService
	sender  OTPSender
	locker  lock.Locker
	opts    VerificationOptions
	logger  *zap.Logger
	now     func() time.Time
}

func NewVerificationService(
	store repositories.UserVerificationStore,
	limiter *RateLimitService,
	otp *OTPService,
	phones *PhoneService,
	sender OTPSender,
	locker lock.Locker,
	opts VerificationOptions,
	logger *zap.Logger,
) *VerificationService {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.ResendCooldown <= 0 {
		opts.ResendCooldown = time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		store:   store,
		limiter: limiter,
		otp:     otp,
		phones:  phones,
		sender:  sender,
		locker:  locker,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *VerificationService) WithClock(now func() time.Time) *VerificationService {
	s.now = now
	return s
}

// Request issues a new code for phoneNumber and sends it by SMS.
func (s *VerificationService) Request(ctx context.Context, acc models.Accountability, phoneNumber, countryCode string) (*models.IssueResult, error) {
	phoneNumber, countryCode = strings.TrimSpace(phoneNumber), strings.TrimSpace(countryCode)
	if phoneNumber == "" || countryCode == "" {
		return nil, apperr.Newf(apperr.ValidationFailed, "phone_number and country_code are required")
	}

	release, err := s.acquire(ctx, acc)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := s.store.GetCurrentUser(ctx, acc)
	if err != nil {
		return nil, err
	}

	pv, verr := s.phones.ValidatePhone(phoneNumber, countryCode)
	if err := s.limiter.CheckRateLimit(ctx, user.ID, limitKey(pv, verr, phoneNumber)); err != nil {
		return nil, err
	}
	if verr != nil {
		return nil, verr
	}

	taken, err := s.store.IsPhoneNumberTaken(ctx, pv.FormattedNumber, user.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.ErrPhoneInUse
	}

	code, hash, err := s.newCode()
	if err != nil {
		return nil, err
	}
	country := pv.CountryISO2
	if country == "" {
		country = countryCode
	}
	if err := s.store.UpdateUserVerification(ctx, user.ID, pv.FormattedNumber, country, hash, s.now().Add(s.opts.TTL)); err != nil {
		return nil, err
	}
	if err := s.limiter.Record(ctx, user.ID, pv.FormattedNumber, models.RequestKindRequest); err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, user.ID, pv.FormattedNumber, code, hash); err != nil {
		return nil, err
	}

	s.logger.Info("verification code issued",
		zap.String("user_id", user.ID),
		zap.String("phone", logging.MaskPhone(pv.FormattedNumber)),
		zap.String("kind", models.RequestKindRequest))
	return s.issueResult(), nil
}

// Resend replaces the pending code of the number set by Request.
// countryCode may be empty, the stored one is used then.
func (s *VerificationService) Resend(ctx context.Context, acc models.Accountability, phoneNumber, countryCode string) (*models.IssueResult, error) {
	phoneNumber, countryCode = strings.TrimSpace(phoneNumber), strings.TrimSpace(countryCode)
	if phoneNumber == "" {
		return nil, apperr.Newf(apperr.ValidationFailed, "phone_number is required")
	}

	release, err := s.acquire(ctx, acc)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := s.store.GetCurrentUser(ctx, acc)
	if err != nil {
		return nil, err
	}
	if countryCode == "" {
		countryCode = user.Country()
	}

	pv, verr := s.phones.ValidatePhone(phoneNumber, countryCode)
	ok, err := s.limiter.CanResend(ctx, user.ID, limitKey(pv, verr, phoneNumber))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Newf(apperr.RateLimited, "Please wait before requesting a new code")
	}
	if verr != nil {
		return nil, verr
	}
	if user.VerifiedPhone || user.Phone() != pv.FormattedNumber {
		return nil, apperr.ErrNoPendingVerification
	}

	taken, err := s.store.IsPhoneNumberTaken(ctx, pv.FormattedNumber, user.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.ErrPhoneInUse
	}

	code, hash, err := s.newCode()
	if err != nil {
		return nil, err
	}
	if err := s.store.RefreshPendingOTP(ctx, user.ID, hash, s.now().Add(s.opts.TTL)); err != nil {
		return nil, err
	}
	if err := s.limiter.Record(ctx, user.ID, pv.FormattedNumber, models.RequestKindResend); err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, user.ID, pv.FormattedNumber, code, hash); err != nil {
		return nil, err
	}

	s.logger.Info("verification code issued",
		zap.String("user_id", user.ID),
		zap.String("phone", logging.MaskPhone(pv.FormattedNumber)),
		zap.String("kind", models.RequestKindResend))
	return s.issueResult(), nil
}

// Verify checks otp against the pending code and marks the phone verified.
func (s *VerificationService) Verify(ctx context.Context, acc models.Accountability, phoneNumber, otp string) (*models.VerifyResult, error) {
	phoneNumber, otp = strings.TrimSpace(phoneNumber), strings.TrimSpace(otp)
	if phoneNumber == "" || otp == "" {
		return nil, apperr.Newf(apperr.ValidationFailed, "phone_number and otp are required")
	}

	release, err := s.acquire(ctx, acc)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := s.store.GetCurrentUser(ctx, acc)
	if err != nil {
		return nil, err
	}

	pv, err := s.phones.ValidatePhone(phoneNumber, user.Country())
	if err != nil {
		return nil, err
	}
	if !user.HasPending() || user.Phone() != pv.FormattedNumber {
		return nil, apperr.ErrNoPendingVerification
	}
	if user.IsExpired(s.now()) {
		return nil, apperr.ErrOtpExpired
	}
	if user.Attempts >= s.opts.MaxAttempts {
		return nil, apperr.ErrMaxAttemptsExceeded
	}

	if !s.otp.Validate(otp, *user.OTPHash) {
		attempts, err := s.store.IncrementAttempts(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("verification code rejected",
			zap.String("user_id", user.ID),
			zap.Int("attempts", attempts))
		return nil, apperr.ErrOtpInvalid
	}

	if err := s.store.VerifyUserPhone(ctx, user.ID, pv.FormattedNumber); err != nil {
		return nil, err
	}
	s.logger.Info("phone verified",
		zap.String("user_id", user.ID),
		zap.String("phone", logging.MaskPhone(pv.FormattedNumber)))
	return &models.VerifyResult{VerifiedPhone: pv.FormattedNumber}, nil
}

// ClearExpired drops expired pending codes and stale request-log entries.
func (s *VerificationService) ClearExpired(ctx context.Context) (*models.CleanupResult, error) {
	n, err := s.store.ClearExpiredOTPs(ctx)
	if err != nil {
		return nil, err
	}
	pruned, err := s.limiter.Prune(ctx)
	if err != nil {
		s.logger.Warn("request log prune failed", zap.Error(err))
	}
	s.logger.Info("expired verification codes cleared",
		zap.Int64("cleared", n),
		zap.Int64("log_pruned", pruned))
	return &models.CleanupResult{Cleared: n}, nil
}

func (s *VerificationService) acquire(ctx context.Context, acc models.Accountability) (func(), error) {
	if acc.UserID == "" || s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, "otp:lock:"+acc.UserID)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, apperr.Newf(apperr.RateLimited, "Another verification request is in progress")
		}
		return nil, apperr.Wrap(apperr.Internal, err)
	}
	return release, nil
}

func (s *VerificationService) newCode() (code, hash string, err error) {
	code, err = s.otp.GenerateOTP()
	if err != nil {
		return "", "", err
	}
	return code, s.otp.Hash(code), nil
}

// deliver sends the code. On failure the pending code written by this call
// is cleared so no undeliverable code stays active.
func (s *VerificationService) deliver(ctx context.Context, userID, phone, code, hash string) error {
	provider := s.phones.SelectSMSProvider(phone)
	err := s.sender.Send(ctx, provider, phone, code, s.expiryMinutes())
	if err == nil {
		return nil
	}

	s.logger.Warn("sms delivery failed",
		zap.String("user_id", userID),
		zap.String("provider", provider),
		zap.String("phone", logging.MaskPhone(phone)),
		zap.Error(err))
	if cerr := s.store.ClearPendingOTP(context.WithoutCancel(ctx), userID, hash); cerr != nil {
		s.logger.Error("rollback of pending code failed", zap.String("user_id", userID), zap.Error(cerr))
	}
	return apperr.Wrap(apperr.SMSFailed, err)
}

func (s *VerificationService) expiryMinutes() int {
	m := int(s.opts.TTL / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

func (s *VerificationService) issueResult() *models.IssueResult {
	return &models.IssueResult{
		ExpiresIn:      int(s.opts.TTL / time.Second),
		CanResendAfter: int(s.opts.ResendCooldown / time.Second),
	}
}

// limitKey is the phone the rate limit is keyed on: the normalised number
// when it validates, the raw input otherwise.
func limitKey(pv PhoneValidation, verr error, raw string) string {
	if verr == nil {
		return pv.FormattedNumber
	}
	return raw
}
