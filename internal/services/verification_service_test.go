package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoneverifier/internal/apperr"
	"phoneverifier/internal/lock"
	"phoneverifier/internal/models"
	"phoneverifier/internal/repositories"
)

const egPhone = "+201234567890"

type sentSMS struct {
	provider string
	phone    string
	code     string
	minutes  int
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (f *fakeSender) Send(_ context.Context, provider, phone, code string, minutes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentSMS{provider, phone, code, minutes})
	return nil
}

func (f *fakeSender) last(t *testing.T) sentSMS {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fixture struct {
	svc    *VerificationService
	store  *repositories.MemoryStore
	log    *repositories.MemoryRequestLog
	sender *fakeSender
	now    time.Time
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: testNow, sender: &fakeSender{}, log: repositories.NewMemoryRequestLog()}
	clock := func() time.Time { return f.now }
	f.store = repositories.NewMemoryStore(clock)
	f.store.Put(models.UserVerification{ID: "u1"})

	limiter := NewRateLimitService(f.log, 3, time.Hour, time.Minute).WithClock(clock)
	f.svc = NewVerificationService(
		f.store,
		limiter,
		NewOTPService("test-secret"),
		NewPhoneService(nil, ""),
		f.sender,
		lock.NewLocalLocker(lock.Options{WaitTimeout: 50 * time.Millisecond}),
		VerificationOptions{TTL: 10 * time.Minute, ResendCooldown: time.Minute, MaxAttempts: 5},
		nil,
	).WithClock(clock)
	return f
}

var u1 = models.Accountability{UserID: "u1"}

func wrongCode(code string) string {
	if code == "1000" {
		return "1001"
	}
	return "1000"
}

func TestVerification_ScenarioA_RequestThenWrongCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Request(ctx, u1, egPhone, "EG")
	require.NoError(t, err)
	assert.Equal(t, &models.IssueResult{ExpiresIn: 600, CanResendAfter: 60}, res)

	sms := f.sender.last(t)
	assert.Equal(t, ProviderBeOn, sms.provider)
	assert.Equal(t, egPhone, sms.phone)
	assert.Equal(t, 10, sms.minutes)

	u, _ := f.store.Get("u1")
	assert.Equal(t, egPhone, u.Phone())
	assert.Equal(t, "EG", u.Country())
	assert.Equal(t, HashOTP(sms.code, "test-secret"), *u.OTPHash)
	assert.Equal(t, f.now.Add(10*time.Minute), *u.ExpiresAt)

	_, err = f.svc.Verify(ctx, u1, egPhone, wrongCode(sms.code))
	assert.ErrorIs(t, err, apperr.ErrOtpInvalid)
	assert.Equal(t, 400, apperr.KindOf(err).Status())
	u, _ = f.store.Get("u1")
	assert.Equal(t, 1, u.Attempts)
}

func TestVerification_ScenarioB_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, u1, egPhone, "EG")
	require.NoError(t, err)
	code := f.sender.last(t).code

	f.advance(11 * time.Minute)
	_, err = f.svc.Verify(ctx, u1, egPhone, code)
	assert.ErrorIs(t, err, apperr.ErrOtpExpired)
	_, err = f.svc.Verify(ctx, u1, egPhone, wrongCode(code))
	assert.ErrorIs(t, err, apperr.ErrOtpExpired)
}

func TestVerification_ScenarioC_PhoneInUse(t *testing.T) {
	f := newFixture(t)
	phone := egPhone
	f.store.Put(models.UserVerification{ID: "owner", PhoneNumber: &phone, VerifiedPhone: true})

	_, err := f.svc.Request(context.Background(), u1, egPhone, "EG")
	assert.ErrorIs(t, err, apperr.ErrPhoneInUse)
	assert.Equal(t, 409, apperr.KindOf(err).Status())
	assert.Empty(t, f.sender.sent)
}

func TestVerification_VerifySuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, u1, "01234567890", "EG")
	require.NoError(t, err)
	code := f.sender.last(t).code

	res, err := f.svc.Verify(ctx, u1, "+20 123 456 7890", code)
	require.NoError(t, err)
	assert.Equal(t, egPhone, res.VerifiedPhone)

	u, _ := f.store.Get("u1")
	assert.True(t, u.VerifiedPhone)
	assert.Nil(t, u.OTPHash)
	assert.Nil(t, u.ExpiresAt)
	assert.Zero(t, u.Attempts)

	_, err = f.svc.Verify(ctx, u1, egPhone, code)
	assert.ErrorIs(t, err, apperr.ErrNoPendingVerification)
}

func TestVerification_MaxAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, u1, egPhone, "EG")
	require.NoError(t, err)
	code := f.sender.last(t).code

	for i := 0; i < 5; i++ {
		_, err = f.svc.Verify(ctx, u1, egPhone, wrongCode(code))
		require.ErrorIs(t, err, apperr.ErrOtpInvalid)
	}
	_, err = f.svc.Verify(ctx, u1, egPhone, code)
	assert.ErrorIs(t, err, apperr.ErrMaxAttemptsExceeded)
}

func TestVerification_VerifyWithoutPending(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Verify(context.Background(), u1, egPhone, "1234")
	assert.ErrorIs(t, err, apperr.ErrNoPendingVerification)
	assert.Equal(t, 404, apperr.KindOf(err).Status())
}

func TestVerification_VerifyOtherPhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Request(ctx, u1, egPhone, "EG")
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, u1, "+201111111111", f.sender.last(t).code)
	assert.ErrorIs(t, err, apperr.ErrNoPendingVerification)
}

func TestVerification_RequestRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Request(ctx, u1, egPhone, "EG")
		require.NoError(t, err)
		f.advance(5 * time.Minute)
	}
	_, err := f.svc.Request(ctx, u1, egPhone, "EG")
	assert.ErrorIs(t, err, apperr.ErrRateLimited)
	assert.Equal(t, 429, apperr.KindOf(err).Status())

	f.advance(time.Hour)
	_, err = f.svc.Request(ctx, u1, egPhone, "EG")
	assert.NoError(t, err)
}

func TestVerification_Resend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, u1, egPhone, "EG")
	require.NoError(t, err)
	first := f.sender.last(t).code
	u, _ := f.store.Get("u1")
	createdAt := *u.CreatedAt

	_, err = f.svc.Verify(ctx, u1, egPhone, wrongCode(first))
	require.ErrorIs(t, err, apperr.ErrOtpInvalid)

	f.advance(30 * time.Second)
	_, err = f.svc.Resend(ctx, u1, egPhone, "")
	assert.ErrorIs(t, err, apperr.ErrRateLimited)

	f.advance(31 * time.Second)
	res, err := f.svc.Resend(ctx, u1, egPhone, "")
	require.NoError(t, err)
	assert.Equal(t, 600, res.ExpiresIn)

	u, _ = f.store.Get("u1")
	assert.Zero(t, u.Attempts)
	assert.Equal(t, createdAt, *u.CreatedAt)
	assert.Equal(t, f.now.Add(10*time.Minute), *u.ExpiresAt)

	second := f.sender.last(t).code
	_, err = f.svc.Verify(ctx, u1, egPhone, second)
	assert.NoError(t, err)
}

func TestVerification_ResendRequiresRequestedPhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Resend(ctx, u1, egPhone, "EG")
	assert.ErrorIs(t, err, apperr.ErrNoPendingVerification)

	_, err = f.svc.Request(ctx, u1, egPhone, "EG")
	require.NoError(t, err)
	f.advance(2 * time.Minute)
	_, err = f.svc.Resend(ctx, u1, "+201111111111", "")
	assert.ErrorIs(t, err, apperr.ErrNoPendingVerification)
}

func TestVerification_SMSFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("provider down")
	ctx := context.Background()

	_, err := f.svc.Request(ctx, u1, egPhone, "EG")
	assert.ErrorIs(t, err, apperr.ErrSMSFailed)
	assert.Equal(t, 500, apperr.KindOf(err).Status())

	u, _ := f.store.Get("u1")
	assert.False(t, u.HasPending())
	assert.Equal(t, egPhone, u.Phone())

	// the failed attempt still counts
	n, err := f.log.CountSince(ctx, "u1", egPhone, f.now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// resend after the cooldown can retry delivery
	f.sender.err = nil
	f.advance(2 * time.Minute)
	_, err = f.svc.Resend(ctx, u1, egPhone, "")
	require.NoError(t, err)
	u, _ = f.store.Get("u1")
	assert.True(t, u.HasPending())
}

func TestVerification_InputErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, u1, "", "EG")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	_, err = f.svc.Request(ctx, u1, egPhone, " ")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	_, err = f.svc.Resend(ctx, u1, "", "")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	_, err = f.svc.Verify(ctx, u1, egPhone, "")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = f.svc.Request(ctx, u1, "12ab", "EG")
	assert.ErrorIs(t, err, apperr.ErrInvalidPhoneFormat)

	_, err = f.svc.Request(ctx, models.Accountability{}, egPhone, "EG")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.svc.Request(ctx, models.Accountability{UserID: "ghost"}, egPhone, "EG")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}

func TestVerification_ConcurrentRequestBlocked(t *testing.T) {
	f := newFixture(t)
	locker := lock.NewLocalLocker(lock.Options{WaitTimeout: 20 * time.Millisecond})
	f.svc.locker = locker

	release, err := locker.Acquire(context.Background(), "otp:lock:u1")
	require.NoError(t, err)
	defer release()

	_, err = f.svc.Request(context.Background(), u1, egPhone, "EG")
	assert.ErrorIs(t, err, apperr.ErrRateLimited)
}

func TestVerification_ClearExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, u1, egPhone, "EG")
	require.NoError(t, err)

	res, err := f.svc.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Cleared)

	f.advance(11 * time.Minute)
	res, err = f.svc.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Cleared)

	res, err = f.svc.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Cleared)

	_, err = f.svc.Verify(ctx, u1, egPhone, "1234")
	assert.ErrorIs(t, err, apperr.ErrNoPendingVerification)
}
