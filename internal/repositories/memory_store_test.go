package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoneverifier/internal/apperr"
	"phoneverifier/internal/models"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	now := fixedNow
	store := NewMemoryStore(func() time.Time { return now })
	store.Put(models.UserVerification{ID: "u1"})
	ctx := context.Background()

	require.NoError(t, store.UpdateUserVerification(ctx, "u1", "+201234567890", "EG", "h1", now.Add(10*time.Minute)))
	u, _ := store.Get("u1")
	assert.True(t, u.HasPending())
	assert.Equal(t, now, *u.CreatedAt)

	n, err := store.IncrementAttempts(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// resend keeps created_at and resets attempts
	now = now.Add(2 * time.Minute)
	require.NoError(t, store.RefreshPendingOTP(ctx, "u1", "h2", now.Add(10*time.Minute)))
	u, _ = store.Get("u1")
	assert.Equal(t, fixedNow, *u.CreatedAt)
	assert.Zero(t, u.Attempts)

	// stale hash does not clear the newer one
	require.NoError(t, store.ClearPendingOTP(ctx, "u1", "h1"))
	u, _ = store.Get("u1")
	assert.Equal(t, "h2", *u.OTPHash)

	require.NoError(t, store.VerifyUserPhone(ctx, "u1", "+201234567890"))
	u, _ = store.Get("u1")
	assert.True(t, u.VerifiedPhone)
	assert.Nil(t, u.OTPHash)
	assert.Nil(t, u.ExpiresAt)
	assert.Zero(t, u.Attempts)
}

func TestMemoryStore_PhoneUniqueness(t *testing.T) {
	store := NewMemoryStore(nil)
	phone := "+201234567890"
	store.Put(models.UserVerification{ID: "owner", PhoneNumber: &phone, VerifiedPhone: true})
	store.Put(models.UserVerification{ID: "other"})
	ctx := context.Background()

	taken, err := store.IsPhoneNumberTaken(ctx, phone, "other")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = store.IsPhoneNumberTaken(ctx, phone, "owner")
	require.NoError(t, err)
	assert.False(t, taken)

	err = store.UpdateUserVerification(ctx, "other", phone, "EG", "h", time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, apperr.ErrPhoneInUse)
	assert.ErrorIs(t, store.VerifyUserPhone(ctx, "other", phone), apperr.ErrPhoneInUse)

	// re-verification by the owner is allowed
	assert.NoError(t, store.UpdateUserVerification(ctx, "owner", phone, "EG", "h", time.Now().Add(time.Minute)))
}

func TestMemoryStore_ClearExpiredIsIdempotent(t *testing.T) {
	store := NewMemoryStore(func() time.Time { return fixedNow })
	past, future := fixedNow.Add(-time.Minute), fixedNow.Add(time.Minute)
	store.Put(models.UserVerification{ID: "stale", OTPHash: ptr("h"), ExpiresAt: &past, Attempts: 3})
	store.Put(models.UserVerification{ID: "fresh", OTPHash: ptr("h"), ExpiresAt: &future})
	ctx := context.Background()

	n, err := store.ClearExpiredOTPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	first, _ := store.Get("stale")

	n, err = store.ClearExpiredOTPs(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	second, _ := store.Get("stale")

	assert.Equal(t, first, second)
	assert.Nil(t, second.OTPHash)
	assert.Zero(t, second.Attempts)
	fresh, _ := store.Get("fresh")
	assert.True(t, fresh.HasPending())
}

func TestMemoryStore_Errors(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	_, err := store.GetCurrentUser(ctx, models.Accountability{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = store.GetCurrentUser(ctx, models.Accountability{UserID: "x"})
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	_, err = store.IncrementAttempts(ctx, "x")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}
