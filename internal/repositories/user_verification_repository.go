package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"phoneverifier/internal/apperr"
	"phoneverifier/internal/database"
	"phoneverifier/internal/models"
)

// UserVerificationRepository: поля верификации на таблице пользователей (Postgres).
type UserVerificationRepository struct {
	DB    database.DBPool
	table string
	now   func() time.Time
}

func NewUserVerificationRepository(db database.DBPool, table string) *UserVerificationRepository {
	if table == "" {
		table = "users"
	}
	return &UserVerificationRepository{DB: db, table: pq.QuoteIdentifier(table), now: time.Now}
}

// WithClock overrides the time source used for created_at and expiry sweeps.
func (r *UserVerificationRepository) WithClock(now func() time.Time) *UserVerificationRepository {
	r.now = now
	return r
}

func (r *UserVerificationRepository) GetCurrentUser(ctx context.Context, acc models.Accountability) (*models.UserVerification, error) {
	if acc.UserID == "" {
		return nil, apperr.ErrUnauthorized
	}
	q := fmt.Sprintf(`
		SELECT id::text, phone_number, country_code, otp_hash, expires_at,
		       COALESCE(attempts, 0), COALESCE(verified_phone, FALSE), created_at
		FROM %s
		WHERE id::text = $1`, r.table)

	var v models.UserVerification
	err := r.DB.QueryRow(ctx, q, acc.UserID).Scan(
		&v.ID, &v.PhoneNumber, &v.CountryCode, &v.OTPHash, &v.ExpiresAt,
		&v.Attempts, &v.VerifiedPhone, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, fmt.Errorf("user_verification get: %w", err)
	}
	return &v, nil
}

func (r *UserVerificationRepository) IsPhoneNumberTaken(ctx context.Context, phone, excludeUserID string) (bool, error) {
	q := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE phone_number = $1 AND verified_phone = TRUE AND id::text <> $2
		)`, r.table)
	var taken bool
	if err := r.DB.QueryRow(ctx, q, phone, excludeUserID).Scan(&taken); err != nil {
		return false, fmt.Errorf("user_verification phone taken: %w", err)
	}
	return taken, nil
}

// UpdateUserVerification пишет новый код только если номер не подтверждён другим пользователем.
func (r *UserVerificationRepository) UpdateUserVerification(ctx context.Context, userID, phone, countryCode, otpHash string, expiresAt time.Time) error {
	q := fmt.Sprintf(`
		UPDATE %[1]s u
		SET phone_number = $2, country_code = $3, otp_hash = $4, expires_at = $5,
		    attempts = 0, verified_phone = FALSE, created_at = $6
		WHERE u.id::text = $1
		  AND NOT EXISTS (
			SELECT 1 FROM %[1]s o
			WHERE o.phone_number = $2 AND o.verified_phone = TRUE AND o.id <> u.id
		  )`, r.table)
	res, err := r.DB.Exec(ctx, q, userID, phone, countryCode, otpHash, expiresAt, r.now())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.ErrPhoneInUse
		}
		return fmt.Errorf("user_verification update: %w", err)
	}
	return r.explainNoop(ctx, res, userID, apperr.ErrPhoneInUse)
}

func (r *UserVerificationRepository) RefreshPendingOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error {
	q := fmt.Sprintf(`
		UPDATE %s
		SET otp_hash = $2, expires_at = $3, attempts = 0
		WHERE id::text = $1`, r.table)
	res, err := r.DB.Exec(ctx, q, userID, otpHash, expiresAt)
	if err != nil {
		return fmt.Errorf("user_verification refresh: %w", err)
	}
	return r.explainNoop(ctx, res, userID, apperr.ErrUserNotFound)
}

func (r *UserVerificationRepository) ClearPendingOTP(ctx context.Context, userID, otpHash string) error {
	q := fmt.Sprintf(`
		UPDATE %s
		SET otp_hash = NULL, expires_at = NULL, attempts = 0
		WHERE id::text = $1 AND otp_hash = $2`, r.table)
	if _, err := r.DB.Exec(ctx, q, userID, otpHash); err != nil {
		return fmt.Errorf("user_verification clear pending: %w", err)
	}
	return nil
}

func (r *UserVerificationRepository) VerifyUserPhone(ctx context.Context, userID, phone string) error {
	q := fmt.Sprintf(`
		UPDATE %[1]s u
		SET phone_number = $2, verified_phone = TRUE, otp_hash = NULL, expires_at = NULL, attempts = 0
		WHERE u.id::text = $1
		  AND NOT EXISTS (
			SELECT 1 FROM %[1]s o
			WHERE o.phone_number = $2 AND o.verified_phone = TRUE AND o.id <> u.id
		  )`, r.table)
	res, err := r.DB.Exec(ctx, q, userID, phone)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.ErrPhoneInUse
		}
		return fmt.Errorf("user_verification verify: %w", err)
	}
	return r.explainNoop(ctx, res, userID, apperr.ErrPhoneInUse)
}

// IncrementAttempts: +1 попытка, возвращает новое значение attempts.
func (r *UserVerificationRepository) IncrementAttempts(ctx context.Context, userID string) (int, error) {
	q := fmt.Sprintf(`
		UPDATE %s
		SET attempts = COALESCE(attempts, 0) + 1
		WHERE id::text = $1
		RETURNING attempts`, r.table)
	var attempts int
	if err := r.DB.QueryRow(ctx, q, userID).Scan(&attempts); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return 0, apperr.ErrUserNotFound
		}
		return 0, fmt.Errorf("user_verification increment attempts: %w", err)
	}
	return attempts, nil
}

func (r *UserVerificationRepository) ClearExpiredOTPs(ctx context.Context) (int64, error) {
	q := fmt.Sprintf(`
		UPDATE %s
		SET otp_hash = NULL, expires_at = NULL, attempts = 0
		WHERE expires_at IS NOT NULL AND expires_at < $1`, r.table)
	res, err := r.DB.Exec(ctx, q, r.now())
	if err != nil {
		return 0, fmt.Errorf("user_verification clear expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("user_verification clear expired: %w", err)
	}
	return n, nil
}

// explainNoop turns a zero-row update into UserNotFound, or into blocked
// when the row exists and the guard rejected the write.
func (r *UserVerificationRepository) explainNoop(ctx context.Context, res database.Result, userID string, blocked error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user_verification rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	q := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id::text = $1)`, r.table)
	var exists bool
	if err := r.DB.QueryRow(ctx, q, userID).Scan(&exists); err != nil {
		return fmt.Errorf("user_verification exists: %w", err)
	}
	if !exists {
		return apperr.ErrUserNotFound
	}
	return blocked
}
