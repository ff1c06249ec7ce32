package repositories

import (
	"context"
	"fmt"
	"time"

	"phoneverifier/internal/database"
	"phoneverifier/internal/models"
)

// RequestLogRepository stores issued codes in phone_verification_requests.
type RequestLogRepository struct {
	DB database.DBPool
}

func NewRequestLogRepository(db database.DBPool) *RequestLogRepository {
	return &RequestLogRepository{DB: db}
}

func (r *RequestLogRepository) Record(ctx context.Context, req models.VerificationRequest) error {
	const q = `
		INSERT INTO phone_verification_requests (user_id, phone_number, kind, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.DB.Exec(ctx, q, req.UserID, req.PhoneNumber, req.Kind, req.CreatedAt); err != nil {
		return fmt.Errorf("request_log record: %w", err)
	}
	return nil
}

func (r *RequestLogRepository) CountSince(ctx context.Context, userID, phone string, since time.Time) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM phone_verification_requests
		WHERE user_id = $1 AND phone_number = $2 AND created_at > $3`
	var c int
	if err := r.DB.QueryRow(ctx, q, userID, phone, since).Scan(&c); err != nil {
		return 0, fmt.Errorf("request_log count: %w", err)
	}
	return c, nil
}

func (r *RequestLogRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.Exec(ctx, `DELETE FROM phone_verification_requests WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("request_log prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("request_log prune: %w", err)
	}
	return n, nil
}
