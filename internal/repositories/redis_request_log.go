package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"phoneverifier/internal/models"
)

// RedisRequestLog keeps one sorted set per (user, phone) scored by unix
// milliseconds. Keys expire after the retention so idle pairs vanish.
type RedisRequestLog struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

func NewRedisRequestLog(client *redis.Client, retention time.Duration) *RedisRequestLog {
	if retention <= 0 {
		retention = time.Hour
	}
	return &RedisRequestLog{client: client, prefix: "otp:requests:", retention: retention}
}

func (l *RedisRequestLog) key(userID, phone string) string {
	return l.prefix + userID + ":" + phone
}

func (l *RedisRequestLog) Record(ctx context.Context, req models.VerificationRequest) error {
	key := l.key(req.UserID, req.PhoneNumber)
	member := req.Kind + ":" + uuid.NewString()

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(req.CreatedAt.UnixMilli()), Member: member})
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(req.CreatedAt.Add(-l.retention).UnixMilli(), 10))
	pipe.PExpire(ctx, key, l.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("request_log redis record: %w", err)
	}
	return nil
}

func (l *RedisRequestLog) CountSince(ctx context.Context, userID, phone string, since time.Time) (int, error) {
	n, err := l.client.ZCount(ctx, l.key(userID, phone), "("+strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("request_log redis count: %w", err)
	}
	return int(n), nil
}

// Prune is a no-op: entries are trimmed on write and keys carry a TTL.
func (l *RedisRequestLog) Prune(context.Context, time.Time) (int64, error) {
	return 0, nil
}
