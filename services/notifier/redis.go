package notifier

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"bymarket/adradar/internal/storage"
	"bymarket/adradar/logger"
	apperrors "bymarket/adradar/pkg/errors"
)

// RedisNotifier implements Notifier on a Redis stream. The chat
// front-end consumes the stream and renders the messages; whether a
// recipient has revoked access is its concern, not ours.
type RedisNotifier struct {
	client    *redis.Client
	ctx       context.Context
	stream    string
	maxLength int
	log       *logger.Logger
}

// NewRedisNotifier creates a new Redis-stream notifier.
func NewRedisNotifier(ctx context.Context, addr string, db int, stream string, maxLength int) *RedisNotifier {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisNotifier{
		client:    client,
		ctx:       ctx,
		stream:    stream,
		maxLength: maxLength,
		log:       logger.ForNotifier(),
	}
}

// Notify publishes one ad to the stream as a JSON payload addressed to
// its subscriber.
func (n *RedisNotifier) Notify(ownerID int64, ad storage.PersistedAd) error {
	payload, err := json.Marshal(ad)
	if err != nil {
		return apperrors.NewNotify("", "marshal notification payload", err)
	}

	err = n.client.XAdd(n.ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]interface{}{
			"owner_id": ownerID,
			"ad":       payload,
		},
	}).Err()
	if err != nil {
		return apperrors.NewNotify("", "publish to stream", err)
	}

	n.log.Debug().
		Int64("owner_id", ownerID).
		Str("external_id", ad.ExternalID).
		Msg("Published notification")
	return nil
}

// TrimStream trims the stream to the configured maximum length.
func (n *RedisNotifier) TrimStream() error {
	if err := n.client.XTrimMaxLen(n.ctx, n.stream, int64(n.maxLength)).Err(); err != nil {
		return apperrors.NewNotify("", "trim stream", err)
	}
	return nil
}

// Close closes the Redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
