package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// Redis key prefix for document locks
	lockKeyPrefix = "wizesign:lock:document:"

	lockTTL       = 30 * time.Second
	lockWait      = 5 * time.Second
	lockRetryStep = 50 * time.Millisecond
)

// releaseScript deletes the lock only when still held by this owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DocumentLock serialises read-modify-write sequences on a single
// document across all service instances. Documents are independent units
// of concurrency, so locks are keyed per document id.
type DocumentLock struct {
	client *RedisClient
	logger *zap.Logger
}

func NewDocumentLock(client *RedisClient, logger *zap.Logger) *DocumentLock {
	return &DocumentLock{
		client: client,
		logger: logger,
	}
}

// WithLock runs fn while holding the mutex for documentID. Acquisition
// polls SET NX until lockWait elapses; the lock auto-expires at lockTTL
// so a crashed holder cannot wedge the document forever.
func (l *DocumentLock) WithLock(ctx context.Context, documentID string, fn func(ctx context.Context) error) error {
	key := lockKeyPrefix + documentID
	owner := uuid.NewString()

	deadline := time.Now().Add(lockWait)
	for {
		ok, err := l.client.Client.SetNX(ctx, key, owner, lockTTL).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire document lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for document lock: %s", documentID)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryStep):
		}
	}

	defer func() {
		if err := releaseScript.Run(context.WithoutCancel(ctx), l.client.Client, []string{key}, owner).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("Failed to release document lock",
				zap.String("document_id", documentID),
				zap.Error(err),
			)
		}
	}()

	return fn(ctx)
}
