package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/utils"
)

// A run lock is belt-and-braces on top of the database claim: it keeps two
// replicas from even starting the same user's sync. The TTL bounds how long
// a crashed run can hold the lock.
const runLockTTL = 30 * time.Minute

type RunLock interface {
	Acquire(ctx context.Context, userID uuid.UUID) (bool, error)
	Release(ctx context.Context, userID uuid.UUID) error
}

type runLock struct {
	log    *logger.Logger
	client *goredis.Client
}

// NewRunLock connects to the Redis instance named by REDIS_ADDR. An empty
// address disables the lock entirely; callers get (nil, nil) and should
// treat the lock as absent.
func NewRunLock(log *logger.Logger) (RunLock, error) {
	lockLog := log.With("client", "RunLock")

	addr := utils.GetEnv("REDIS_ADDR", "", lockLog)
	if addr == "" {
		return nil, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: utils.GetEnv("REDIS_PASSWORD", "", lockLog),
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}

	lockLog.Info("Connected sync run lock", "addr", addr)
	return &runLock{log: lockLog, client: client}, nil
}

func lockKey(userID uuid.UUID) string {
	return "gradebridge:sync:lock:" + userID.String()
}

func (rl *runLock) Acquire(ctx context.Context, userID uuid.UUID) (bool, error) {
	ok, err := rl.client.SetNX(ctx, lockKey(userID), time.Now().UTC().Format(time.RFC3339), runLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	return ok, nil
}

func (rl *runLock) Release(ctx context.Context, userID uuid.UUID) error {
	if err := rl.client.Del(ctx, lockKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	return nil
}
