package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/lock"
)

// releaseScript 只有持有者(token一致)才能删除锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker 基于Redis的租约锁,多实例部署时替代进程内锁
// 设计说明:
// 1. SET key token NX PX ttl 抢锁,token使用UUID
// 2. 抢锁失败按retryDelay轮询,直到Context结束
// 3. 释放时用Lua脚本比较token,避免误删他人的锁
// 4. ttl兜底进程崩溃后锁无法释放的问题,必须远大于临界区耗时
type Locker struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewLocker 创建Redis锁
func NewLocker(client redis.UniversalClient, ttl, retryDelay time.Duration, logger *zap.Logger) *Locker {
	if retryDelay <= 0 {
		retryDelay = 20 * time.Millisecond
	}
	return &Locker{
		client:     client,
		prefix:     "library:lock:",
		ttl:        ttl,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Lock 实现lock.Locker
func (l *Locker) Lock(ctx context.Context, key string) (lock.UnlockFunc, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryDelay)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, lock.TimeoutError(ctx, key)
			}
			return nil, &apperrors.AppError{
				Code:    apperrors.ErrCodeRedisError,
				Kind:    apperrors.KindUnavailable,
				Message: "获取锁失败",
				Err:     err,
			}
		}
		if ok {
			return l.unlockFunc(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, lock.TimeoutError(ctx, key)
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlockFunc(redisKey, token string) lock.UnlockFunc {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
			if err != nil && !errors.Is(err, redis.Nil) {
				l.logger.Error("release redis lock failed", zap.String("key", redisKey), zap.Error(err))
				return
			}
			if n == 0 {
				l.logger.Warn("redis lock expired before release", zap.String("key", redisKey))
			}
		})
	}
}
