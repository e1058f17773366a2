// Package lock 提供按资源键互斥的锁
//
// 设计说明:
// 1. 同一个键互斥,不同键完全并行
// 2. 等待受Context控制,超时返回apperrors.ErrLockTimeout,不产生任何修改
// 3. 多个键必须按固定顺序获取(见Keys),释放顺序相反
package lock

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// StockKey 全局馆藏上限锁,所有修改副本总数的操作都需要持有
const StockKey = "stock"

// BookKey 单本图书的锁
func BookKey(id uint) string {
	return fmt.Sprintf("book:%d", id)
}

// UserKey 单个用户的锁(预约配额)
func UserKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// UnlockFunc 释放锁,重复调用无副作用
type UnlockFunc func()

// Locker 按键加锁
type Locker interface {
	// Lock 获取key的独占锁,阻塞直到成功或ctx结束
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}

// LockAll 按给定顺序依次获取多个锁,任一失败则释放已获取的锁
// 调用方负责保证顺序全局一致: stock → book, user → book
func LockAll(ctx context.Context, l Locker, keys ...string) (UnlockFunc, error) {
	unlocks := make([]UnlockFunc, 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, key := range keys {
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}

	return release, nil
}

// TimeoutError 将等待锁时的Context错误转换为LockTimeout
func TimeoutError(ctx context.Context, key string) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &apperrors.AppError{
			Code:    apperrors.ErrCodeLockTimeout,
			Kind:    apperrors.KindUnavailable,
			Message: apperrors.ErrLockTimeout.Message,
			Err:     fmt.Errorf("等待锁%s: %w", key, err),
		}
	}
	return apperrors.ErrLockTimeout
}
