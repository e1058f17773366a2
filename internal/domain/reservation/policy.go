package reservation

import (
	"time"

	"github.com/xiebiao/library/internal/domain/book"
)

// DefaultMaxActive 每个用户默认最多同时持有的有效预约数
const DefaultMaxActive = 3

// Policy 预约资格策略
// 纯函数,计数由调用方在持锁状态下从存储中实时统计
type Policy struct {
	MaxActivePerUser int
	Duration         time.Duration
}

// NewPolicy 创建预约策略,非法参数回退到默认值
func NewPolicy(maxActivePerUser int, duration time.Duration) Policy {
	if maxActivePerUser <= 0 {
		maxActivePerUser = DefaultMaxActive
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return Policy{MaxActivePerUser: maxActivePerUser, Duration: duration}
}

// AdmitNewReservation 判断用户能否预约该图书
// 检查顺序: 配额 → 重复预约 → 可借副本
func (p Policy) AdmitNewReservation(activeForUser, bookAvailable int, alreadyHolds bool) error {
	if activeForUser >= p.MaxActivePerUser {
		return ErrTooManyReservations.WithMessage("最多同时预约%d本图书", p.MaxActivePerUser)
	}
	if alreadyHolds {
		return ErrDuplicateReservation
	}
	if bookAvailable <= 0 {
		return book.ErrBookUnavailable
	}
	return nil
}

// AdmitStockReduction 判断副本总数能否调整为proposedTotal
func (p Policy) AdmitStockReduction(proposedTotal, activeForBook int) error {
	if proposedTotal < activeForBook {
		return ErrBelowReservedFloor.WithMessage("副本总数不能少于未归还的预约数(%d)", activeForBook)
	}
	return nil
}
