// Package inventory 库存与预约协调器
//
// 协调器是修改副本数与预约状态的唯一入口,负责在没有多文档事务的存储上维持:
//  1. 每本书 available = total - 有效预约数
//  2. 所有图书 total 之和 <= 馆藏上限
//  3. 每个用户有效预约数 <= 配额
//
// 并发模型:
//   - 按键加锁: stock(全局上限) / book:{id} / user:{id}
//   - 加锁顺序固定为 stock → book 和 user → book,不存在先持有book再申请其他键的路径
//   - 所有校验在任何写入之前完成;跨文档写入在Transactor内执行,并用Saga补偿兜底
package inventory

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/pkg/lock"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

const tracerName = "library/inventory"

// 操作名,用于指标、日志和Span
const (
	opCreateBook        = "create_book"
	opUpdateBook        = "update_book"
	opDeleteBook        = "delete_book"
	opCreateReservation = "create_reservation"
	opUpdateReservation = "update_reservation_status"
	opDeleteReservation = "delete_reservation"
	opReconcile         = "reconcile"
)

// Transactor 在同一个存储事务中执行fn
// 不支持事务的存储直接执行fn(memory.NoopTransactor)
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher 预约事件发布,失败不影响已完成的操作
type EventPublisher interface {
	Publish(ctx context.Context, event reservation.Event) error
}

// Options 业务规则参数
type Options struct {
	MaxBookStock          int
	MaxActiveReservations int
	ReservationDuration   time.Duration
	LockTimeout           time.Duration
}

// Coordinator 库存协调器
type Coordinator struct {
	books        book.Repository
	reservations reservation.Repository
	tx           Transactor
	locker       lock.Locker
	events       EventPublisher

	stock       book.StockPolicy
	policy      reservation.Policy
	lockTimeout time.Duration

	now    func() time.Time
	logger *zap.Logger
}

// NewCoordinator 创建库存协调器
func NewCoordinator(
	books book.Repository,
	reservations reservation.Repository,
	tx Transactor,
	locker lock.Locker,
	events EventPublisher,
	opts Options,
	logger *zap.Logger,
) *Coordinator {
	metrics.InitMetrics()

	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 3 * time.Second
	}

	return &Coordinator{
		books:        books,
		reservations: reservations,
		tx:           tx,
		locker:       instrumentedLocker{Locker: locker},
		events:       events,
		stock:        book.NewStockPolicy(opts.MaxBookStock),
		policy:       reservation.NewPolicy(opts.MaxActiveReservations, opts.ReservationDuration),
		lockTimeout:  opts.LockTimeout,
		now:          time.Now,
		logger:       logger.Named("inventory"),
	}
}

// withLocks 按顺序获取keys后执行fn,fn返回后释放
// 只有等待锁受lockTimeout限制,持锁后的操作使用原ctx
func (c *Coordinator) withLocks(ctx context.Context, fn func() error, keys ...string) error {
	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	unlock, err := lock.LockAll(lockCtx, c.locker, keys...)
	cancel()
	if err != nil {
		return err
	}
	defer unlock()

	return fn()
}

// begin 开始一个操作: 创建Span,返回的done记录指标与日志
func (c *Coordinator) begin(ctx context.Context, op string, fields ...zap.Field) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, "inventory."+op)

	return ctx, func(err error) {
		elapsed := time.Since(start)
		tracing.EndSpan(span, err)
		metrics.ObserveOperation(op, err, elapsed)

		fields = append(fields, zap.String("op", op), zap.Duration("elapsed", elapsed))
		switch metrics.ResultOf(err) {
		case metrics.ResultSuccess:
			c.logger.Info("operation succeeded", fields...)
		case metrics.ResultRejected:
			c.logger.Info("operation rejected", append(fields, zap.Error(err))...)
		default:
			c.logger.Error("operation failed", append(fields, zap.Error(err))...)
		}
	}
}

// publish 尽力发布事件,不受请求取消影响
func (c *Coordinator) publish(ctx context.Context, t reservation.EventType, r *reservation.Reservation) {
	if c.events == nil {
		return
	}
	_ = c.events.Publish(context.WithoutCancel(ctx), reservation.NewEvent(t, r, c.now()))
}

// instrumentedLocker 记录每个键的等待时间与超时
type instrumentedLocker struct {
	lock.Locker
}

func (l instrumentedLocker) Lock(ctx context.Context, key string) (lock.UnlockFunc, error) {
	start := time.Now()
	unlock, err := l.Locker.Lock(ctx, key)
	metrics.ObserveLockWait(lockScope(key), err, time.Since(start))
	return unlock, err
}

// lockScope book:12 → book
func lockScope(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
