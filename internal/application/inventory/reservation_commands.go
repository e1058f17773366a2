package inventory

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/reservation"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/lock"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/saga"
)

// CreateReservation 为用户预约一本图书
//
// 持有user和book锁,在事务内依次执行:
//  1. 读取图书并实时统计用户有效预约数
//  2. 校验 配额 → 重复预约 → 可借副本
//  3. Saga: 扣减可借副本,写入预约记录;第二步失败时归还副本
func (c *Coordinator) CreateReservation(ctx context.Context, userID, bookID uint) (_ *reservation.Reservation, err error) {
	ctx, done := c.begin(ctx, opCreateReservation, zap.Uint("user_id", userID), zap.Uint("book_id", bookID))
	defer func() { done(err) }()

	if userID == 0 {
		return nil, apperrors.ErrInvalidParams.WithMessage("用户ID不能为空")
	}
	if bookID == 0 {
		return nil, apperrors.ErrInvalidParams.WithMessage("图书ID不能为空")
	}

	var created *reservation.Reservation
	err = c.withLocks(ctx, func() error {
		return c.tx.Transaction(ctx, func(ctx context.Context) error {
			b, err := c.books.FindByID(ctx, bookID)
			if err != nil {
				return err
			}

			active, err := c.reservations.CountActive(ctx, reservation.ActiveFilter{UserID: userID})
			if err != nil {
				return err
			}
			existing, err := c.reservations.FindActive(ctx, userID, bookID)
			if err != nil {
				return err
			}
			if err := c.policy.AdmitNewReservation(active, b.AvailableCopies, existing != nil); err != nil {
				return err
			}

			r := reservation.NewReservation(userID, bookID, b.Title, c.now(), c.policy.Duration)

			s := saga.NewSaga(0, saga.WithLogger(c.logger))
			s.AddStep("扣减可借副本",
				func(ctx context.Context) error {
					if err := b.Reserve(); err != nil {
						return err
					}
					return c.books.Update(ctx, b)
				},
				func(ctx context.Context) error {
					metrics.IncCounterVec(metrics.SagaCompensationsTotal, map[string]string{"operation": opCreateReservation})
					b.Release()
					return c.books.Update(ctx, b)
				},
			)
			s.AddStep("创建预约记录",
				func(ctx context.Context) error {
					return c.reservations.Create(ctx, r)
				},
				nil,
			)
			if err := s.Execute(ctx); err != nil {
				return err
			}

			created = r
			return nil
		})
	}, lock.UserKey(userID), lock.BookKey(bookID))
	if err != nil {
		return nil, err
	}

	c.publish(ctx, reservation.EventCreated, created)
	return created, nil
}

// UpdateReservationStatus 修改预约状态
//
// reserved → returned 时可借副本加一(不超过总数);
// 状态不变时不做任何写入;returned → reserved 被拒绝
func (c *Coordinator) UpdateReservationStatus(ctx context.Context, id uint, status string) (_ *reservation.Reservation, err error) {
	ctx, done := c.begin(ctx, opUpdateReservation, zap.Uint("reservation_id", id), zap.String("status", status))
	defer func() { done(err) }()

	target, err := reservation.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	// 先读取一次以确定需要锁定的图书
	current, err := c.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		updated  *reservation.Reservation
		released bool
	)
	err = c.withLocks(ctx, func() error {
		return c.tx.Transaction(ctx, func(ctx context.Context) error {
			r, err := c.reservations.FindByID(ctx, id)
			if err != nil {
				return err
			}

			released, err = r.TransitionTo(target, c.now())
			if err != nil {
				return err
			}
			if !released {
				updated = r
				return nil
			}

			steps, err := c.releaseCopySteps(ctx, r.BookID, opUpdateReservation)
			if err != nil {
				return err
			}
			steps.AddStep("更新预约状态",
				func(ctx context.Context) error {
					return c.reservations.UpdateStatus(ctx, r)
				},
				nil,
			)
			if err := steps.Execute(ctx); err != nil {
				return err
			}

			updated = r
			return nil
		})
	}, lock.BookKey(current.BookID))
	if err != nil {
		return nil, err
	}

	if released {
		c.publish(ctx, reservation.EventReturned, updated)
	}
	return updated, nil
}

// DeleteReservation 删除预约
// 有效预约会先归还副本;图书已不存在时直接删除记录
func (c *Coordinator) DeleteReservation(ctx context.Context, id uint) (err error) {
	ctx, done := c.begin(ctx, opDeleteReservation, zap.Uint("reservation_id", id))
	defer func() { done(err) }()

	current, err := c.reservations.FindByID(ctx, id)
	if err != nil {
		return err
	}

	var deleted *reservation.Reservation
	err = c.withLocks(ctx, func() error {
		return c.tx.Transaction(ctx, func(ctx context.Context) error {
			r, err := c.reservations.FindByID(ctx, id)
			if err != nil {
				return err
			}

			s := saga.NewSaga(0, saga.WithLogger(c.logger))
			if r.IsActive() {
				if s, err = c.releaseCopySteps(ctx, r.BookID, opDeleteReservation); err != nil {
					return err
				}
			}
			s.AddStep("删除预约记录",
				func(ctx context.Context) error {
					return c.reservations.Delete(ctx, r.ID)
				},
				nil,
			)
			if err := s.Execute(ctx); err != nil {
				return err
			}

			deleted = r
			return nil
		})
	}, lock.BookKey(current.BookID))
	if err != nil {
		return err
	}

	c.publish(ctx, reservation.EventDeleted, deleted)
	return nil
}

// releaseCopySteps 构造第一步为"归还副本"的Saga,补偿为重新占用
// 图书不存在时返回不含该步骤的Saga
func (c *Coordinator) releaseCopySteps(ctx context.Context, bookID uint, op string) (*saga.Saga, error) {
	s := saga.NewSaga(0, saga.WithLogger(c.logger))

	b, err := c.findBookOrNil(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		c.logger.Warn("book missing while releasing copy", zap.Uint("book_id", bookID), zap.String("op", op))
		return s, nil
	}

	before := b.AvailableCopies
	s.AddStep("归还可借副本",
		func(ctx context.Context) error {
			b.Release()
			return c.books.Update(ctx, b)
		},
		func(ctx context.Context) error {
			metrics.IncCounterVec(metrics.SagaCompensationsTotal, map[string]string{"operation": op})
			b.AvailableCopies = before
			return c.books.Update(ctx, b)
		},
	)
	return s, nil
}

// countActiveForBook 实时统计图书的有效预约数
func (c *Coordinator) countActiveForBook(ctx context.Context, bookID uint) (int, error) {
	return c.reservations.CountActive(ctx, reservation.ActiveFilter{BookID: bookID})
}
