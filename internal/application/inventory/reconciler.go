package inventory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/pkg/lock"
	"github.com/xiebiao/library/pkg/metrics"
)

// ReconcileReport 一次对账的结果
type ReconcileReport struct {
	Checked   int
	Corrected int
}

// ReconcileOnce 逐本检查 available = total - 有效预约数,不一致时修正
// 每本书单独持有book锁并在独立事务中修正,单本失败不影响其余图书
func (c *Coordinator) ReconcileOnce(ctx context.Context) (report ReconcileReport, err error) {
	ctx, done := c.begin(ctx, opReconcile)
	defer func() {
		done(err)
		metrics.IncCounterVec(metrics.ReconcileRunsTotal, map[string]string{"result": metrics.ResultOf(err)})
	}()

	books, _, err := c.books.List(ctx, book.ListParams{})
	if err != nil {
		return report, err
	}

	var firstErr error
	for _, b := range books {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		corrected, err := c.reconcileBook(ctx, b.ID)
		if err != nil {
			c.logger.Warn("reconcile book failed", zap.Uint("book_id", b.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		report.Checked++
		if corrected {
			report.Corrected++
			metrics.ReconcileCorrectionsTotal.Inc()
		}
	}

	return report, firstErr
}

func (c *Coordinator) reconcileBook(ctx context.Context, id uint) (corrected bool, err error) {
	err = c.withLocks(ctx, func() error {
		return c.tx.Transaction(ctx, func(ctx context.Context) error {
			b, err := c.findBookOrNil(ctx, id)
			if err != nil || b == nil {
				return err
			}

			active, err := c.countActiveForBook(ctx, id)
			if err != nil {
				return err
			}

			want := b.TotalCopies - active
			if want < 0 {
				// 有效预约超过总数,只能人工处理
				c.logger.Error("active reservations exceed total copies",
					zap.Uint("book_id", id), zap.Int("total", b.TotalCopies), zap.Int("active", active))
				want = 0
			}
			if b.AvailableCopies == want {
				return nil
			}

			c.logger.Warn("available copies drifted",
				zap.Uint("book_id", id),
				zap.Int("available", b.AvailableCopies),
				zap.Int("expected", want),
			)
			b.AvailableCopies = want
			b.UpdatedAt = c.now()
			if err := c.books.Update(ctx, b); err != nil {
				return err
			}
			corrected = true
			return nil
		})
	}, lock.BookKey(id))
	return corrected, err
}

// Reconciler 定时对账任务
type Reconciler struct {
	coordinator *Coordinator
	interval    time.Duration
	logger      *zap.Logger
}

// NewReconciler 创建定时对账任务
func NewReconciler(coordinator *Coordinator, interval time.Duration, logger *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Reconciler{
		coordinator: coordinator,
		interval:    interval,
		logger:      logger.Named("reconciler"),
	}
}

// Run 阻塞运行,直到ctx结束;启动时先执行一次
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("reconciler started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		report, err := r.coordinator.ReconcileOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Warn("reconcile run finished with errors", zap.Error(err))
		} else if report.Corrected > 0 {
			r.logger.Info("reconcile corrected books",
				zap.Int("checked", report.Checked), zap.Int("corrected", report.Corrected))
		}

		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return nil
		case <-ticker.C:
		}
	}
}
