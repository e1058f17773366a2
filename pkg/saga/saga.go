// Package saga 实现按序执行、失败逆序补偿的多步写入
//
// 核心思想:
// 1. 将一个跨文档的写操作拆分为多个单文档写入
// 2. 每个写入有对应的补偿操作
// 3. 某步失败时,按逆序执行已完成步骤的补偿
//
// 补偿使用context.WithoutCancel派生的Context:
// 保留调用方的事务/追踪信息,但不受超时或取消影响
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step 表示Saga中的一个步骤
// Action和Compensate都必须支持幂等
type Step struct {
	Name       string                          // 步骤名称(用于日志)
	Action     func(ctx context.Context) error // 正向操作
	Compensate func(ctx context.Context) error // 补偿操作,可为nil
}

// Saga 表示一次多步写入
type Saga struct {
	steps    []Step
	executed []Step
	timeout  time.Duration
	logger   *zap.Logger
}

// Option Saga配置项
type Option func(*Saga)

// WithLogger 设置补偿失败时使用的日志
func WithLogger(logger *zap.Logger) Option {
	return func(s *Saga) {
		s.logger = logger
	}
}

// NewSaga 创建一个新的Saga
//
// 示例:
//
//	s := saga.NewSaga(5*time.Second, saga.WithLogger(logger))
//	s.AddStep("扣减可借副本", reserveCopy, releaseCopy)
//	s.AddStep("创建预约记录", createReservation, deleteReservation)
//	err := s.Execute(ctx)
func NewSaga(timeout time.Duration, opts ...Option) *Saga {
	s := &Saga{
		steps:   make([]Step, 0, 2),
		timeout: timeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddStep 添加一个步骤,按添加顺序执行,按逆序补偿
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// Execute 执行所有步骤
// 任一步骤失败或超时时执行补偿,返回值包装原始错误(可用errors.Is判断);
// 补偿失败的错误会通过errors.Join一并返回
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return errors.Join(fmt.Errorf("saga超时: %w", err), s.compensate(ctx))
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				return errors.Join(fmt.Errorf("步骤[%d:%s]执行失败: %w", i, step.Name, err), s.compensate(ctx))
			}
		}

		s.executed = append(s.executed, step)
	}

	s.executed = nil
	return nil
}

// compensate 逆序执行已完成步骤的补偿
// 某个补偿失败时继续执行其余补偿
func (s *Saga) compensate(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("saga compensation failed",
				zap.String("step", step.Name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("补偿[%s]失败: %w", step.Name, err))
		}
	}

	s.executed = nil
	return errors.Join(errs...)
}
