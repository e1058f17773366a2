// Package messaging 将预约领域事件发布到RabbitMQ
package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/metrics"
)

// Broker 消息发布能力(pkg/mq.Publisher实现)
type Broker interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
	Exchange() string
}

// ReservationEventPublisher 预约事件发布器
// 设计说明:
// 1. 发布失败只记录日志和指标,不影响已提交的库存操作
// 2. 熔断器打开时直接丢弃事件,避免每个请求都等待Broker超时
// 3. 每次发布有独立超时
type ReservationEventPublisher struct {
	broker  Broker
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

// NewReservationEventPublisher 创建预约事件发布器
func NewReservationEventPublisher(broker Broker, logger *zap.Logger) *ReservationEventPublisher {
	metrics.InitMetrics()

	breaker := circuitbreaker.NewCircuitBreaker("mq-publisher", circuitbreaker.Config{
		Timeout: 30 * time.Second,
	})
	breaker.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state changed",
			zap.String("name", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})

	return &ReservationEventPublisher{
		broker:  broker,
		breaker: breaker,
		timeout: 3 * time.Second,
		logger:  logger,
	}
}

// Publish 发布事件
func (p *ReservationEventPublisher) Publish(ctx context.Context, event reservation.Event) error {
	routingKey := string(event.Type)

	err := p.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.broker.Publish(ctx, routingKey, event)
	})

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
		p.logger.Warn("publish reservation event failed",
			zap.String("routing_key", routingKey),
			zap.Uint("reservation_id", event.ReservationID),
			zap.Error(err),
		)
	}
	metrics.IncCounterVec(metrics.MessagesPublishedTotal, map[string]string{
		"exchange":    p.broker.Exchange(),
		"routing_key": routingKey,
		"result":      result,
	})
	return err
}

// NoopPublisher mq.enabled=false时使用,丢弃所有事件
type NoopPublisher struct{}

// Publish 实现inventory.EventPublisher
func (NoopPublisher) Publish(context.Context, reservation.Event) error {
	return nil
}
