// Package messaging 领域事件到RabbitMQ的适配
package messaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/domain/event"
	"github.com/xiebiao/bookstore-order/pkg/circuitbreaker"
	"github.com/xiebiao/bookstore-order/pkg/mq"
)

// Sender 消息发送，*mq.Publisher实现了它
type Sender interface {
	Publish(ctx context.Context, msg mq.Message) error
}

// EventPublisher 事件发布器
// 路由键即事件类型；MQ持续失败时熔断，快速失败，不拖慢已提交的业务请求
type EventPublisher struct {
	sender  Sender
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewEventPublisher 创建事件发布器
func NewEventPublisher(sender Sender, breaker *circuitbreaker.CircuitBreaker, log *zap.Logger) *EventPublisher {
	return &EventPublisher{sender: sender, breaker: breaker, logger: log}
}

var _ event.Publisher = (*EventPublisher)(nil)

// Publish 发布事件，消息体是整个Event（含event_id）
func (p *EventPublisher) Publish(ctx context.Context, e event.Event) error {
	msg := mq.Message{
		ID:         e.ID,
		RoutingKey: string(e.Type),
		Body:       e,
	}
	err := p.breaker.Execute(func() error {
		return p.sender.Publish(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("发布事件%s失败: %w", e.Type, err)
	}
	return nil
}
