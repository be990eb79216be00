package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/domain/event"
	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/mq"
)

// Receiver 消息消费，*mq.Consumer实现了它
type Receiver interface {
	Consume(ctx context.Context, handler func(context.Context, mq.Delivery) error) error
}

// StockAlertConsumer 订阅stock.low，输出补货告警日志
type StockAlertConsumer struct {
	receiver Receiver
	logger   *zap.Logger
}

// NewStockAlertConsumer 创建低库存告警消费者
func NewStockAlertConsumer(receiver Receiver, log *zap.Logger) *StockAlertConsumer {
	return &StockAlertConsumer{receiver: receiver, logger: log}
}

// Run 阻塞直到ctx取消
func (c *StockAlertConsumer) Run(ctx context.Context) error {
	return c.receiver.Consume(ctx, c.Handle)
}

type stockLowMessage struct {
	ID      string                `json:"event_id"`
	Type    event.Type            `json:"type"`
	Payload event.StockLowPayload `json:"payload"`
}

// Handle 处理单条消息
// 格式错误的消息重新入队也无法处理，记录后直接确认
func (c *StockAlertConsumer) Handle(ctx context.Context, d mq.Delivery) error {
	if d.RoutingKey != string(event.StockLow) {
		return nil
	}

	var msg stockLowMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		logger.Error(ctx, c.logger, "malformed stock.low message dropped",
			zap.String("message_id", d.ID),
			zap.Error(fmt.Errorf("解析消息失败: %w", err)),
		)
		return nil
	}

	p := msg.Payload
	logger.Warn(ctx, c.logger, "low stock, replenishment needed",
		zap.String("event_id", msg.ID),
		zap.Uint("book_id", p.BookID),
		zap.Uint("warehouse_id", p.WarehouseID),
		zap.Int("quantity_on_hand", p.QuantityOnHand),
		zap.Int("threshold", p.Threshold),
	)
	return nil
}
