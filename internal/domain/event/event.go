package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type 事件类型，同时用作消息路由键
type Type string

const (
	OrderCreated   Type = "order.created"
	OrderPaid      Type = "order.paid"
	OrderShipped   Type = "order.shipped"
	OrderCompleted Type = "order.completed"
	OrderCancelled Type = "order.cancelled"
	StockLow       Type = "stock.low"
)

// Event 领域事件
// 事务提交后发布，发布失败只记录日志，不影响已提交的业务结果
type Event struct {
	ID         string      `json:"event_id"` // 消费者据此去重
	Type       Type        `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// New 创建事件
func New(t Type, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now(),
		Payload:    payload,
	}
}

// OrderPayload 订单事件内容
type OrderPayload struct {
	OrderID     uint   `json:"order_id"`
	OrderNo     string `json:"order_no"`
	UserID      uint   `json:"user_id"`
	Status      string `json:"status"`
	FinalAmount int64  `json:"final_amount"`
	Reason      string `json:"reason,omitempty"`
}

// StockLowPayload 低库存事件内容
type StockLowPayload struct {
	BookID         uint `json:"book_id"`
	WarehouseID    uint `json:"warehouse_id"`
	QuantityOnHand int  `json:"quantity_on_hand"`
	Threshold      int  `json:"threshold"`
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher 不发布任何事件（消息队列未启用时使用）
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
