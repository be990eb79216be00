package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiebiao/bookstore-order/internal/domain/event"
	"github.com/xiebiao/bookstore-order/pkg/circuitbreaker"
	"github.com/xiebiao/bookstore-order/pkg/mq"
)

type fakeSender struct {
	err  error
	sent []mq.Message
}

func (f *fakeSender) Publish(_ context.Context, msg mq.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newBreaker(failures uint32) *circuitbreaker.CircuitBreaker {
	cfg := circuitbreaker.DefaultConfig()
	cfg.ConsecutiveFailures = failures
	cfg.Timeout = time.Minute
	return circuitbreaker.New("test-mq", cfg, zap.NewNop())
}

func TestEventPublisher_RoutesByEventType(t *testing.T) {
	sender := &fakeSender{}
	p := NewEventPublisher(sender, newBreaker(3), zap.NewNop())

	e := event.New(event.OrderPaid, event.OrderPayload{OrderID: 7, OrderNo: "ORD1", Status: "PAID"})
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "order.paid", sender.sent[0].RoutingKey)
	assert.Equal(t, e.ID, sender.sent[0].ID)

	body, err := json.Marshal(sender.sent[0].Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"event_id":"`+e.ID+`"`)
	assert.Contains(t, string(body), `"order_no":"ORD1"`)
}

func TestEventPublisher_BreakerOpensAfterFailures(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection reset")}
	p := NewEventPublisher(sender, newBreaker(2), zap.NewNop())
	ctx := context.Background()
	e := event.New(event.StockLow, event.StockLowPayload{BookID: 1})

	require.Error(t, p.Publish(ctx, e))
	require.Error(t, p.Publish(ctx, e))

	sender.err = nil
	err := p.Publish(ctx, e)
	require.Error(t, err)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpenState)
	assert.Empty(t, sender.sent, "熔断期间不再调用MQ")
}

func TestStockAlertConsumer_Handle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewStockAlertConsumer(nil, zap.New(core))

	e := event.New(event.StockLow, event.StockLowPayload{BookID: 3, WarehouseID: 1, QuantityOnHand: 2, Threshold: 5})
	body, err := json.Marshal(e)
	require.NoError(t, err)

	require.NoError(t, c.Handle(context.Background(), mq.Delivery{ID: e.ID, RoutingKey: "stock.low", Body: body}))
	entries := logs.FilterMessage("low stock, replenishment needed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(3), entries[0].ContextMap()["book_id"])
}

func TestStockAlertConsumer_IgnoresOtherAndMalformed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewStockAlertConsumer(nil, zap.New(core))
	ctx := context.Background()

	assert.NoError(t, c.Handle(ctx, mq.Delivery{RoutingKey: "order.paid", Body: []byte(`{}`)}))
	assert.Equal(t, 0, logs.Len())

	assert.NoError(t, c.Handle(ctx, mq.Delivery{ID: "x", RoutingKey: "stock.low", Body: []byte(`not json`)}))
	assert.Equal(t, 1, logs.FilterMessage("malformed stock.low message dropped").Len())
}
