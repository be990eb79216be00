package inventory

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/domain/reservation"
	"github.com/xiebiao/bookstore-order/internal/domain/stock"
	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/metrics"
	"github.com/xiebiao/bookstore-order/pkg/tracing"
)

// Line 订单行的库存需求
type Line struct {
	BookID      uint
	WarehouseID uint
	Quantity    int
}

// ReserveForOrder 为订单的每一行预留库存并写入ACTIVE预留记录
// 同一库存行的多行需求合并后加锁，库存行按(book, warehouse)升序加锁。
// 加入调用方事务：任意一行失败，整个订单都不会产生预留。
func (s *Service) ReserveForOrder(ctx context.Context, orderID uint, lines []Line, expiresAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "InventoryService.ReserveForOrder")
	defer span.End()
	span.SetAttributes(attribute.Int("order_id", int(orderID)), attribute.Int("lines", len(lines)))

	totals := make(map[stock.Key]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return stock.ErrInvalidQuantity.Withf("订单%d 图书%d 数量%d", orderID, l.BookID, l.Quantity)
		}
		totals[key(l.BookID, l.WarehouseID)] += l.Quantity
	}

	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		for _, k := range sortedKeys(totals) {
			if _, _, err := s.applyLocked(ctx, change{
				key:      k,
				mutation: stock.Mutation{Op: stock.OpReserve, Quantity: totals[k]},
			}); err != nil {
				return err
			}
		}

		rows := make([]*reservation.Reservation, 0, len(lines))
		for _, l := range lines {
			r := reservation.New(orderID, l.BookID, l.WarehouseID, l.Quantity, expiresAt)
			r.CreatedAt, r.UpdatedAt = s.now(), s.now()
			rows = append(rows, r)
		}
		return s.reservationRepo.CreateBatch(ctx, rows)
	})
	metrics.RecordStockMutation("reserve_order", err)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	return nil
}

// ReleaseForOrder 释放订单全部ACTIVE预留（取消、超时）
// 没有ACTIVE预留时什么都不做
func (s *Service) ReleaseForOrder(ctx context.Context, orderID uint) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "InventoryService.ReleaseForOrder")
	defer span.End()
	span.SetAttributes(attribute.Int("order_id", int(orderID)))

	var released int
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		rows, err := s.reservationRepo.ListActiveByOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		released = len(rows)
		return s.settle(ctx, rows, stock.OpRelease, "", func(r *reservation.Reservation) error {
			return r.Release(s.now())
		})
	})
	metrics.RecordStockMutation("release_order", err)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	if released > 0 {
		logger.Debug(ctx, s.logger, "order reservations released",
			zap.Uint("order_id", orderID), zap.Int("rows", released))
	}
	return nil
}

// ConfirmForOrder 订单支付后把全部ACTIVE预留转为出库
// referenceID写入OUTBOUND流水（订单号）
// 没有ACTIVE预留返回reservation.ErrNotActive，防止重复确认和未预留直接出库
func (s *Service) ConfirmForOrder(ctx context.Context, orderID uint, referenceID string) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "InventoryService.ConfirmForOrder")
	defer span.End()
	span.SetAttributes(attribute.Int("order_id", int(orderID)))

	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		rows, err := s.reservationRepo.ListActiveByOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return reservation.ErrNotActive.Withf("订单%d 没有待确认的预留", orderID)
		}
		return s.settle(ctx, rows, stock.OpConfirmSale, referenceID, func(r *reservation.Reservation) error {
			return r.Confirm(s.now())
		})
	})
	metrics.RecordStockMutation("confirm_order", err)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	return nil
}

// settle 按库存行合并预留数量，排序后加锁变更，再保存预留状态
func (s *Service) settle(ctx context.Context, rows []*reservation.Reservation, op stock.Operation, referenceID string, mark func(*reservation.Reservation) error) error {
	if len(rows) == 0 {
		return nil
	}

	totals := make(map[stock.Key]int, len(rows))
	for _, r := range rows {
		totals[key(r.BookID, r.WarehouseID)] += r.Quantity
	}

	note := "释放预留"
	if op == stock.OpConfirmSale {
		note = "订单支付出库"
	}
	for _, k := range sortedKeys(totals) {
		if _, _, err := s.applyLocked(ctx, change{
			key:         k,
			mutation:    stock.Mutation{Op: op, Quantity: totals[k]},
			referenceID: optional(referenceID),
			note:        note,
		}); err != nil {
			return err
		}
	}

	for _, r := range rows {
		if err := mark(r); err != nil {
			return err
		}
	}
	return s.reservationRepo.UpdateStatus(ctx, rows)
}

// ListExpiredOrders 存在过期ACTIVE预留的订单ID，exclude中的订单不返回
func (s *Service) ListExpiredOrders(ctx context.Context, now time.Time, exclude []uint, limit int) ([]uint, error) {
	return s.reservationRepo.ListExpiredOrderIDs(ctx, now, exclude, limit)
}
