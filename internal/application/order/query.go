package order

import (
	"context"
	"time"

	"github.com/xiebiao/bookstore-order/internal/domain/order"
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

// OrderList 订单分页结果
type OrderList struct {
	List     []*order.Order
	Total    int64
	Page     int
	PageSize int
}

// GetOrder 查询订单详情
// userID不是订单所有者时返回ErrOrderNotFound，不暴露订单是否存在
func (s *Service) GetOrder(ctx context.Context, orderID, userID uint) (*order.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != SystemUser && !o.IsOwnedBy(userID) {
		return nil, order.ErrOrderNotFound.Withf("订单%d", orderID)
	}
	return o, nil
}

// ListUserOrders 用户订单列表，status为nil时返回全部状态
func (s *Service) ListUserOrders(ctx context.Context, userID uint, status *order.Status, page, pageSize int) (*OrderList, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	orders, total, err := s.orderRepo.ListByUserID(ctx, userID, status, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &OrderList{List: orders, Total: total, Page: page, PageSize: pageSize}, nil
}

// RevenueByDateRange 已完成订单的实付金额合计，按完成时间统计 [from, to)
func (s *Service) RevenueByDateRange(ctx context.Context, from, to time.Time) (int64, error) {
	if !from.Before(to) {
		return 0, apperrors.ErrInvalidDateRange
	}
	return s.orderRepo.SumRevenue(ctx, from, to)
}

// CountByStatus 按状态统计订单数，结果包含每一个状态（没有订单的为0）
func (s *Service) CountByStatus(ctx context.Context, from, to *time.Time) (map[order.Status]int64, error) {
	if from != nil && to != nil && !from.Before(*to) {
		return nil, apperrors.ErrInvalidDateRange
	}

	counts, err := s.orderRepo.CountByStatus(ctx, from, to)
	if err != nil {
		return nil, err
	}

	result := make(map[order.Status]int64, len(order.AllStatuses))
	for _, st := range order.AllStatuses {
		result[st] = counts[st]
	}
	return result, nil
}
