package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/happy-baby-style/internal/order"
)

const DefaultLowStockThreshold = 5

var ErrInvalidThreshold = errors.New("threshold must not be negative")

// statusOrder fixes the order of the summary rows.
var statusOrder = []order.OrderStatus{
	order.StatusPending,
	order.StatusConfirmed,
	order.StatusProcessing,
	order.StatusShipped,
	order.StatusDelivered,
	order.StatusCancelled,
}

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	LowStock(ctx context.Context, threshold int) ([]LowStockVariant, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Summary returns one row per known status, zero-filled, and the revenue of
// every order that was not cancelled.
func (s *service) Summary(ctx context.Context) (*Summary, error) {
	totals, err := s.repo.TotalsByStatus(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to load order totals")
		return nil, fmt.Errorf("service: failed to build summary: %w", err)
	}

	byStatus := make(map[order.OrderStatus]StatusTotal, len(totals))
	for _, t := range totals {
		byStatus[t.Status] = t
	}

	summary := &Summary{
		Revenue:  decimal.Zero,
		ByStatus: make([]StatusTotal, 0, len(statusOrder)),
	}
	for _, status := range statusOrder {
		t, ok := byStatus[status]
		if !ok {
			t = StatusTotal{Status: status, Total: decimal.Zero}
		}
		summary.ByStatus = append(summary.ByStatus, t)
		summary.Orders += t.Count
		if status != order.StatusCancelled {
			summary.Revenue = summary.Revenue.Add(t.Total)
		}
	}

	return summary, nil
}

func (s *service) LowStock(ctx context.Context, threshold int) ([]LowStockVariant, error) {
	if threshold < 0 {
		return nil, ErrInvalidThreshold
	}

	variants, err := s.repo.LowStock(ctx, threshold)
	if err != nil {
		log.Error().Err(err).Int("threshold", threshold).Msg("service: failed to load low stock variants")
		return nil, fmt.Errorf("service: failed to load low stock variants: %w", err)
	}

	return variants, nil
}
