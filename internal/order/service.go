package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/happy-baby-style/internal/product"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentItemChecks = 8

// ProductFinder is the read side of the catalog the order workflow depends on.
type ProductFinder interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*product.Product, error)
}

type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, newStatus OrderStatus) (*Order, error)
}

type service struct {
	repo      Repository
	products  ProductFinder
	publisher EventPublisher
	now       func() time.Time
}

func NewService(repo Repository, products ProductFinder, publisher EventPublisher) Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &service{
		repo:      repo,
		products:  products,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if err := req.Validate(); err != nil {
		log.Warn().Err(err).Msg("service: rejected invalid order request")
		return nil, err
	}

	items, err := s.checkItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}

	o := &Order{
		Customer:        req.Customer,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		Items:           items,
		Total:           total,
		Status:          StatusPending,
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		if isDomainError(err) {
			log.Warn().Err(err).Msg("service: order rejected during persistence")
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Str("total", o.Total.StringFixed(2)).Int("items", len(o.Items)).Msg("service: order created")

	s.publish(ctx, Event{
		Type:       EventOrderCreated,
		OrderID:    o.ID,
		Status:     o.Status,
		Total:      o.Total,
		OccurredAt: s.now().UTC(),
	})

	return o, nil
}

// checkItems validates every requested item concurrently and prices it.
// When several items fail, the error of the first one in request order wins.
func (s *service) checkItems(ctx context.Context, reqs []ItemRequest) ([]OrderItem, error) {
	items := make([]OrderItem, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(maxConcurrentItemChecks)
	for i := range reqs {
		g.Go(func() error {
			items[i], errs[i] = s.checkItem(ctx, reqs[i])
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			log.Warn().Err(err).Int("item", i).Stringer("product_id", reqs[i].ProductID).Msg("service: order item rejected")
			return nil, err
		}
	}
	return items, nil
}

func (s *service) checkItem(ctx context.Context, req ItemRequest) (OrderItem, error) {
	p, err := s.products.FindProductByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			return OrderItem{}, &NotFoundError{ProductID: req.ProductID}
		}
		return OrderItem{}, fmt.Errorf("failed to look up product %s: %w", req.ProductID, err)
	}

	if !p.IsActive {
		return OrderItem{}, &InactiveProductError{ProductID: p.ID, Name: p.Name}
	}

	if total := p.TotalStock(); total < req.Quantity {
		return OrderItem{}, &InsufficientStockError{
			ProductID: p.ID,
			Available: total,
			Requested: req.Quantity,
		}
	}

	v, ok := p.FindVariant(req.Size, req.Color)
	if !ok {
		return OrderItem{}, &VariantNotFoundError{ProductID: p.ID, Size: req.Size, Color: req.Color}
	}

	if v.StockQuantity < req.Quantity {
		return OrderItem{}, &InsufficientStockError{
			ProductID: p.ID,
			VariantID: v.ID,
			Size:      v.Size,
			Color:     v.Color,
			Available: v.StockQuantity,
			Requested: req.Quantity,
		}
	}

	unit := v.EffectivePrice(p.Price)
	return OrderItem{
		ProductID: p.ID,
		VariantID: v.ID,
		Size:      v.Size,
		Color:     v.Color,
		Quantity:  req.Quantity,
		UnitPrice: unit,
		Subtotal:  unit.Mul(decimal.NewFromInt(int64(req.Quantity))),
	}, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Err(err).Stringer("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}

		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	return o, nil
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter) ([]Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", filter.Status)}
	}

	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders in repository")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}

	return orders, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, newStatus OrderStatus) (*Order, error) {
	if !newStatus.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", newStatus)}
	}

	current, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", id).Stringer("new_status", newStatus).Msg("service: order not found, cannot update status")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to get order for status update")
		return nil, fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	previous := current.Status
	if err := validateTransition(previous, newStatus); err != nil {
		log.Warn().
			Stringer("order_id", id).
			Stringer("current_status", previous).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return nil, err
	}

	updatedAt, err := s.repo.UpdateOrderStatus(ctx, id, previous, newStatus)
	if err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			log.Warn().Stringer("order_id", id).Stringer("expected_status", previous).Msg("service: order status changed concurrently")
			return nil, ErrConcurrentModification
		}
		log.Error().Err(err).Stringer("order_id", id).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	current.Status = newStatus
	current.UpdatedAt = updatedAt

	log.Info().Stringer("order_id", id).Stringer("old_status", previous).Stringer("new_status", newStatus).Msg("service: order status updated")

	s.publish(ctx, Event{
		Type:           EventOrderStatusChanged,
		OrderID:        id,
		Status:         newStatus,
		PreviousStatus: previous,
		Total:          current.Total,
		OccurredAt:     s.now().UTC(),
	})

	return current, nil
}

func (s *service) publish(ctx context.Context, event Event) {
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		log.Warn().Err(err).Stringer("order_id", event.OrderID).Str("event", string(event.Type)).Msg("service: failed to publish order event")
	}
}

func isDomainError(err error) bool {
	var (
		stockErr    *InsufficientStockError
		inactiveErr *InactiveVariantError
		productErr  *InactiveProductError
		variantErr  *VariantNotFoundError
	)
	return errors.As(err, &stockErr) ||
		errors.As(err, &inactiveErr) ||
		errors.As(err, &productErr) ||
		errors.As(err, &variantErr) ||
		errors.Is(err, ErrConcurrentModification)
}
