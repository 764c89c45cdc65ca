package order

import (
	"context"

	"github.com/gofrs/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/vasiliy-maslov/happy-baby-style/internal/order"

type tracingService struct {
	next   Service
	tracer trace.Tracer
}

// WithTracing wraps svc so that every operation runs in its own span.
func WithTracing(svc Service, tp trace.TracerProvider) Service {
	if tp == nil {
		tp = nooptrace.NewTracerProvider()
	}
	return &tracingService{next: svc, tracer: tp.Tracer(tracerName)}
}

func (s *tracingService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder",
		trace.WithAttributes(attribute.Int("order.items", len(req.Items))))
	defer span.End()

	o, err := s.next.CreateOrder(ctx, req)
	if err != nil {
		return nil, recordError(span, err)
	}
	span.SetAttributes(
		attribute.String("order.id", o.ID.String()),
		attribute.String("order.total", o.Total.StringFixed(2)),
	)
	return o, nil
}

func (s *tracingService) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrderByID",
		trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	o, err := s.next.GetOrderByID(ctx, id)
	if err != nil {
		return nil, recordError(span, err)
	}
	return o, nil
}

func (s *tracingService) ListOrders(ctx context.Context, filter ListFilter) ([]Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders",
		trace.WithAttributes(attribute.String("order.status_filter", string(filter.Status))))
	defer span.End()

	orders, err := s.next.ListOrders(ctx, filter)
	if err != nil {
		return nil, recordError(span, err)
	}
	span.SetAttributes(attribute.Int("order.count", len(orders)))
	return orders, nil
}

func (s *tracingService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, newStatus OrderStatus) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateOrderStatus",
		trace.WithAttributes(
			attribute.String("order.id", id.String()),
			attribute.String("order.new_status", string(newStatus)),
		))
	defer span.End()

	o, err := s.next.UpdateOrderStatus(ctx, id, newStatus)
	if err != nil {
		return nil, recordError(span, err)
	}
	return o, nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

var _ Service = (*tracingService)(nil)
