package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/happy-baby-style/internal/order"
)

type CustomerRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty"`
}

type ShippingAddressRequest struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
	Size      string    `json:"size" validate:"required"`
	Color     string    `json:"color" validate:"required"`
}

type CreateOrderRequest struct {
	Customer        CustomerRequest        `json:"customer" validate:"required"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" validate:"required"`
	Notes           string                 `json:"notes,omitempty"`
	Items           []OrderItemRequest     `json:"items" validate:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handleCreateOrder)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{id}", h.handleGetOrderByID)
	router.Patch("/orders/{id}/status", h.handleUpdateOrderStatus)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var payload CreateOrderRequest
	if !decodeAndValidate(w, r, h.validate, &payload) {
		return
	}

	req := order.CreateOrderRequest{
		Customer: order.Customer{
			Name:  payload.Customer.Name,
			Email: payload.Customer.Email,
			Phone: payload.Customer.Phone,
		},
		ShippingAddress: order.ShippingAddress{
			Street:     payload.ShippingAddress.Street,
			City:       payload.ShippingAddress.City,
			State:      payload.ShippingAddress.State,
			PostalCode: payload.ShippingAddress.PostalCode,
			Country:    payload.ShippingAddress.Country,
		},
		Notes: payload.Notes,
		Items: make([]order.ItemRequest, 0, len(payload.Items)),
	}
	for _, item := range payload.Items {
		req.Items = append(req.Items, order.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
		})
	}

	created, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create order")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}

	orders, err := h.service.ListOrders(r.Context(), order.ListFilter{
		Status: order.OrderStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrderByID(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	found, err := h.service.GetOrderByID(r.Context(), orderID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, found)
}

func (h *OrderHandler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var payload UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, h.validate, &payload) {
		return
	}

	updated, err := h.service.UpdateOrderStatus(r.Context(), orderID, order.OrderStatus(payload.Status))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.FromString(raw)
	if err != nil {
		log.Warn().Err(err).Str(name, raw).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}
