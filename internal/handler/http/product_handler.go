package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/happy-baby-style/internal/product"
)

type VariantRequest struct {
	SKU           string           `json:"sku"`
	Size          string           `json:"size" validate:"required"`
	Color         string           `json:"color" validate:"required"`
	StockQuantity int              `json:"stock_quantity" validate:"gte=0"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

type CreateProductRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
	ImageURLs   []string         `json:"image_urls" validate:"omitempty,dive,url"`
	Variants    []VariantRequest `json:"variants" validate:"dive"`
}

type UpdateProductRequest struct {
	Name           *string          `json:"name,omitempty" validate:"omitempty,min=1"`
	Description    *string          `json:"description,omitempty"`
	Category       *string          `json:"category,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	SalePrice      *decimal.Decimal `json:"sale_price,omitempty"`
	ClearSalePrice bool             `json:"clear_sale_price,omitempty"`
	IsActive       *bool            `json:"is_active,omitempty"`
	ImageURLs      []string         `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
}

type UpdateVariantRequest struct {
	SKU           *string          `json:"sku,omitempty"`
	StockQuantity *int             `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	ClearPrice    bool             `json:"clear_price,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

type ProductHandler struct {
	service  product.Service
	validate *validator.Validate
}

func NewProductHandler(service product.Service) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router) {
	router.Post("/products", h.handleCreateProduct)
	router.Get("/products", h.handleListProducts)
	router.Get("/products/{id}", h.handleGetProductByID)
	router.Put("/products/{id}", h.handleUpdateProduct)
	router.Delete("/products/{id}", h.handleDeleteProduct)
	router.Post("/products/{id}/variants", h.handleAddVariant)
	router.Put("/products/{id}/variants/{variantID}", h.handleUpdateVariant)
}

func (h *ProductHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload CreateProductRequest
	if !decodeAndValidate(w, r, h.validate, &payload) {
		return
	}

	p := &product.Product{
		Name:        payload.Name,
		Description: payload.Description,
		Category:    payload.Category,
		Price:       payload.Price,
		SalePrice:   payload.SalePrice,
		IsActive:    boolOr(payload.IsActive, true),
		ImageURLs:   payload.ImageURLs,
		Variants:    make([]product.Variant, 0, len(payload.Variants)),
	}
	for _, v := range payload.Variants {
		p.Variants = append(p.Variants, variantFromRequest(v))
	}

	created, err := h.service.CreateProduct(r.Context(), p)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create product")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list products")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list products")
		return
	}

	products, err := h.service.ListProducts(r.Context(), product.ListFilter{
		ActiveOnly: r.URL.Query().Get("active_only") == "true",
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to list products")
		return
	}

	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleGetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	found, err := h.service.GetProductByID(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}

	respondWithJSON(w, http.StatusOK, found)
}

func (h *ProductHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var payload UpdateProductRequest
	if !decodeAndValidate(w, r, h.validate, &payload) {
		return
	}

	updated, err := h.service.UpdateProduct(r.Context(), productID, product.ProductUpdate{
		Name:        payload.Name,
		Description: payload.Description,
		Category:    payload.Category,
		Price:       payload.Price,
		SalePrice:   payload.SalePrice,
		ClearSale:   payload.ClearSalePrice,
		IsActive:    payload.IsActive,
		ImageURLs:   payload.ImageURLs,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update product")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), productID); err != nil {
		respondWithServiceError(w, err, "Failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) handleAddVariant(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var payload VariantRequest
	if !decodeAndValidate(w, r, h.validate, &payload) {
		return
	}

	v := variantFromRequest(payload)
	created, err := h.service.AddVariant(r.Context(), productID, &v)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add variant")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) handleUpdateVariant(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	variantID, ok := parseIDParam(w, r, "variantID")
	if !ok {
		return
	}

	var payload UpdateVariantRequest
	if !decodeAndValidate(w, r, h.validate, &payload) {
		return
	}

	updated, err := h.service.UpdateVariant(r.Context(), productID, variantID, product.VariantUpdate{
		SKU:           payload.SKU,
		StockQuantity: payload.StockQuantity,
		Price:         payload.Price,
		ClearPrice:    payload.ClearPrice,
		IsActive:      payload.IsActive,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update variant")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func variantFromRequest(v VariantRequest) product.Variant {
	return product.Variant{
		SKU:           v.SKU,
		Size:          v.Size,
		Color:         v.Color,
		StockQuantity: v.StockQuantity,
		Price:         v.Price,
		IsActive:      boolOr(v.IsActive, true),
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
