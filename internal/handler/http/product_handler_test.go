package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	productHandler "github.com/vasiliy-maslov/happy-baby-style/internal/handler/http"
	"github.com/vasiliy-maslov/happy-baby-style/internal/product"
)

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) CreateProduct(ctx context.Context, p *product.Product) (*product.Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) GetProductByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) ListProducts(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *MockProductService) UpdateProduct(ctx context.Context, id uuid.UUID, upd product.ProductUpdate) (*product.Product, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductService) AddVariant(ctx context.Context, productID uuid.UUID, v *product.Variant) (*product.Variant, error) {
	args := m.Called(ctx, productID, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Variant), args.Error(1)
}

func (m *MockProductService) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, upd product.VariantUpdate) (*product.Variant, error) {
	args := m.Called(ctx, productID, variantID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Variant), args.Error(1)
}

func (m *MockProductService) FindProductByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func TestProductHandler_handleCreateProduct_Success(t *testing.T) {
	mockService := new(MockProductService)
	handler := productHandler.NewProductHandler(mockService)

	override := decimal.NewFromInt(90)
	inactive := false
	payload := productHandler.CreateProductRequest{
		Name:     "Cotton romper",
		Category: "rompers",
		Price:    decimal.NewFromInt(100),
		Variants: []productHandler.VariantRequest{
			{SKU: "ROMP-M-RED", Size: "M", Color: "red", StockQuantity: 3, Price: &override},
			{SKU: "ROMP-L-RED", Size: "L", Color: "red", StockQuantity: 0, IsActive: &inactive},
		},
	}

	created := &product.Product{ID: uuid.Must(uuid.NewV4()), Name: payload.Name, Price: payload.Price, IsActive: true}
	mockService.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *product.Product) bool {
		return p.Name == "Cotton romper" &&
			p.IsActive &&
			p.Price.Equal(decimal.NewFromInt(100)) &&
			len(p.Variants) == 2 &&
			p.Variants[0].IsActive &&
			p.Variants[0].Price != nil && p.Variants[0].Price.Equal(override) &&
			!p.Variants[1].IsActive &&
			p.Variants[1].Price == nil
	})).Return(created, nil).Once()

	rr := serve(t, handler, http.MethodPost, "/api/v1/products", payload)
	require.Equal(t, http.StatusCreated, rr.Code)

	var got product.Product
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, created.ID, got.ID)
	mockService.AssertExpectations(t)
}

func TestProductHandler_handleCreateProduct_Errors(t *testing.T) {
	t.Run("missing name and variant size", func(t *testing.T) {
		mockService := new(MockProductService)

		rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodPost, "/api/v1/products",
			productHandler.CreateProductRequest{
				Price:    decimal.NewFromInt(10),
				Variants: []productHandler.VariantRequest{{Color: "red", StockQuantity: -1}},
			})
		require.Equal(t, http.StatusBadRequest, rr.Code)

		body := decodeValidation(t, rr)
		assert.Equal(t, "is required", body.Details["name"])
		assert.Equal(t, "is required", body.Details["variants[0].size"])
		assert.Equal(t, "must be greater than or equal to 0", body.Details["variants[0].stock_quantity"])
		mockService.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	})

	t.Run("negative price rejected by service", func(t *testing.T) {
		mockService := new(MockProductService)
		mockService.On("CreateProduct", mock.Anything, mock.Anything).
			Return(nil, product.ErrInvalidProduct).Once()

		rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodPost, "/api/v1/products",
			productHandler.CreateProductRequest{Name: "Hat", Price: decimal.NewFromInt(-1)})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("duplicate variant", func(t *testing.T) {
		mockService := new(MockProductService)
		mockService.On("CreateProduct", mock.Anything, mock.Anything).
			Return(nil, product.ErrDuplicateVariant).Once()

		rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodPost, "/api/v1/products",
			productHandler.CreateProductRequest{Name: "Hat", Price: decimal.NewFromInt(5)})
		require.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, product.ErrDuplicateVariant.Error(), decodeError(t, rr))
	})
}

func TestProductHandler_handleListProducts(t *testing.T) {
	mockService := new(MockProductService)
	mockService.On("ListProducts", mock.Anything, product.ListFilter{ActiveOnly: true, Limit: 5, Offset: 0}).
		Return([]product.Product{{ID: uuid.Must(uuid.NewV4()), Name: "Hat"}}, nil).Once()

	rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodGet, "/api/v1/products?active_only=true&limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got []product.Product
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Hat", got[0].Name)
	mockService.AssertExpectations(t)
}

func TestProductHandler_handleGetProductByID(t *testing.T) {
	id := uuid.Must(uuid.NewV4())

	t.Run("success", func(t *testing.T) {
		mockService := new(MockProductService)
		mockService.On("GetProductByID", mock.Anything, id).Return(&product.Product{ID: id, Name: "Hat"}, nil).Once()

		rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodGet, "/api/v1/products/"+id.String(), nil)
		require.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockService := new(MockProductService)
		mockService.On("GetProductByID", mock.Anything, id).Return(nil, product.ErrProductNotFound).Once()

		rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodGet, "/api/v1/products/"+id.String(), nil)
		require.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, product.ErrProductNotFound.Error(), decodeError(t, rr))
	})
}

func TestProductHandler_handleUpdateProduct(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	mockService := new(MockProductService)

	mockService.On("UpdateProduct", mock.Anything, id, mock.MatchedBy(func(upd product.ProductUpdate) bool {
		return upd.Name != nil && *upd.Name == "Linen romper" &&
			upd.Price == nil &&
			upd.ClearSale &&
			upd.IsActive != nil && !*upd.IsActive
	})).Return(&product.Product{ID: id, Name: "Linen romper"}, nil).Once()

	rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodPut, "/api/v1/products/"+id.String(),
		`{"name":"Linen romper","clear_sale_price":true,"is_active":false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	mockService.AssertExpectations(t)
}

func TestProductHandler_handleDeleteProduct(t *testing.T) {
	id := uuid.Must(uuid.NewV4())

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "deleted", wantStatus: http.StatusNoContent},
		{name: "not found", err: product.ErrProductNotFound, wantStatus: http.StatusNotFound},
		{name: "referenced by orders", err: product.ErrProductInUse, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockProductService)
			mockService.On("DeleteProduct", mock.Anything, id).Return(tt.err).Once()

			rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodDelete, "/api/v1/products/"+id.String(), nil)
			assert.Equal(t, tt.wantStatus, rr.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestProductHandler_handleAddVariant(t *testing.T) {
	productID := uuid.Must(uuid.NewV4())
	mockService := new(MockProductService)

	created := &product.Variant{ID: uuid.Must(uuid.NewV4()), ProductID: productID, Size: "S", Color: "blue", StockQuantity: 4, IsActive: true}
	mockService.On("AddVariant", mock.Anything, productID, mock.MatchedBy(func(v *product.Variant) bool {
		return v.Size == "S" && v.Color == "blue" && v.StockQuantity == 4 && v.IsActive
	})).Return(created, nil).Once()

	rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodPost,
		"/api/v1/products/"+productID.String()+"/variants",
		productHandler.VariantRequest{Size: "S", Color: "blue", StockQuantity: 4})
	require.Equal(t, http.StatusCreated, rr.Code)

	var got product.Variant
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, created.ID, got.ID)
	mockService.AssertExpectations(t)
}

func TestProductHandler_handleUpdateVariant(t *testing.T) {
	productID := uuid.Must(uuid.NewV4())
	variantID := uuid.Must(uuid.NewV4())
	path := "/api/v1/products/" + productID.String() + "/variants/" + variantID.String()

	t.Run("restock", func(t *testing.T) {
		mockService := new(MockProductService)
		mockService.On("UpdateVariant", mock.Anything, productID, variantID, mock.MatchedBy(func(upd product.VariantUpdate) bool {
			return upd.StockQuantity != nil && *upd.StockQuantity == 12 && upd.Price == nil && !upd.ClearPrice
		})).Return(&product.Variant{ID: variantID, ProductID: productID, StockQuantity: 12}, nil).Once()

		rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodPut, path, `{"stock_quantity":12}`)
		require.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("negative stock", func(t *testing.T) {
		mockService := new(MockProductService)

		rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodPut, path, `{"stock_quantity":-2}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "must be greater than or equal to 0", decodeValidation(t, rr).Details["stock_quantity"])
	})

	t.Run("variant of another product", func(t *testing.T) {
		mockService := new(MockProductService)
		mockService.On("UpdateVariant", mock.Anything, productID, variantID, mock.Anything).
			Return(nil, product.ErrVariantNotFound).Once()

		rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodPut, path, `{"is_active":false}`)
		require.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("invalid variant id", func(t *testing.T) {
		mockService := new(MockProductService)

		rr := serve(t, productHandler.NewProductHandler(mockService), http.MethodPut,
			"/api/v1/products/"+productID.String()+"/variants/nope", `{"is_active":false}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid variantID parameter", decodeError(t, rr))
	})
}
