package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidProduct = errors.New("invalid product")

type Service interface {
	CreateProduct(ctx context.Context, p *Product) (*Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, upd ProductUpdate) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	AddVariant(ctx context.Context, productID uuid.UUID, v *Variant) (*Variant, error)
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, upd VariantUpdate) (*Variant, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
}

type service struct {
	repo  Repository
	cache Cache
	group singleflight.Group
}

func NewService(repo Repository, cache Cache) Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &service{
		repo:  repo,
		cache: cache,
	}
}

func (s *service) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	for i := range p.Variants {
		if err := validateVariant(&p.Variants[i]); err != nil {
			return nil, err
		}
	}

	p.ID = uuid.Nil
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicateVariant) {
			return nil, ErrDuplicateVariant
		}
		log.Error().Err(err).Msg("service: failed to create product in repository")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Stringer("product_id", p.ID).Int("variants", len(p.Variants)).Msg("service: product created")
	return p, nil
}

func (s *service) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to fetch product")
		return nil, fmt.Errorf("service: failed to fetch product by id: %w", err)
	}
	return p, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, upd ProductUpdate) (*Product, error) {
	p, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.ClearSale {
		p.SalePrice = nil
	} else if upd.SalePrice != nil {
		sale := *upd.SalePrice
		p.SalePrice = &sale
	}
	if upd.IsActive != nil {
		p.IsActive = *upd.IsActive
	}
	if upd.ImageURLs != nil {
		p.ImageURLs = upd.ImageURLs
	}

	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	s.invalidate(ctx, id)
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrProductInUse) {
			return err
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *service) AddVariant(ctx context.Context, productID uuid.UUID, v *Variant) (*Variant, error) {
	if err := validateVariant(v); err != nil {
		return nil, err
	}

	v.ID = uuid.Nil
	v.ProductID = productID
	if err := s.repo.AddVariant(ctx, v); err != nil {
		if errors.Is(err, ErrDuplicateVariant) || errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("product_id", productID).Msg("service: failed to add variant")
		return nil, fmt.Errorf("service: failed to add variant: %w", err)
	}

	s.invalidate(ctx, productID)
	return v, nil
}

func (s *service) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, upd VariantUpdate) (*Variant, error) {
	if err := validateVariantUpdate(upd); err != nil {
		return nil, err
	}

	v, err := s.repo.UpdateVariant(ctx, productID, variantID, upd)
	if err != nil {
		if errors.Is(err, ErrVariantNotFound) {
			return nil, ErrVariantNotFound
		}
		log.Error().Err(err).Stringer("variant_id", variantID).Msg("service: failed to update variant")
		return nil, fmt.Errorf("service: failed to update variant: %w", err)
	}

	s.invalidate(ctx, productID)
	return v, nil
}

// FindProductByID serves the order workflow. Reads go through the cache and
// concurrent misses for the same product share one repository call.
func (s *service) FindProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	cached, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		log.Warn().Err(err).Stringer("product_id", id).Msg("service: product cache read failed")
	}
	if ok {
		return cached, nil
	}

	result, err, _ := s.group.Do(id.String(), func() (interface{}, error) {
		p, err := s.GetProductByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, p); err != nil {
			log.Warn().Err(err).Stringer("product_id", id).Msg("service: product cache write failed")
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	// singleflight hands the same pointer to every waiter; callers get their own copy.
	return clone(result.(*Product)), nil
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Stringer("product_id", id).Msg("service: product cache invalidation failed")
	}
}

func clone(p *Product) *Product {
	cp := *p
	cp.Variants = append([]Variant(nil), p.Variants...)
	cp.ImageURLs = append([]string(nil), p.ImageURLs...)
	return &cp
}

func validateProduct(p *Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if err := validatePrice("price", &p.Price); err != nil {
		return err
	}
	return validatePrice("sale price", p.SalePrice)
}

func validateVariant(v *Variant) error {
	if strings.TrimSpace(v.Size) == "" {
		return fmt.Errorf("%w: variant size is required", ErrInvalidProduct)
	}
	if strings.TrimSpace(v.Color) == "" {
		return fmt.Errorf("%w: variant color is required", ErrInvalidProduct)
	}
	if v.StockQuantity < 0 {
		return fmt.Errorf("%w: variant stock quantity must not be negative", ErrInvalidProduct)
	}
	return validatePrice("variant price", v.Price)
}

func validateVariantUpdate(upd VariantUpdate) error {
	if upd.StockQuantity != nil && *upd.StockQuantity < 0 {
		return fmt.Errorf("%w: variant stock quantity must not be negative", ErrInvalidProduct)
	}
	if upd.ClearPrice {
		return nil
	}
	return validatePrice("variant price", upd.Price)
}

// Prices are stored as NUMERIC(12,2); anything finer would be rounded silently.
func validatePrice(field string, price *decimal.Decimal) error {
	if price == nil {
		return nil
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidProduct, field)
	}
	if !price.Equal(price.Round(2)) {
		return fmt.Errorf("%w: %s must have at most 2 decimal places", ErrInvalidProduct, field)
	}
	return nil
}
