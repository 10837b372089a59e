package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/oakmart/storefront/internal/pricing"
)

// Store abstracts product persistence so tests can substitute fakes.
type Store interface {
	List(ctx context.Context, limit, offset int) ([]Product, error)
	Count(ctx context.Context) (int64, error)
	GetBySKU(ctx context.Context, sku string) (Product, error)
	GetBySKUs(ctx context.Context, skus []string) (map[string]Product, error)
}

// ServiceConfig configures a catalog service.
type ServiceConfig struct {
	Store        Store
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// Service serves catalog reads through an optional read-through cache.
type Service struct {
	store        Store
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// NewService constructs a catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, defaultLimit: defaultLimit, maxLimit: maxLimit}, nil
}

// DefaultLimit exposes the configured page size.
func (s *Service) DefaultLimit() int { return s.defaultLimit }

// MaxLimit exposes the configured page size ceiling.
func (s *Service) MaxLimit() int { return s.maxLimit }

type listPayload struct {
	Products []Product `json:"products"`
	Total    int64     `json:"total"`
}

// List returns one page of products plus the total count.
func (s *Service) List(ctx context.Context, page, limit int) ([]Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	key := fmt.Sprintf("catalog:list:%d:%d", page, limit)
	var cached listPayload
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached.Products, cached.Total, nil
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	products, err := s.store.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	_ = s.cache.SetJSON(ctx, key, listPayload{Products: products, Total: total})
	return products, total, nil
}

// GetBySKU fetches a single product, serving repeat lookups from cache.
func (s *Service) GetBySKU(ctx context.Context, sku string) (Product, error) {
	key := "catalog:sku:" + sku
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	product, err := s.store.GetBySKU(ctx, sku)
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.SetJSON(ctx, key, product)
	return product, nil
}

// ItemRef names a product and quantity to be priced.
type ItemRef struct {
	SKU string
	Qty int
}

// ResolveLineItems maps SKU references onto catalog products, producing
// engine line items with trusted prices and weights. Unknown SKUs surface as
// ErrProductNotFound wrapped with the offending SKU.
func (s *Service) ResolveLineItems(ctx context.Context, refs []ItemRef) ([]pricing.LineItem, error) {
	skus := make([]string, 0, len(refs))
	for _, ref := range refs {
		skus = append(skus, ref.SKU)
	}
	found, err := s.store.GetBySKUs(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}
	items := make([]pricing.LineItem, 0, len(refs))
	for _, ref := range refs {
		product, ok := found[ref.SKU]
		if !ok {
			return nil, fmt.Errorf("sku %s: %w", ref.SKU, ErrProductNotFound)
		}
		items = append(items, pricing.LineItem{
			SKU:       product.SKU,
			Name:      product.Name,
			UnitPrice: product.UnitPrice,
			Quantity:  ref.Qty,
			WeightKg:  product.WeightKg,
		})
	}
	return items, nil
}
