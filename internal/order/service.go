package order

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/oakmart/storefront/internal/catalog"
	"github.com/oakmart/storefront/internal/pricing"
)

// StatusConfirmed is the only terminal status checkout produces; payment
// capture happens outside this service.
const StatusConfirmed = "CONFIRMED"

// ErrEmptyCheckout is returned when a checkout carries no items.
var ErrEmptyCheckout = errors.New("checkout requires at least one item")

type store interface {
	GetCustomer(ctx context.Context, userID string) (Customer, error)
	CreateWithItems(ctx context.Context, o Order, items []Item) (Order, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	CountForUser(ctx context.Context, userID string) (int, error)
	GetForUser(ctx context.Context, userID, orderID string) (Order, error)
}

type lineResolver interface {
	ResolveLineItems(ctx context.Context, refs []catalog.ItemRef) ([]pricing.LineItem, error)
}

type receiptEnqueuer interface {
	EnqueueOrderReceipt(ctx context.Context, orderID, email string) error
}

// Service turns a cart-style item list into a priced, persisted order.
type Service struct {
	Store    store
	Catalog  lineResolver
	Receipts receiptEnqueuer
	Currency string
	Log      zerolog.Logger
	Now      func() time.Time
}

type ServiceConfig struct {
	Store    store
	Catalog  lineResolver
	Receipts receiptEnqueuer
	Currency string
	Log      zerolog.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("order: store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("order: catalog resolver is required")
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &Service{
		Store:    cfg.Store,
		Catalog:  cfg.Catalog,
		Receipts: cfg.Receipts,
		Currency: cfg.Currency,
		Log:      cfg.Log,
		Now:      time.Now,
	}, nil
}

// CheckoutInput references catalog SKUs; unit prices and weights are always
// resolved server side so clients cannot price their own cart.
type CheckoutInput struct {
	Items          []catalog.ItemRef
	ShippingMethod pricing.ShippingMethod
}

// Checkout prices the referenced items for the user and persists the full
// breakdown. Loyalty tenure comes from the account age, not the request.
func (s *Service) Checkout(ctx context.Context, userID string, in CheckoutInput) (Order, error) {
	if len(in.Items) == 0 {
		return Order{}, ErrEmptyCheckout
	}

	cust, err := s.Store.GetCustomer(ctx, userID)
	if err != nil {
		return Order{}, err
	}
	lines, err := s.Catalog.ResolveLineItems(ctx, in.Items)
	if err != nil {
		return Order{}, err
	}

	result := pricing.Quote(lines, pricing.Customer{
		TenureYears: tenureYears(cust.CreatedAt, s.now()),
	}, in.ShippingMethod)

	items := make([]Item, 0, len(result.LineItems))
	for _, li := range result.LineItems {
		items = append(items, Item{
			SKU:          li.SKU,
			Name:         li.Name,
			UnitPrice:    li.UnitPrice,
			Quantity:     li.Quantity,
			LineTotal:    li.LineTotal,
			BulkDiscount: li.BulkDiscount,
		})
	}

	o, err := s.Store.CreateWithItems(ctx, Order{
		UserID:            userID,
		Status:            StatusConfirmed,
		Currency:          s.Currency,
		ShippingMethod:    string(result.Shipment.Method),
		OriginalTotal:     result.OriginalTotal,
		BulkDiscountTotal: result.BulkDiscountTotal,
		LoyaltyDiscount:   result.LoyaltyDiscount,
		TotalDiscount:     result.TotalDiscount,
		DiscountCapped:    result.IsDiscountCapped,
		FinalTotal:        result.FinalTotal,
		ShippingTotal:     result.Shipment.TotalShipping,
		FreeShipping:      result.Shipment.IsFreeShipping,
		GrandTotal:        result.GrandTotal,
	}, items)
	if err != nil {
		return Order{}, err
	}

	if s.Receipts != nil {
		if err := s.Receipts.EnqueueOrderReceipt(ctx, o.ID, cust.Email); err != nil {
			// The order is already committed; receipt delivery retries later.
			s.Log.Warn().Err(err).Str("order_id", o.ID).Msg("enqueue receipt failed")
		}
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Order, int, error) {
	orders, err := s.Store.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.CountForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *Service) Get(ctx context.Context, userID, orderID string) (Order, error) {
	return s.Store.GetForUser(ctx, userID, orderID)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// tenureYears counts full years between registration and now, honoring the
// anniversary date.
func tenureYears(registered, now time.Time) int {
	if now.Before(registered) {
		return 0
	}
	years := now.Year() - registered.Year()
	anniversary := registered.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years
}
