package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/storefront/internal/catalog"
	"github.com/oakmart/storefront/internal/pricing"
)

type fakeStore struct {
	customer Customer
	created  *Order
	items    []Item
}

func (f *fakeStore) GetCustomer(ctx context.Context, userID string) (Customer, error) {
	return f.customer, nil
}

func (f *fakeStore) CreateWithItems(ctx context.Context, o Order, items []Item) (Order, error) {
	o.ID = "ord-1"
	o.CreatedAt = time.Now()
	o.Items = items
	f.created = &o
	f.items = items
	return o, nil
}

func (f *fakeStore) ListForUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	return nil, nil
}

func (f *fakeStore) CountForUser(ctx context.Context, userID string) (int, error) { return 0, nil }

func (f *fakeStore) GetForUser(ctx context.Context, userID, orderID string) (Order, error) {
	return Order{}, ErrOrderNotFound
}

type fakeResolver struct {
	lines []pricing.LineItem
}

func (f fakeResolver) ResolveLineItems(ctx context.Context, refs []catalog.ItemRef) ([]pricing.LineItem, error) {
	return f.lines, nil
}

type fakeReceipts struct {
	orderID string
	email   string
	err     error
}

func (f *fakeReceipts) EnqueueOrderReceipt(ctx context.Context, orderID, email string) error {
	f.orderID = orderID
	f.email = email
	return f.err
}

func newTestService(t *testing.T, store *fakeStore, resolver fakeResolver, receipts *fakeReceipts) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{
		Store:    store,
		Catalog:  resolver,
		Receipts: receipts,
		Currency: "USD",
		Log:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc
}

func TestCheckoutPersistsPricingSnapshot(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{customer: Customer{
		ID:    "usr-1",
		Email: "shopper@example.com",
		// Registered just over three years ago, so loyalty applies.
		CreatedAt: now.AddDate(-3, 0, -1),
	}}
	resolver := fakeResolver{lines: []pricing.LineItem{
		{SKU: "SKU-100", Name: "Desk Lamp", UnitPrice: 10000, Quantity: 3, WeightKg: 1.0},
	}}
	receipts := &fakeReceipts{}

	svc := newTestService(t, store, resolver, receipts)
	svc.Now = func() time.Time { return now }

	o, err := svc.Checkout(context.Background(), "usr-1", CheckoutInput{
		Items:          []catalog.ItemRef{{SKU: "SKU-100", Qty: 3}},
		ShippingMethod: pricing.MethodStandard,
	})
	require.NoError(t, err)

	// 30000 - 4500 bulk - 1275 loyalty = 24225, above the free shipping bar.
	require.Equal(t, pricing.Money(30000), o.OriginalTotal)
	require.Equal(t, pricing.Money(4500), o.BulkDiscountTotal)
	require.Equal(t, pricing.Money(1275), o.LoyaltyDiscount)
	require.Equal(t, pricing.Money(24225), o.FinalTotal)
	require.True(t, o.FreeShipping)
	require.Equal(t, pricing.Money(0), o.ShippingTotal)
	require.Equal(t, pricing.Money(24225), o.GrandTotal)
	require.Equal(t, StatusConfirmed, o.Status)
	require.Equal(t, "USD", o.Currency)

	require.Len(t, store.items, 1)
	require.Equal(t, pricing.Money(4500), store.items[0].BulkDiscount)

	require.Equal(t, "ord-1", receipts.orderID)
	require.Equal(t, "shopper@example.com", receipts.email)
}

func TestCheckoutReceiptFailureDoesNotFailOrder(t *testing.T) {
	store := &fakeStore{customer: Customer{ID: "usr-1", Email: "a@b.c", CreatedAt: time.Now()}}
	resolver := fakeResolver{lines: []pricing.LineItem{
		{SKU: "SKU-1", Name: "Mug", UnitPrice: 500, Quantity: 1, WeightKg: 0.3},
	}}
	receipts := &fakeReceipts{err: errors.New("broker down")}

	svc := newTestService(t, store, resolver, receipts)

	o, err := svc.Checkout(context.Background(), "usr-1", CheckoutInput{
		Items:          []catalog.ItemRef{{SKU: "SKU-1", Qty: 1}},
		ShippingMethod: pricing.MethodStandard,
	})
	require.NoError(t, err)
	require.Equal(t, "ord-1", o.ID)
}

func TestCheckoutRejectsEmptyItems(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, fakeResolver{}, nil)
	_, err := svc.Checkout(context.Background(), "usr-1", CheckoutInput{ShippingMethod: pricing.MethodStandard})
	require.ErrorIs(t, err, ErrEmptyCheckout)
}

func TestTenureYears(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name       string
		registered time.Time
		want       int
	}{
		{"brand new", now, 0},
		{"day before second anniversary", time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), 1},
		{"exactly two years", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), 2},
		{"just over three years", time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC), 3},
		{"registered in the future", now.AddDate(0, 1, 0), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tenureYears(tc.registered, now))
		})
	}
}
