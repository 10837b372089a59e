package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakmart/storefront/internal/pricing"
)

// ErrOrderNotFound is returned when an order does not exist or belongs to another user.
var ErrOrderNotFound = errors.New("order not found")

// Order is the persisted pricing snapshot of a confirmed checkout.
type Order struct {
	ID                string        `json:"id"`
	UserID            string        `json:"-"`
	Status            string        `json:"status"`
	Currency          string        `json:"currency"`
	ShippingMethod    string        `json:"shippingMethod"`
	OriginalTotal     pricing.Money `json:"originalTotal"`
	BulkDiscountTotal pricing.Money `json:"bulkDiscountTotal"`
	LoyaltyDiscount   pricing.Money `json:"loyaltyDiscount"`
	TotalDiscount     pricing.Money `json:"totalDiscount"`
	DiscountCapped    bool          `json:"isDiscountCapped"`
	FinalTotal        pricing.Money `json:"finalTotal"`
	ShippingTotal     pricing.Money `json:"totalShipping"`
	FreeShipping      bool          `json:"isFreeShipping"`
	GrandTotal        pricing.Money `json:"grandTotal"`
	CreatedAt         time.Time     `json:"createdAt"`
	Items             []Item        `json:"items,omitempty"`
}

// Item is one priced order line, captured at checkout time.
type Item struct {
	SKU          string        `json:"sku"`
	Name         string        `json:"name"`
	UnitPrice    pricing.Money `json:"unitPrice"`
	Quantity     int           `json:"quantity"`
	LineTotal    pricing.Money `json:"lineTotal"`
	BulkDiscount pricing.Money `json:"bulkDiscount"`
}

// Customer carries the account fields checkout needs for pricing.
type Customer struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

type Repo struct {
	Pool *pgxpool.Pool
}

var _ store = Repo{}

func (r Repo) GetCustomer(ctx context.Context, userID string) (Customer, error) {
	var c Customer
	err := r.Pool.QueryRow(ctx,
		`SELECT id, email, created_at FROM users WHERE id = $1`,
		userID,
	).Scan(&c.ID, &c.Email, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrOrderNotFound
	}
	return c, err
}

// CreateWithItems inserts the order and all of its lines in one transaction.
func (r Repo) CreateWithItems(ctx context.Context, o Order, items []Item) (Order, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o.ID = uuid.NewString()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (
			id, user_id, status, currency, shipping_method,
			original_total, bulk_discount_total, loyalty_discount, total_discount, discount_capped,
			final_total, shipping_total, free_shipping, grand_total
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at`,
		o.ID, o.UserID, o.Status, o.Currency, o.ShippingMethod,
		o.OriginalTotal, o.BulkDiscountTotal, o.LoyaltyDiscount, o.TotalDiscount, o.DiscountCapped,
		o.FinalTotal, o.ShippingTotal, o.FreeShipping, o.GrandTotal,
	).Scan(&o.CreatedAt)
	if err != nil {
		return Order{}, err
	}

	for _, it := range items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, sku, name, unit_price, quantity, line_total, bulk_discount)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			uuid.NewString(), o.ID, it.SKU, it.Name, it.UnitPrice, it.Quantity, it.LineTotal, it.BulkDiscount,
		)
		if err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r Repo) ListForUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT id, user_id, status, currency, shipping_method,
		        original_total, bulk_discount_total, loyalty_discount, total_discount, discount_capped,
		        final_total, shipping_total, free_shipping, grand_total, created_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r Repo) CountForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// GetByID loads an order plus its items without owner scoping. Used by
// background workers.
func (r Repo) GetByID(ctx context.Context, orderID string) (Order, error) {
	row := r.Pool.QueryRow(ctx,
		`SELECT id, user_id, status, currency, shipping_method,
		        original_total, bulk_discount_total, loyalty_discount, total_discount, discount_capped,
		        final_total, shipping_total, free_shipping, grand_total, created_at
		 FROM orders
		 WHERE id = $1`,
		orderID,
	)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return Order{}, err
	}
	return o, nil
}

// GetForUser loads a single order plus its items, scoped to the owner.
func (r Repo) GetForUser(ctx context.Context, userID, orderID string) (Order, error) {
	row := r.Pool.QueryRow(ctx,
		`SELECT id, user_id, status, currency, shipping_method,
		        original_total, bulk_discount_total, loyalty_discount, total_discount, discount_capped,
		        final_total, shipping_total, free_shipping, grand_total, created_at
		 FROM orders
		 WHERE id = $1 AND user_id = $2`,
		orderID, userID,
	)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r Repo) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.Pool.Query(ctx,
		`SELECT sku, name, unit_price, quantity, line_total, bulk_discount
		 FROM order_items WHERE order_id = $1 ORDER BY sku`,
		o.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.SKU, &it.Name, &it.UnitPrice, &it.Quantity, &it.LineTotal, &it.BulkDiscount); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.Currency, &o.ShippingMethod,
		&o.OriginalTotal, &o.BulkDiscountTotal, &o.LoyaltyDiscount, &o.TotalDiscount, &o.DiscountCapped,
		&o.FinalTotal, &o.ShippingTotal, &o.FreeShipping, &o.GrandTotal, &o.CreatedAt,
	)
	return o, err
}
