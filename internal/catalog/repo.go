package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrProductNotFound is returned when a SKU does not resolve to an active product.
var ErrProductNotFound = errors.New("product not found")

// Product is a catalog entry. Prices are integer cents.
type Product struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unitPrice"`
	WeightKg  float64   `json:"weightKg"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repo provides product persistence on Postgres.
type Repo struct {
	Pool *pgxpool.Pool
}

var _ Store = Repo{}

const productColumns = `id, sku, name, unit_price, weight_kg, active, created_at, updated_at`

// List returns a page of active products ordered by SKU.
func (r Repo) List(ctx context.Context, limit, offset int) ([]Product, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE active ORDER BY sku LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Count returns the number of active products.
func (r Repo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.Pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE active`).Scan(&total)
	return total, err
}

// GetBySKU fetches a single active product.
func (r Repo) GetBySKU(ctx context.Context, sku string) (Product, error) {
	row := r.Pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE sku = $1 AND active`, sku)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

// GetBySKUs fetches the active products matching the provided SKUs, keyed by SKU.
func (r Repo) GetBySKUs(ctx context.Context, skus []string) (map[string]Product, error) {
	if len(skus) == 0 {
		return map[string]Product{}, nil
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE sku = ANY($1) AND active`, skus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]Product, len(skus))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		found[p.SKU] = p
	}
	return found, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.WeightKg, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
