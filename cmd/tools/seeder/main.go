package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

type seedProduct struct {
	SKU       string
	Name      string
	UnitPrice int64
	WeightKg  float64
}

var products = []seedProduct{
	{SKU: "LAMP-001", Name: "Desk Lamp", UnitPrice: 10000, WeightKg: 1.2},
	{SKU: "CHAIR-201", Name: "Office Chair", UnitPrice: 44900, WeightKg: 9.5},
	{SKU: "MUG-010", Name: "Ceramic Mug", UnitPrice: 1500, WeightKg: 0.4},
	{SKU: "DESK-405", Name: "Standing Desk", UnitPrice: 129900, WeightKg: 28.0},
	{SKU: "CABLE-550", Name: "USB-C Cable", UnitPrice: 1299, WeightKg: 0.1},
	{SKU: "MON-320", Name: "27in Monitor", UnitPrice: 32900, WeightKg: 5.4},
	{SKU: "KEYB-115", Name: "Mechanical Keyboard", UnitPrice: 8900, WeightKg: 1.1},
	{SKU: "PAD-077", Name: "Desk Pad", UnitPrice: 2500, WeightKg: 0.6},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (sku, name, unit_price, weight_kg, active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (sku) DO UPDATE
			SET name = EXCLUDED.name,
			    unit_price = EXCLUDED.unit_price,
			    weight_kg = EXCLUDED.weight_kg,
			    active = TRUE,
			    updated_at = now()`,
			p.SKU, p.Name, p.UnitPrice, p.WeightKg,
		)
		if err != nil {
			log.Fatalf("seed product %s: %v", p.SKU, err)
		}
	}

	log.Printf("seeded %d products", len(products))
}
