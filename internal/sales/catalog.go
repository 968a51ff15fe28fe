package sales

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/elegance-atelier/sales-api/internal/redisx"
)

// Catalog is the authoritative product -> price mapping. The full map is
// small (one merchant), so reads go through a short-TTL redis cache of the
// whole thing and fall back to Postgres.
type Catalog struct {
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Logger *zap.Logger
}

// Prices resolves every name to its current price in cents. Names absent
// from the catalog are simply absent from the result; the caller decides
// whether that is fatal.
func (c *Catalog) Prices(ctx context.Context, names []string) (map[string]int, error) {
	all, err := c.priceMap(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(names))
	for _, n := range names {
		if p, ok := all[n]; ok {
			out[n] = p
		}
	}
	return out, nil
}

func (c *Catalog) priceMap(ctx context.Context) (map[string]int, error) {
	if c.Redis != nil {
		if s, err := c.Redis.Get(ctx, redisx.KeyCatalogPrices).Result(); err == nil && s != "" {
			m := map[string]int{}
			if err := json.Unmarshal([]byte(s), &m); err == nil {
				return m, nil
			}
			// poisoned cache entry, fall through to DB
		}
	}

	rows, err := c.DB.Query(ctx, `SELECT name, price_cents FROM products`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := map[string]int{}
	for rows.Next() {
		var name string
		var price int
		if err := rows.Scan(&name, &price); err != nil {
			return nil, err
		}
		m[name] = price
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if c.Redis != nil {
		b, _ := json.Marshal(m)
		if err := c.Redis.Set(ctx, redisx.KeyCatalogPrices, b, redisx.TTLCatalogCache).Err(); err != nil && c.Logger != nil {
			c.Logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return m, nil
}

func (c *Catalog) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := c.DB.Query(ctx, `SELECT id, name, price_cents, created_at, updated_at
	                              FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
