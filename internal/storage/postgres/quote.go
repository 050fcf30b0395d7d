package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookstore-pricing/internal/domain/pricing"
)

var _ pricing.QuoteRepository = (*QuoteRepository)(nil)

// QuoteRepository implements pricing.QuoteRepository backed by PostgreSQL.
type QuoteRepository struct {
	pool *pgxpool.Pool
}

// NewQuoteRepository returns a QuoteRepository that uses the given pool.
func NewQuoteRepository(pool *pgxpool.Pool) *QuoteRepository {
	return &QuoteRepository{pool: pool}
}

type quotedLineJSON struct {
	Title      string          `json:"title"`
	Author     string          `json:"author"`
	Quantity   int             `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	DiscountID int64           `json:"discount_id,omitempty"`
}

// Create persists a priced quote. Lines are serialized to JSON for storage in
// the JSONB column.
func (r *QuoteRepository) Create(ctx context.Context, q *pricing.Quote) error {
	lines := make([]quotedLineJSON, len(q.Lines))
	for i, l := range q.Lines {
		lines[i] = quotedLineJSON{
			Title:      l.Title,
			Author:     l.Author,
			Quantity:   l.Quantity,
			Subtotal:   l.Subtotal,
			DiscountID: l.DiscountID,
		}
	}
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshaling quote lines: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO quotes
			(id, username, lines, subtotal, shipping,
			 shipping_waived, shipping_unavailable, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.ID, q.Username, linesJSON, q.Subtotal, q.Shipping,
		q.ShippingWaived, q.ShippingUnavailable, q.Total, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating quote %q: %w", q.ID, err)
	}
	return nil
}
