package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bookstore-pricing/internal/domain/discount"
)

// DiscountRepository persists discount templates. The serving path reads the
// whole table once at startup to hydrate the in-memory registry; writes come
// from the ingest tool.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// ListTemplates returns all stored discount templates ordered by id.
func (r *DiscountRepository) ListTemplates(ctx context.Context) ([]*discount.Template, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, valid_from, valid_until, percent_off, uses,
		       COALESCE(coupon_code, ''), COALESCE(author, '')
		FROM discount_templates
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing discount templates: %w", err)
	}
	defer rows.Close()

	var templates []*discount.Template
	for rows.Next() {
		var (
			t    discount.Template
			kind string
		)
		if err := rows.Scan(&t.ID, &kind, &t.ValidFrom, &t.ValidUntil,
			&t.PercentOff, &t.Uses, &t.CouponCode, &t.Author); err != nil {
			return nil, fmt.Errorf("scanning discount template row: %w", err)
		}
		t.Kind = discount.Kind(kind)
		templates = append(templates, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating discount template rows: %w", err)
	}
	return templates, nil
}

// UpsertTemplate inserts or replaces a discount template.
func (r *DiscountRepository) UpsertTemplate(ctx context.Context, t *discount.Template) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO discount_templates
			(id, kind, valid_from, valid_until, percent_off, uses, coupon_code, author)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET kind        = EXCLUDED.kind,
		    valid_from  = EXCLUDED.valid_from,
		    valid_until = EXCLUDED.valid_until,
		    percent_off = EXCLUDED.percent_off,
		    uses        = EXCLUDED.uses,
		    coupon_code = EXCLUDED.coupon_code,
		    author      = EXCLUDED.author`,
		t.ID, string(t.Kind), t.ValidFrom, t.ValidUntil, t.PercentOff, t.Uses,
		nullable(t.CouponCode), nullable(t.Author))
	if err != nil {
		return fmt.Errorf("upserting discount template %d: %w", t.ID, err)
	}
	return nil
}

// NextTemplateID returns one past the highest stored template id. The coupon
// ingest uses it to allocate ids for freshly discovered codes.
func (r *DiscountRepository) NextTemplateID(ctx context.Context) (int64, error) {
	var next int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM discount_templates`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("computing next template id: %w", err)
	}
	return next, nil
}
