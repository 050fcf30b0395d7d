package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bookstore-pricing/internal/domain/customer"
	"github.com/xenking/bookstore-pricing/internal/domain/discount"
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
// Wallets are hydrated from customer_discounts rows ordered by position, so
// the in-memory insertion order matches the stored one.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByUsername loads a customer with their wallet.
// Returns customer.ErrNotFound when absent.
func (r *CustomerRepository) GetByUsername(ctx context.Context, username string) (*customer.Customer, error) {
	c, err := r.scanCustomer(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := r.hydrateWallet(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List loads all customers with their wallets.
func (r *CustomerRepository) List(ctx context.Context) ([]*customer.Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT username, location, signup_date FROM customers ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	var customers []*customer.Customer
	for rows.Next() {
		c := &customer.Customer{}
		if err := rows.Scan(&c.Username, &c.Location, &c.SignupDate); err != nil {
			return nil, fmt.Errorf("scanning customer row: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating customer rows: %w", err)
	}

	for _, c := range customers {
		if err := r.hydrateWallet(ctx, c); err != nil {
			return nil, err
		}
	}
	return customers, nil
}

// SaveWallet replaces the stored wallet rows with the customer's current
// assignments in a single transaction.
func (r *CustomerRepository) SaveWallet(ctx context.Context, c *customer.Customer) error {
	assignments := c.Assignments()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning wallet transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM customer_discounts WHERE customer_username = $1`, c.Username); err != nil {
		return fmt.Errorf("clearing wallet for %q: %w", c.Username, err)
	}

	for i, a := range assignments {
		_, err := tx.Exec(ctx, `
			INSERT INTO customer_discounts
				(customer_username, position, template_id, kind,
				 valid_from, valid_until, percent_off, remaining, author, coupon_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.Username, i, a.TemplateID, string(a.Kind),
			a.ValidFrom, a.ValidUntil, a.PercentOff, a.Remaining,
			nullable(a.Author), nullable(a.CouponCode))
		if err != nil {
			return fmt.Errorf("inserting wallet row %d for %q: %w", i, c.Username, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing wallet for %q: %w", c.Username, err)
	}
	return nil
}

// Upsert inserts or replaces a customer record, leaving any existing wallet
// rows in place. Used by the ingest tool.
func (r *CustomerRepository) Upsert(ctx context.Context, c *customer.Customer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customers (username, location, signup_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE
		SET location = EXCLUDED.location, signup_date = EXCLUDED.signup_date`,
		c.Username, c.Location, c.SignupDate)
	if err != nil {
		return fmt.Errorf("upserting customer %q: %w", c.Username, err)
	}
	return nil
}

func (r *CustomerRepository) scanCustomer(ctx context.Context, username string) (*customer.Customer, error) {
	c := &customer.Customer{}
	err := r.pool.QueryRow(ctx,
		`SELECT username, location, signup_date FROM customers WHERE username = $1`, username,
	).Scan(&c.Username, &c.Location, &c.SignupDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(customer.ErrNotFound, "username %q", username)
		}
		return nil, fmt.Errorf("finding customer %q: %w", username, err)
	}
	return c, nil
}

func (r *CustomerRepository) hydrateWallet(ctx context.Context, c *customer.Customer) error {
	rows, err := r.pool.Query(ctx, `
		SELECT template_id, kind, valid_from, valid_until,
		       percent_off, remaining, COALESCE(author, ''), COALESCE(coupon_code, '')
		FROM customer_discounts
		WHERE customer_username = $1
		ORDER BY position`, c.Username)
	if err != nil {
		return fmt.Errorf("loading wallet for %q: %w", c.Username, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a    discount.Assignment
			kind string
		)
		if err := rows.Scan(&a.TemplateID, &kind, &a.ValidFrom, &a.ValidUntil,
			&a.PercentOff, &a.Remaining, &a.Author, &a.CouponCode); err != nil {
			return fmt.Errorf("scanning wallet row for %q: %w", c.Username, err)
		}
		a.Kind = discount.Kind(kind)
		c.Grant(&a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating wallet rows for %q: %w", c.Username, err)
	}
	return nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
