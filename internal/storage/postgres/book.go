package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bookstore-pricing/internal/domain/book"
)

var _ book.Repository = (*BookRepository)(nil)

// BookRepository implements book.Repository backed by PostgreSQL.
type BookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository returns a BookRepository that uses the given pool.
func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

// List returns the whole catalog ordered by title.
func (r *BookRepository) List(ctx context.Context) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT title, author, unit_price FROM books ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

// GetByTitles fetches all books matching the given titles in a single query.
// Missing titles are not an error here; callers detect them by comparing the
// result set against the request.
func (r *BookRepository) GetByTitles(ctx context.Context, titles []string) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT title, author, unit_price FROM books WHERE title = ANY($1)`, titles)
	if err != nil {
		return nil, fmt.Errorf("listing books by titles: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

// ListByAuthor returns all books by the given author.
func (r *BookRepository) ListByAuthor(ctx context.Context, author string) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT title, author, unit_price FROM books WHERE author = $1 ORDER BY title`, author)
	if err != nil {
		return nil, fmt.Errorf("listing books by author %q: %w", author, err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

// Upsert inserts or replaces a catalog record. Used by the ingest tool.
func (r *BookRepository) Upsert(ctx context.Context, b book.Book) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO books (title, author, unit_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (title) DO UPDATE
		SET author = EXCLUDED.author, unit_price = EXCLUDED.unit_price`,
		b.Title, b.Author, b.UnitPrice)
	if err != nil {
		return fmt.Errorf("upserting book %q: %w", b.Title, err)
	}
	return nil
}

func scanBooks(rows pgx.Rows) ([]book.Book, error) {
	var books []book.Book
	for rows.Next() {
		var b book.Book
		if err := rows.Scan(&b.Title, &b.Author, &b.UnitPrice); err != nil {
			return nil, fmt.Errorf("scanning book row: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating book rows: %w", err)
	}
	return books, nil
}
