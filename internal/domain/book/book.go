package book

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested book does not exist.
var ErrNotFound = errors.New("book not found")

// Book is an immutable catalog record. Titles are unique within the catalog
// and serve as the lookup key.
type Book struct {
	Title     string
	Author    string
	UnitPrice decimal.Decimal
}

// Repository defines read operations for the book catalog.
type Repository interface {
	List(ctx context.Context) ([]Book, error)
	GetByTitles(ctx context.Context, titles []string) ([]Book, error)
	ListByAuthor(ctx context.Context, author string) ([]Book, error)
}
