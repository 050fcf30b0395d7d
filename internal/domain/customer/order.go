package customer

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookstore-pricing/internal/domain/book"
)

// Sentinel errors for order line validation.
var (
	ErrEmptyOrder      = errors.New("order lines required")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Line is a single order position: a catalog book and a quantity.
type Line struct {
	Book     book.Book
	Quantity int
}

// Subtotal returns unit price times quantity, before any discount.
func (l Line) Subtotal() decimal.Decimal {
	return l.Book.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is an ordered sequence of lines placed by a customer. The order does
// not own the customer; the customer owns at most one live order at a time.
type Order struct {
	Customer *Customer
	Lines    []Line
}

// ValidateLines checks that an order has at least one line and only positive
// quantities.
func ValidateLines(lines []Line) error {
	if len(lines) == 0 {
		return ErrEmptyOrder
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return errors.Wrapf(ErrInvalidQuantity, "book %q", l.Book.Title)
		}
	}
	return nil
}
