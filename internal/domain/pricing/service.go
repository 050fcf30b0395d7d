package pricing

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/bookstore-pricing/internal/domain/book"
	"github.com/xenking/bookstore-pricing/internal/domain/customer"
)

// LineRequest is a requested order position, referencing a book by title.
type LineRequest struct {
	Title    string
	Quantity int
}

// PriceOrderRequest holds the input for pricing a customer order.
type PriceOrderRequest struct {
	Username string
	Lines    []LineRequest
}

// Service orchestrates order pricing: it resolves the customer and books,
// places the order, runs the engine, and persists both the consumed wallet
// state and the resulting quote.
type Service struct {
	books     book.Repository
	customers customer.Repository
	quotes    QuoteRepository
	engine    *Engine
}

// NewService creates a pricing Service with the required dependencies.
func NewService(
	books book.Repository,
	customers customer.Repository,
	quotes QuoteRepository,
	engine *Engine,
) *Service {
	return &Service{
		books:     books,
		customers: customers,
		quotes:    quotes,
		engine:    engine,
	}
}

// PriceOrder resolves and validates the request, prices the order, and
// persists the outcome. Lookup failures surface before any order is created
// or any discount usage is consumed.
func (s *Service) PriceOrder(ctx context.Context, req PriceOrderRequest) (*Quote, error) {
	if len(req.Lines) == 0 {
		return nil, customer.ErrEmptyOrder
	}
	for _, l := range req.Lines {
		if l.Quantity <= 0 {
			return nil, errors.Wrapf(customer.ErrInvalidQuantity, "book %q", l.Title)
		}
	}

	c, err := s.customers.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, errors.Wrapf(err, "get customer %s", req.Username)
	}

	// Batch fetch all referenced books.
	titles := make([]string, len(req.Lines))
	for i, l := range req.Lines {
		titles[i] = l.Title
	}
	fetched, err := s.books.GetByTitles(ctx, titles)
	if err != nil {
		return nil, errors.Wrap(err, "get books")
	}
	byTitle := make(map[string]book.Book, len(fetched))
	for _, b := range fetched {
		byTitle[b.Title] = b
	}

	lines := make([]customer.Line, len(req.Lines))
	for i, l := range req.Lines {
		b, ok := byTitle[l.Title]
		if !ok {
			return nil, errors.Wrapf(book.ErrNotFound, "title %q", l.Title)
		}
		lines[i] = customer.Line{Book: b, Quantity: l.Quantity}
	}

	o := c.PlaceOrder(lines)

	q, err := s.engine.CalculateTotal(ctx, o)
	if err != nil {
		return nil, errors.Wrap(err, "calculate total")
	}

	// Usage consumption is permanent; persist the wallet before the quote so
	// a quote is never stored against unconsumed discounts.
	if err := s.customers.SaveWallet(ctx, c); err != nil {
		return nil, errors.Wrapf(err, "save wallet for %s", c.Username)
	}
	if err := s.quotes.Create(ctx, q); err != nil {
		return nil, errors.Wrap(err, "create quote")
	}

	return q, nil
}
