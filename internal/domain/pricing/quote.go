package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the priced result of a customer's order. Amounts are rounded to
// two decimal places, half away from zero.
type Quote struct {
	ID       string
	Username string
	Lines    []QuotedLine
	// Subtotal is the pre-shipping total after all discounts.
	Subtotal decimal.Decimal
	// Shipping is the amount actually charged: zero when waived or when the
	// provider was unavailable.
	Shipping decimal.Decimal
	// ShippingWaived reports that the free-shipping threshold was crossed.
	ShippingWaived bool
	// ShippingUnavailable reports that the provider could not compute a cost
	// and the calculation silently fell back to zero.
	ShippingUnavailable bool
	Total               decimal.Decimal
	CreatedAt           time.Time
}

// QuotedLine is a single order line after per-line discounting.
type QuotedLine struct {
	Title    string
	Author   string
	Quantity int
	// Subtotal is unit price times quantity with any line discount applied.
	Subtotal decimal.Decimal
	// DiscountID is the template id of the applied author-scoped discount,
	// or zero when the line was priced undiscounted.
	DiscountID int64
}

// QuoteRepository defines persistence operations for priced quotes.
type QuoteRepository interface {
	Create(ctx context.Context, q *Quote) error
}
