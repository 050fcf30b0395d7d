package pricing

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/bookstore-pricing/internal/domain/customer"
	"github.com/xenking/bookstore-pricing/internal/domain/discount"
	"github.com/xenking/bookstore-pricing/internal/shipping"
)

// freeShippingThreshold is the pre-shipping total above which (strictly) the
// shipping cost is waived.
var freeShippingThreshold = decimal.NewFromInt(50)

// Engine prices an order against its customer's discount wallet.
//
// Pricing consumes discount usage: each successful application decrements the
// assignment's remaining uses and removes it from the wallet at zero. Pricing
// the same order twice is therefore not idempotent; the second run sees the
// already-consumed wallet.
type Engine struct {
	shipping shipping.Provider
	origin   string
	now      func() time.Time
}

// NewEngine creates a pricing engine shipping from the given store location.
func NewEngine(provider shipping.Provider, origin string) *Engine {
	return &Engine{
		shipping: provider,
		origin:   origin,
		now:      time.Now,
	}
}

// CalculateTotal prices the order in two discount phases followed by shipping:
//
//  1. The wallet is partitioned into author-scoped and general assignments,
//     preserving insertion order. Validity is not checked here.
//  2. Per line, the first currently-valid author-scoped assignment matching
//     the book's author discounts that line; at most one per line. Usage is
//     consumed immediately, so an assignment exhausted on an earlier line is
//     gone for later lines of the same pass.
//  3. Each currently-valid general assignment multiplies the running total in
//     wallet order. Assignments outside their window are left untouched;
//     expiry alone never consumes usage. Assignments with no remaining uses
//     never apply, so Remaining cannot go negative.
//  4. The shipping provider is invoked; its cost is waived when the running
//     total strictly exceeds 50, and degrades to zero if the provider fails.
//
// The final amount is rounded to two decimals, half away from zero.
func (e *Engine) CalculateTotal(ctx context.Context, o *customer.Order) (*Quote, error) {
	if o == nil || o.Customer == nil {
		return nil, customer.ErrNoOrder
	}

	now := e.now()
	c := o.Customer

	var (
		total  decimal.Decimal
		quoted []QuotedLine
	)

	// Phases 1-3 run under the customer's wallet lock: usage consumption and
	// removal must not race with concurrent pricing runs or grants.
	c.UpdateWallet(func(w *customer.Wallet) {
		var authorScoped, general []*discount.Assignment
		for _, a := range w.All() {
			if a.Kind == discount.KindAuthor {
				authorScoped = append(authorScoped, a)
			} else {
				general = append(general, a)
			}
		}

		total = decimal.Zero
		quoted = make([]QuotedLine, 0, len(o.Lines))

		for _, line := range o.Lines {
			subtotal := line.Subtotal()
			var appliedID int64

			for i, a := range authorScoped {
				if a.Remaining <= 0 || !a.ValidAt(now) || !a.Matches(line.Book.Author) {
					continue
				}
				subtotal = subtotal.Mul(a.Multiplier())
				appliedID = a.TemplateID
				a.Remaining--
				if a.Remaining <= 0 {
					w.Remove(a)
					authorScoped = append(authorScoped[:i], authorScoped[i+1:]...)
				}
				break
			}

			total = total.Add(subtotal)
			quoted = append(quoted, QuotedLine{
				Title:      line.Book.Title,
				Author:     line.Book.Author,
				Quantity:   line.Quantity,
				Subtotal:   subtotal,
				DiscountID: appliedID,
			})
		}

		for _, a := range general {
			if a.Remaining <= 0 || !a.ValidAt(now) {
				continue
			}
			total = total.Mul(a.Multiplier())
			a.Remaining--
			if a.Remaining <= 0 {
				w.Remove(a)
			}
		}
	})

	// Shipping is the only external call; it stays outside the wallet lock.
	// The provider is invoked even when the waiver applies, since the waiver
	// discards the cost rather than skipping the lookup.
	shippingCost, unavailable := e.shippingCost(ctx, c.Location)

	waived := total.GreaterThan(freeShippingThreshold)
	if waived {
		shippingCost = decimal.Zero
	}

	return &Quote{
		ID:                  uuid.New().String(),
		Username:            c.Username,
		Lines:               quoted,
		Subtotal:            total,
		Shipping:            shippingCost,
		ShippingWaived:      waived,
		ShippingUnavailable: unavailable,
		Total:               total.Add(shippingCost).Round(2),
		CreatedAt:           now,
	}, nil
}

// shippingCost asks the provider for the cost between the store and the
// customer. Provider failures degrade to a zero cost; the quote carries the
// unavailability flag so callers can tell a waived cost from a missing one.
func (e *Engine) shippingCost(ctx context.Context, dest string) (decimal.Decimal, bool) {
	cost, err := e.shipping.Cost(ctx, e.origin, dest)
	if err != nil {
		zctx.From(ctx).Warn("Shipping cost unavailable, charging zero",
			zap.String("origin", e.origin),
			zap.String("destination", dest),
			zap.Error(err),
		)
		return decimal.Zero, true
	}
	return cost, false
}
