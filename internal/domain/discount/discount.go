package discount

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount variants. The pricing phases dispatch
// on the kind tag, never on the presence of optional fields.
type Kind string

const (
	// KindGeneral applies to the order's running total.
	KindGeneral Kind = "general"
	// KindAuthor applies per line item whose book matches the scoped author.
	KindAuthor Kind = "author"
	// KindCoupon is a code-triggered discount. Once redeemed into a wallet it
	// behaves like a general discount.
	KindCoupon Kind = "coupon"
)

var (
	// ErrNotFound is returned when a discount id is not registered.
	ErrNotFound = errors.New("discount not found")
	// ErrInvalidCoupon is returned when a coupon code is unknown.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrNotCoupon is returned when author scoping is attempted on a
	// coupon template.
	ErrNotCoupon = errors.New("template is not a coupon discount")
)

// Template is the immutable definition of a discount as loaded from master
// data. Customers never hold templates directly: assignment rules clone a
// template into a per-customer Assignment, so one customer's usage cannot
// drain another's.
type Template struct {
	ID         int64
	Kind       Kind
	ValidFrom  time.Time
	ValidUntil time.Time
	PercentOff decimal.Decimal
	Uses       int
	CouponCode string
	Author     string
}

var one = decimal.NewFromInt(1)

// NewTemplate validates and builds a discount template. Invalid field values
// are a construction error, never clamped.
func NewTemplate(id int64, from, until time.Time, percentOff decimal.Decimal, uses int) (*Template, error) {
	if percentOff.IsNegative() || percentOff.GreaterThanOrEqual(one) {
		return nil, errors.Errorf("discount %d: percent off %s outside [0,1)", id, percentOff)
	}
	if uses < 0 {
		return nil, errors.Errorf("discount %d: negative usage count %d", id, uses)
	}
	if until.Before(from) {
		return nil, errors.Errorf("discount %d: validity window ends before it starts", id)
	}

	return &Template{
		ID:         id,
		Kind:       KindGeneral,
		ValidFrom:  from,
		ValidUntil: until,
		PercentOff: percentOff,
		Uses:       uses,
	}, nil
}

// NewCouponTemplate builds a code-triggered discount template.
func NewCouponTemplate(id int64, from, until time.Time, percentOff decimal.Decimal, uses int, code string) (*Template, error) {
	if code == "" {
		return nil, errors.Errorf("discount %d: empty coupon code", id)
	}
	t, err := NewTemplate(id, from, until, percentOff, uses)
	if err != nil {
		return nil, err
	}
	t.Kind = KindCoupon
	t.CouponCode = code
	return t, nil
}

// ScopeToAuthor permanently restricts the discount to line items by the given
// author. This is a discount-level configuration step, not a per-assignment
// parameter. Callers owning a shared template must synchronize; for registered
// templates, scope through Registry.ScopeToAuthor instead.
func (t *Template) ScopeToAuthor(author string) error {
	if t.Kind == KindCoupon {
		return errors.Wrapf(ErrNotCoupon, "discount %d", t.ID)
	}
	if author == "" {
		return errors.Errorf("discount %d: empty author scope", t.ID)
	}
	t.Kind = KindAuthor
	t.Author = author
	return nil
}

// ValidAt reports whether now falls inside the template's validity window.
// Both bounds are inclusive.
func (t *Template) ValidAt(now time.Time) bool {
	return !now.Before(t.ValidFrom) && !now.After(t.ValidUntil)
}

// Assign clones the template into an independent per-customer assignment with
// its own usage counter.
func (t *Template) Assign() *Assignment {
	return &Assignment{
		TemplateID: t.ID,
		Kind:       t.Kind,
		ValidFrom:  t.ValidFrom,
		ValidUntil: t.ValidUntil,
		PercentOff: t.PercentOff,
		Remaining:  t.Uses,
		Author:     t.Author,
		CouponCode: t.CouponCode,
	}
}

// Assignment is a discount held by a single customer. The pricing engine is
// the only mutator of Remaining; when it reaches zero the assignment is
// removed from the owning wallet and never re-added.
type Assignment struct {
	TemplateID int64
	Kind       Kind
	ValidFrom  time.Time
	ValidUntil time.Time
	PercentOff decimal.Decimal
	Remaining  int
	Author     string
	CouponCode string
}

// Clone returns an independent copy of the assignment with its own usage
// counter.
func (a *Assignment) Clone() *Assignment {
	c := *a
	return &c
}

// ValidAt reports whether now falls inside the assignment's validity window,
// bounds inclusive. Pure; expiry alone never consumes usage.
func (a *Assignment) ValidAt(now time.Time) bool {
	return !now.Before(a.ValidFrom) && !now.After(a.ValidUntil)
}

// Multiplier returns the factor applied to a price, i.e. 1 - percent off.
func (a *Assignment) Multiplier() decimal.Decimal {
	return one.Sub(a.PercentOff)
}

// Matches reports whether the assignment is author-scoped to the given author.
func (a *Assignment) Matches(author string) bool {
	return a.Kind == KindAuthor && a.Author == author
}
