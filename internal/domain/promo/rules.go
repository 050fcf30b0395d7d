// Package promo distributes discount templates into customer wallets.
//
// Each rule resolves its template from the registry first, so an unknown
// discount id fails before any customer is touched, and clones the template
// per matching customer. Rules never check the validity window: a discount may
// be assigned while dormant and simply not apply until its window opens.
package promo

import (
	"strings"
	"time"

	"github.com/xenking/bookstore-pricing/internal/domain/customer"
	"github.com/xenking/bookstore-pricing/internal/domain/discount"
)

const (
	// tenureDays is the minimum account age for the tenure rule.
	tenureDays = 365

	// Black Friday is pinned to November 24th of the current year.
	blackFridayMonth = time.November
	blackFridayDay   = 24
)

// Fixed discount ids consumed by RunAll.
const (
	TenureDiscountID   int64 = 1
	SeasonalDiscountID int64 = 2
)

// Distributor applies assignment rules over a set of customers using
// templates resolved from a registry.
type Distributor struct {
	registry *discount.Registry
	now      func() time.Time
}

// NewDistributor creates a Distributor backed by the given registry.
func NewDistributor(registry *discount.Registry) *Distributor {
	return &Distributor{registry: registry, now: time.Now}
}

// Tenure grants the discount to every customer whose account is at least a
// year old. Returns the number of grants made.
func (d *Distributor) Tenure(customers []*customer.Customer, discountID int64) (int, error) {
	proto, err := d.registry.Assign(discountID)
	if err != nil {
		return 0, err
	}

	today := d.now()
	granted := 0
	for _, c := range customers {
		if today.Sub(c.SignupDate) < tenureDays*24*time.Hour {
			continue
		}
		c.Grant(proto.Clone())
		granted++
	}
	return granted, nil
}

// Seasonal grants the discount to every customer, but only on Black Friday.
// On any other date it is a no-op.
func (d *Distributor) Seasonal(customers []*customer.Customer, discountID int64) (int, error) {
	proto, err := d.registry.Assign(discountID)
	if err != nil {
		return 0, err
	}

	today := d.now()
	if today.Month() != blackFridayMonth || today.Day() != blackFridayDay {
		return 0, nil
	}

	for _, c := range customers {
		c.Grant(proto.Clone())
	}
	return len(customers), nil
}

// ByLocation grants the discount to every customer whose location matches,
// case-insensitively.
func (d *Distributor) ByLocation(customers []*customer.Customer, discountID int64, location string) (int, error) {
	proto, err := d.registry.Assign(discountID)
	if err != nil {
		return 0, err
	}

	granted := 0
	for _, c := range customers {
		if !strings.EqualFold(c.Location, location) {
			continue
		}
		c.Grant(proto.Clone())
		granted++
	}
	return granted, nil
}

// ForAuthor scopes the discount template to the given author, then grants it
// to every customer regardless of location or tenure. Scoping happens under
// the registry lock, so concurrent rules on the same id never tear the
// template; subsequent assignments of the same id stay author-scoped.
func (d *Distributor) ForAuthor(customers []*customer.Customer, discountID int64, author string) (int, error) {
	scoped, err := d.registry.ScopeToAuthor(discountID, author)
	if err != nil {
		return 0, err
	}

	proto := scoped.Assign()
	for _, c := range customers {
		c.Grant(proto.Clone())
	}
	return len(customers), nil
}

// Template returns a copy of the registered template with the given id.
func (d *Distributor) Template(id int64) (discount.Template, error) {
	return d.registry.Snapshot(id)
}

// RunAll executes the standing rules in their fixed order: tenure with
// discount id 1, then seasonal with discount id 2.
func (d *Distributor) RunAll(customers []*customer.Customer) (int, error) {
	granted, err := d.Tenure(customers, TenureDiscountID)
	if err != nil {
		return granted, err
	}
	seasonal, err := d.Seasonal(customers, SeasonalDiscountID)
	return granted + seasonal, err
}

// Redeem grants the coupon template matching code to a single customer's
// wallet. Unknown codes return discount.ErrInvalidCoupon.
func (d *Distributor) Redeem(c *customer.Customer, code string) error {
	a, err := d.registry.AssignByCode(code)
	if err != nil {
		return err
	}
	c.Grant(a)
	return nil
}
