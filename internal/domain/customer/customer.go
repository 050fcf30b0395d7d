package customer

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/bookstore-pricing/internal/domain/discount"
)

var (
	// ErrNotFound is returned when a requested customer does not exist.
	ErrNotFound = errors.New("customer not found")
	// ErrNoOrder is returned when pricing is attempted before an order was placed.
	ErrNoOrder = errors.New("customer has no order placed")
)

// Customer is a store account holding a discount wallet and at most one live
// order. The wallet and the order reference are guarded by a mutex: all
// mutation goes through the owning Customer, giving each entity a
// single-writer discipline even when orders are priced concurrently.
type Customer struct {
	Username   string
	Location   string
	SignupDate time.Time

	mu     sync.Mutex
	wallet Wallet
	order  *Order
}

// New creates a customer with an empty wallet and no order.
func New(username, location string, signup time.Time) *Customer {
	return &Customer{
		Username:   username,
		Location:   location,
		SignupDate: signup,
	}
}

// Grant appends an assignment to the wallet. Duplicate grants of the same
// template are allowed; insertion order is preserved and significant for
// first-match selection.
func (c *Customer) Grant(a *discount.Assignment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallet.Grant(a)
}

// Assignments returns a snapshot of the wallet in insertion order.
func (c *Customer) Assignments() []*discount.Assignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wallet.snapshot()
}

// UpdateWallet runs fn with exclusive access to the wallet. The pricing engine
// uses it to apply and consume discounts atomically per customer.
func (c *Customer) UpdateWallet(fn func(w *Wallet)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.wallet)
}

// PlaceOrder attaches a new order to the customer, replacing any previous one.
func (c *Customer) PlaceOrder(lines []Line) *Order {
	o := &Order{
		Customer: c,
		Lines:    lines,
	}
	c.mu.Lock()
	c.order = o
	c.mu.Unlock()
	return o
}

// CurrentOrder returns the live order, or ErrNoOrder when none was placed.
func (c *Customer) CurrentOrder() (*Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.order == nil {
		return nil, errors.Wrapf(ErrNoOrder, "customer %s", c.Username)
	}
	return c.order, nil
}

// Repository defines persistence operations for customers and their wallets.
type Repository interface {
	GetByUsername(ctx context.Context, username string) (*Customer, error)
	List(ctx context.Context) ([]*Customer, error)
	// SaveWallet replaces the stored wallet with the customer's current one.
	SaveWallet(ctx context.Context, c *Customer) error
}
