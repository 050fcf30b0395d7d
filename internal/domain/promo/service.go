package promo

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/bookstore-pricing/internal/domain/customer"
	"github.com/xenking/bookstore-pricing/internal/domain/discount"
)

// TemplateStore persists discount template changes made by assignment rules.
type TemplateStore interface {
	UpsertTemplate(ctx context.Context, t *discount.Template) error
}

// Service runs assignment rules against the stored customer base and persists
// the resulting wallet grants.
type Service struct {
	customers customer.Repository
	templates TemplateStore
	dist      *Distributor
}

// NewService creates a promo Service.
func NewService(customers customer.Repository, templates TemplateStore, dist *Distributor) *Service {
	return &Service{customers: customers, templates: templates, dist: dist}
}

type ruleFunc func(customers []*customer.Customer) (int, error)

// run loads all customers, applies the rule, and saves every touched wallet.
// Rule resolution errors (unknown discount id) surface before any wallet is
// written, so a failed rule leaves no partial assignment behind.
func (s *Service) run(ctx context.Context, rule ruleFunc) (int, error) {
	all, err := s.customers.List(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list customers")
	}

	before := make(map[*customer.Customer]int, len(all))
	for _, c := range all {
		before[c] = len(c.Assignments())
	}

	granted, err := rule(all)
	if err != nil {
		return 0, err
	}

	for _, c := range all {
		if len(c.Assignments()) == before[c] {
			continue
		}
		if err := s.customers.SaveWallet(ctx, c); err != nil {
			return granted, errors.Wrapf(err, "save wallet for %s", c.Username)
		}
	}
	return granted, nil
}

// RunTenure applies the tenure rule with the given discount id.
func (s *Service) RunTenure(ctx context.Context, discountID int64) (int, error) {
	return s.run(ctx, func(all []*customer.Customer) (int, error) {
		return s.dist.Tenure(all, discountID)
	})
}

// RunSeasonal applies the Black Friday rule with the given discount id.
func (s *Service) RunSeasonal(ctx context.Context, discountID int64) (int, error) {
	return s.run(ctx, func(all []*customer.Customer) (int, error) {
		return s.dist.Seasonal(all, discountID)
	})
}

// RunLocation applies the location rule with the given discount id.
func (s *Service) RunLocation(ctx context.Context, discountID int64, location string) (int, error) {
	return s.run(ctx, func(all []*customer.Customer) (int, error) {
		return s.dist.ByLocation(all, discountID, location)
	})
}

// RunAuthor scopes the discount to an author and grants it to everyone. The
// scoped template is written back to the store, so the registry re-hydrates it
// author-scoped after a restart.
func (s *Service) RunAuthor(ctx context.Context, discountID int64, author string) (int, error) {
	granted, err := s.run(ctx, func(all []*customer.Customer) (int, error) {
		return s.dist.ForAuthor(all, discountID, author)
	})
	if err != nil {
		return granted, err
	}

	scoped, err := s.dist.Template(discountID)
	if err != nil {
		return granted, err
	}
	if err := s.templates.UpsertTemplate(ctx, &scoped); err != nil {
		return granted, errors.Wrapf(err, "persist scoped discount %d", discountID)
	}
	return granted, nil
}

// RunAll applies the standing rules in their fixed order.
func (s *Service) RunAll(ctx context.Context) (int, error) {
	return s.run(ctx, s.dist.RunAll)
}

// Redeem grants the coupon matching code to a single customer.
func (s *Service) Redeem(ctx context.Context, username, code string) error {
	c, err := s.customers.GetByUsername(ctx, username)
	if err != nil {
		return errors.Wrapf(err, "get customer %s", username)
	}
	if err := s.dist.Redeem(c, code); err != nil {
		return err
	}
	return errors.Wrapf(s.customers.SaveWallet(ctx, c), "save wallet for %s", username)
}
