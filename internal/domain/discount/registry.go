package discount

import (
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// bloom filter sizing for the coupon-code prescreen. Marketing code dumps can
// run into the millions, so unknown codes are rejected without touching the
// template map in the common case.
const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

// Registry holds the known discount templates, addressable by id and, for
// coupon discounts, by code. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byID   map[int64]*Template
	byCode map[string]*Template
	codes  *bloom.BloomFilter
}

// NewRegistry builds a registry from the given templates.
func NewRegistry(templates ...*Template) (*Registry, error) {
	r := &Registry{
		byID:   make(map[int64]*Template, len(templates)),
		byCode: make(map[string]*Template),
		codes:  bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}
	for _, t := range templates {
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers a template. Ids must be unique; coupon codes are
// case-insensitive and must be unique among coupon templates.
func (r *Registry) Add(t *Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[t.ID]; ok {
		return errors.Errorf("duplicate discount id %d", t.ID)
	}
	r.byID[t.ID] = t

	if t.Kind == KindCoupon {
		code := normalizeCode(t.CouponCode)
		if _, ok := r.byCode[code]; ok {
			return errors.Errorf("duplicate coupon code %q", t.CouponCode)
		}
		r.byCode[code] = t
		r.codes.AddString(code)
	}
	return nil
}

// Assign clones the template with the given id into a fresh per-customer
// assignment. The clone is taken under the registry lock, so a concurrent
// ScopeToAuthor can never be observed half-applied.
func (r *Registry) Assign(id int64) (*Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "discount %d", id)
	}
	return t.Assign(), nil
}

// AssignByCode clones the coupon template matching code into a fresh
// assignment. The bloom filter prescreens definitely-unknown codes before the
// map lookup.
func (r *Registry) AssignByCode(code string) (*Assignment, error) {
	normalized := normalizeCode(code)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.codes.TestString(normalized) {
		return nil, errors.Wrapf(ErrInvalidCoupon, "code %q", code)
	}
	t, ok := r.byCode[normalized]
	if !ok {
		// Bloom false positive.
		return nil, errors.Wrapf(ErrInvalidCoupon, "code %q", code)
	}
	return t.Assign(), nil
}

// ScopeToAuthor restricts the registered template with the given id to the
// author's line items. The mutation happens under the registry's write lock;
// every later Assign of the same id hands out author-scoped clones. Returns a
// copy of the scoped template for persistence.
func (r *Registry) ScopeToAuthor(id int64, author string) (Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return Template{}, errors.Wrapf(ErrNotFound, "discount %d", id)
	}
	if err := t.ScopeToAuthor(author); err != nil {
		return Template{}, err
	}
	return *t, nil
}

// Snapshot returns a copy of the template with the given id.
func (r *Registry) Snapshot(id int64) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return Template{}, errors.Wrapf(ErrNotFound, "discount %d", id)
	}
	return *t, nil
}

// ByID looks up a template by id. Returns ErrNotFound for unknown ids so that
// assignment rules never operate on a phantom discount.
//
// The returned pointer is the live registered template; concurrent callers
// should prefer Assign or Snapshot, which copy under the lock.
func (r *Registry) ByID(id int64) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "discount %d", id)
	}
	return t, nil
}

// ByCode looks up a coupon template by its code. The bloom filter prescreens
// definitely-unknown codes before the map lookup.
func (r *Registry) ByCode(code string) (*Template, error) {
	normalized := normalizeCode(code)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.codes.TestString(normalized) {
		return nil, errors.Wrapf(ErrInvalidCoupon, "code %q", code)
	}
	t, ok := r.byCode[normalized]
	if !ok {
		// Bloom false positive.
		return nil, errors.Wrapf(ErrInvalidCoupon, "code %q", code)
	}
	return t, nil
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
