package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryTemplate(t *testing.T, id int64) *Template {
	t.Helper()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tmpl, err := NewTemplate(id, from, from.AddDate(1, 0, 0), decimal.NewFromFloat(0.1), 1)
	require.NoError(t, err)
	return tmpl
}

func registryCoupon(t *testing.T, id int64, code string) *Template {
	t.Helper()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tmpl, err := NewCouponTemplate(id, from, from.AddDate(1, 0, 0), decimal.NewFromFloat(0.15), 1, code)
	require.NoError(t, err)
	return tmpl
}

func TestRegistry_ByID(t *testing.T) {
	r, err := NewRegistry(registryTemplate(t, 1), registryTemplate(t, 2))
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())

	got, err := r.ByID(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)

	_, err = r.ByID(99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_DuplicateID(t *testing.T) {
	_, err := NewRegistry(registryTemplate(t, 1), registryTemplate(t, 1))
	require.Error(t, err)
}

func TestRegistry_ByCode(t *testing.T) {
	r, err := NewRegistry(registryCoupon(t, 1, "WELCOME15"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"exact code", "WELCOME15", nil},
		{"lower case code", "welcome15", nil},
		{"surrounding whitespace", "  welcome15 ", nil},
		{"unknown code", "NOPE42", ErrInvalidCoupon},
		{"empty code", "", ErrInvalidCoupon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ByCode(tt.code)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "WELCOME15", got.CouponCode)
		})
	}
}

func TestRegistry_Assign(t *testing.T) {
	r, err := NewRegistry(registryTemplate(t, 1))
	require.NoError(t, err)

	first, err := r.Assign(1)
	require.NoError(t, err)
	second, err := r.Assign(1)
	require.NoError(t, err)

	assert.NotSame(t, first, second, "each call hands out an independent clone")
	first.Remaining = 0
	assert.Equal(t, 1, second.Remaining)

	_, err = r.Assign(99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_AssignByCode(t *testing.T) {
	r, err := NewRegistry(registryCoupon(t, 1, "WELCOME15"))
	require.NoError(t, err)

	a, err := r.AssignByCode("welcome15")
	require.NoError(t, err)
	assert.Equal(t, KindCoupon, a.Kind)
	assert.Equal(t, "WELCOME15", a.CouponCode)

	_, err = r.AssignByCode("NOPE42")
	require.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestRegistry_ScopeToAuthor(t *testing.T) {
	r, err := NewRegistry(registryTemplate(t, 1))
	require.NoError(t, err)

	scoped, err := r.ScopeToAuthor(1, "Douglas Adams")
	require.NoError(t, err)
	assert.Equal(t, KindAuthor, scoped.Kind)
	assert.Equal(t, "Douglas Adams", scoped.Author)

	// Later assignments of the same id carry the scope.
	a, err := r.Assign(1)
	require.NoError(t, err)
	assert.Equal(t, KindAuthor, a.Kind)
	assert.Equal(t, "Douglas Adams", a.Author)

	_, err = r.ScopeToAuthor(99, "Douglas Adams")
	require.ErrorIs(t, err, ErrNotFound)

	r2, err := NewRegistry(registryCoupon(t, 2, "SAVE10"))
	require.NoError(t, err)
	_, err = r2.ScopeToAuthor(2, "Douglas Adams")
	require.ErrorIs(t, err, ErrNotCoupon)
}

func TestRegistry_Snapshot(t *testing.T) {
	r, err := NewRegistry(registryTemplate(t, 1))
	require.NoError(t, err)

	snap, err := r.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.ID)

	// The snapshot is a copy; mutating it leaves the registry untouched.
	snap.Author = "nobody"
	a, err := r.Assign(1)
	require.NoError(t, err)
	assert.Empty(t, a.Author)

	_, err = r.Snapshot(99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_DuplicateCode(t *testing.T) {
	r, err := NewRegistry(registryCoupon(t, 1, "SAVE10"))
	require.NoError(t, err)

	err = r.Add(registryCoupon(t, 2, "save10"))
	require.Error(t, err, "coupon codes are case-insensitive")
}
