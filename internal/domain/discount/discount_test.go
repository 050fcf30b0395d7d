package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplate(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name       string
		percentOff decimal.Decimal
		uses       int
		from       time.Time
		until      time.Time
		wantErr    bool
	}{
		{
			name:       "valid template",
			percentOff: decimal.NewFromFloat(0.1),
			uses:       5,
			from:       from,
			until:      until,
		},
		{
			name:       "zero percent is allowed",
			percentOff: decimal.Zero,
			uses:       1,
			from:       from,
			until:      until,
		},
		{
			name:       "zero uses is allowed",
			percentOff: decimal.NewFromFloat(0.25),
			uses:       0,
			from:       from,
			until:      until,
		},
		{
			name:       "one hundred percent rejected",
			percentOff: decimal.NewFromInt(1),
			uses:       1,
			from:       from,
			until:      until,
			wantErr:    true,
		},
		{
			name:       "negative percent rejected",
			percentOff: decimal.NewFromFloat(-0.1),
			uses:       1,
			from:       from,
			until:      until,
			wantErr:    true,
		},
		{
			name:       "negative uses rejected",
			percentOff: decimal.NewFromFloat(0.1),
			uses:       -1,
			from:       from,
			until:      until,
			wantErr:    true,
		},
		{
			name:       "window ending before start rejected",
			percentOff: decimal.NewFromFloat(0.1),
			uses:       1,
			from:       until,
			until:      from,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := NewTemplate(7, tt.from, tt.until, tt.percentOff, tt.uses)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, KindGeneral, tmpl.Kind)
			assert.True(t, tmpl.PercentOff.Equal(tt.percentOff))
			assert.Equal(t, tt.uses, tmpl.Uses)
		})
	}
}

func TestNewCouponTemplate(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(1, 0, 0)

	tmpl, err := NewCouponTemplate(3, from, until, decimal.NewFromFloat(0.15), 1, "WELCOME15")
	require.NoError(t, err)
	assert.Equal(t, KindCoupon, tmpl.Kind)
	assert.Equal(t, "WELCOME15", tmpl.CouponCode)

	_, err = NewCouponTemplate(4, from, until, decimal.NewFromFloat(0.15), 1, "")
	require.Error(t, err)
}

func TestTemplate_ValidAt(t *testing.T) {
	from := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	until := time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC)

	tmpl, err := NewTemplate(1, from, until, decimal.NewFromFloat(0.1), 1)
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"one second before window", from.Add(-time.Second), false},
		{"exactly at start", from, true},
		{"inside window", from.AddDate(0, 0, 15), true},
		{"exactly at end", until, true},
		{"one second after window", until.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tmpl.ValidAt(tt.now))
			assert.Equal(t, tt.want, tmpl.Assign().ValidAt(tt.now))
		})
	}
}

func TestTemplate_ScopeToAuthor(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(1, 0, 0)

	t.Run("scopes a general template", func(t *testing.T) {
		tmpl, err := NewTemplate(5, from, until, decimal.NewFromFloat(0.4), 2)
		require.NoError(t, err)

		require.NoError(t, tmpl.ScopeToAuthor("Douglas Adams"))
		assert.Equal(t, KindAuthor, tmpl.Kind)
		assert.Equal(t, "Douglas Adams", tmpl.Author)

		a := tmpl.Assign()
		assert.True(t, a.Matches("Douglas Adams"))
		assert.False(t, a.Matches("Frank Herbert"))
	})

	t.Run("rejects coupon templates", func(t *testing.T) {
		tmpl, err := NewCouponTemplate(6, from, until, decimal.NewFromFloat(0.1), 1, "SAVE10")
		require.NoError(t, err)

		err = tmpl.ScopeToAuthor("Douglas Adams")
		require.ErrorIs(t, err, ErrNotCoupon)
		assert.Equal(t, KindCoupon, tmpl.Kind)
	})

	t.Run("rejects empty author", func(t *testing.T) {
		tmpl, err := NewTemplate(8, from, until, decimal.NewFromFloat(0.1), 1)
		require.NoError(t, err)
		require.Error(t, tmpl.ScopeToAuthor(""))
	})
}

func TestTemplate_AssignClonesUsage(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tmpl, err := NewTemplate(1, from, from.AddDate(1, 0, 0), decimal.NewFromFloat(0.1), 3)
	require.NoError(t, err)

	first := tmpl.Assign()
	second := tmpl.Assign()

	first.Remaining = 0

	assert.Equal(t, 3, second.Remaining, "assignments must not share usage counters")
	assert.Equal(t, 3, tmpl.Uses, "consuming an assignment must not touch the template")
}

func TestAssignment_Multiplier(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tmpl, err := NewTemplate(1, from, from.AddDate(1, 0, 0), decimal.NewFromFloat(0.4), 1)
	require.NoError(t, err)

	a := tmpl.Assign()
	assert.True(t, a.Multiplier().Equal(decimal.NewFromFloat(0.6)))
}
