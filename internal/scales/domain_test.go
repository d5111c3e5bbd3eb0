package scales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

func i64(v int64) *int64 { return &v }

func tieredScale(t *testing.T) CommissionScale {
	t.Helper()
	scale := CommissionScale{
		Name: "Escala general",
		Type: ScaleTypeAmount,
		Rules: []Rule{
			{MinUSD: 0, MaxUSD: i64(19_999), PercentBP: 1000},
			{MinUSD: 20_000, MaxUSD: i64(25_999), PercentBP: 2000},
			{MinUSD: 26_000, MaxUSD: nil, PercentBP: 3000},
		},
	}
	require.NoError(t, scale.Validate())
	return scale
}

func TestValidateContiguity(t *testing.T) {
	scale := tieredScale(t)

	// Gap between tiers.
	broken := scale
	broken.Rules = []Rule{
		{MinUSD: 0, MaxUSD: i64(19_999), PercentBP: 1000},
		{MinUSD: 20_001, MaxUSD: nil, PercentBP: 2000},
	}
	assert.ErrorIs(t, broken.Validate(), shared.ErrInvalidScaleDefinition)

	// Overlap between tiers.
	broken.Rules = []Rule{
		{MinUSD: 0, MaxUSD: i64(20_000), PercentBP: 1000},
		{MinUSD: 20_000, MaxUSD: nil, PercentBP: 2000},
	}
	assert.ErrorIs(t, broken.Validate(), shared.ErrInvalidScaleDefinition)

	// First tier must start at zero.
	broken.Rules = []Rule{
		{MinUSD: 100, MaxUSD: nil, PercentBP: 1000},
	}
	assert.ErrorIs(t, broken.Validate(), shared.ErrInvalidScaleDefinition)

	// Open-ended tier only allowed last.
	broken.Rules = []Rule{
		{MinUSD: 0, MaxUSD: nil, PercentBP: 1000},
		{MinUSD: 100, MaxUSD: nil, PercentBP: 2000},
	}
	assert.ErrorIs(t, broken.Validate(), shared.ErrInvalidScaleDefinition)

	// Percent above 100.
	broken.Rules = []Rule{
		{MinUSD: 0, MaxUSD: nil, PercentBP: 10_100},
	}
	assert.ErrorIs(t, broken.Validate(), shared.ErrInvalidScaleDefinition)

	// Empty rule set.
	broken.Rules = nil
	assert.ErrorIs(t, broken.Validate(), shared.ErrInvalidScaleDefinition)
}

func TestResolveBoundaries(t *testing.T) {
	scale := tieredScale(t)

	cases := []struct {
		value  int64
		wantBP money.BasisPoints
	}{
		{0, 1000},
		{19_999, 1000},
		{20_000, 2000},
		{25_999, 2000},
		{26_000, 3000},
		{1_000_000, 3000},
	}
	for _, tc := range cases {
		rule, err := scale.Resolve(money.FromUSD(tc.value))
		require.NoError(t, err, "value %d", tc.value)
		assert.Equal(t, tc.wantBP, rule.PercentBP, "value %d", tc.value)
	}

	// Sub-dollar amounts truncate into the tier of their whole part.
	v, err := money.Parse("19999.99")
	require.NoError(t, err)
	rule, err := scale.Resolve(v)
	require.NoError(t, err)
	assert.Equal(t, money.BasisPoints(1000), rule.PercentBP)
}

func TestResolveNegativeRejected(t *testing.T) {
	scale := tieredScale(t)
	_, err := scale.Resolve(money.Amount(-1))
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestResolveNoApplicableRule(t *testing.T) {
	// A deliberately truncated (invalid) scale: the defensive branch must
	// fail loudly instead of defaulting to 0%.
	scale := CommissionScale{
		Name:  "truncada",
		Rules: []Rule{{MinUSD: 0, MaxUSD: i64(100), PercentBP: 1000}},
	}
	_, err := scale.Resolve(money.FromUSD(500))
	assert.ErrorIs(t, err, shared.ErrNoApplicableRule)
}
