package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Amount
		ok   bool
	}{
		{"2500.00", 250_000_000, true},
		{"0", 0, true},
		{"3240.75", 324_075_000, true},
		{"-12.5", -1_250_000, true},
		{"0.00001", 1, true},
		{"1.000001", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if !tc.ok {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "2500.00", Amount(250_000_000).String())
	assert.Equal(t, "-3240.75", Amount(-324_075_000).String())
	assert.Equal(t, "0.00001", Amount(1).String())
	assert.Equal(t, "0.00", Amount(0).String())
}

func TestApplyBasisPoints(t *testing.T) {
	// 10% of 2500.00 is 250.00.
	sales := FromCents(250_000)
	bp, err := PercentToBasisPoints(10)
	require.NoError(t, err)
	assert.Equal(t, FromCents(25_000), sales.ApplyBasisPoints(bp))

	// 2% of 250.00 is 5.00.
	bank, err := PercentToBasisPoints(2)
	require.NoError(t, err)
	assert.Equal(t, FromCents(500), FromCents(25_000).ApplyBasisPoints(bank))

	// 0% and 100% edges.
	zero, _ := PercentToBasisPoints(0)
	full, _ := PercentToBasisPoints(100)
	assert.Equal(t, Amount(0), sales.ApplyBasisPoints(zero))
	assert.Equal(t, sales, sales.ApplyBasisPoints(full))
}

func TestPercentToBasisPointsRange(t *testing.T) {
	_, err := PercentToBasisPoints(-1)
	assert.ErrorIs(t, err, ErrInvalidPercent)
	_, err = PercentToBasisPoints(101)
	assert.ErrorIs(t, err, ErrInvalidPercent)
}

func TestDivRoundHalfEven(t *testing.T) {
	cases := []struct {
		num, den, want int64
	}{
		{10, 4, 2}, // 2.5 rounds to even 2
		{14, 4, 4}, // 3.5 rounds to even 4
		{-10, 4, -2},
		{-14, 4, -4},
		{9, 4, 2},  // 2.25 down
		{11, 4, 3}, // 2.75 up
		{8, 4, 2},  // exact
		{0, 4, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, divRoundHalfEven(tc.num, tc.den), "%d/%d", tc.num, tc.den)
	}
}

func TestWholeUSDTruncates(t *testing.T) {
	v, err := Parse("19999.99")
	require.NoError(t, err)
	assert.Equal(t, int64(19999), v.WholeUSD())
	assert.Equal(t, int64(20000), FromUSD(20000).WholeUSD())
}
