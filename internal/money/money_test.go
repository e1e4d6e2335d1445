package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2.004", "2"},
		{"2.005", "2.01"},
		{"2.999", "3"},
		{"-2.005", "-2.01"},
		{"400", "400"},
	}
	for _, tc := range cases {
		got := Round2(MustDec(tc.in))
		require.True(t, got.Equal(MustDec(tc.want)), "Round2(%s) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestQuotasNeeded(t *testing.T) {
	share := MustDec("42.00")

	cases := []struct {
		name string
		debt string
		want int
	}{
		{"remainder rounds up", "100", 3},
		{"exact multiple", "84", 2},
		{"less than one share", "1", 1},
		{"zero debt", "0", 0},
		{"negative debt", "-10", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, QuotasNeeded(MustDec(tc.debt), share))
		})
	}
}

func TestQuotasNeededZeroShareValue(t *testing.T) {
	require.Equal(t, 0, QuotasNeeded(MustDec("100"), decimal.Zero))
}

func TestMin(t *testing.T) {
	require.True(t, Min(MustDec("1.5"), MustDec("2")).Equal(MustDec("1.5")))
	require.True(t, Min(MustDec("3"), MustDec("2")).Equal(MustDec("2")))
	require.True(t, Min(MustDec("2"), MustDec("2")).Equal(MustDec("2")))
}
