package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

func TestQuality(t *testing.T) {
	tests := []struct {
		pays, gets, want string
	}{
		{"100", "0", "0"},
		{"100", "50", "2"},
		{"1", "4", "0.25"},
	}
	for _, tt := range tests {
		got, err := Quality(tt.pays, tt.gets)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "quality(%s, %s)", tt.pays, tt.gets)
	}

	_, err := Quality("abc", "1")
	assert.ErrorIs(t, err, ledgererr.ErrInvalidAmount)
}

func TestPrice(t *testing.T) {
	xrp := tx.XRP(amount.NewXRPAmount(3_000_000))
	asset := tx.Issued("RLUSD", issuer, "2")

	got, err := Price(asset, xrp, false)
	require.NoError(t, err)
	assert.Equal(t, "1.50000000", got)

	got, err = Price(asset, xrp, true)
	require.NoError(t, err)
	assert.Equal(t, "0.66666667", got)

	got, err = Price(tx.Issued("RLUSD", issuer, "0"), xrp, false)
	require.NoError(t, err)
	assert.Equal(t, "0.00000000", got)
}

func TestSpreadAndMidpoint(t *testing.T) {
	s, err := Spread("0.95", "1.05")
	require.NoError(t, err)
	assert.Equal(t, "0.10000000", s.Absolute)
	assert.Equal(t, "10.5263", s.Percentage)

	s, err = Spread("0", "1")
	require.NoError(t, err)
	assert.Equal(t, "0.0000", s.Percentage)

	mid, err := Midpoint("0.95", "1.05")
	require.NoError(t, err)
	assert.Equal(t, "1.00000000", mid)
}
