package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{"4", NewQuantity(4)},
		{"0.001", Quantity(1)},
		{"12.5", Quantity(12_500)},
		{"-3", NewQuantity(-3)},
		{"1.23456", Quantity(1_234)},
		{".5", Quantity(500)},
		{"-1.2345", Quantity(-1_234)},
		{"1e2", NewQuantity(100)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseQuantity("")
	assert.Error(t, err)
	_, err = ParseQuantity("abc")
	assert.Error(t, err)
	_, err = ParseQuantity("99999999999999999999")
	assert.Error(t, err)
	_, err = ParseQuantity("9223372036854775.807")
	assert.Error(t, err)

	got, err := ParseQuantity("1000000000")
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, got)
	_, err = ParseQuantity("1000000000.001")
	assert.Error(t, err)
}

func TestQuantity_Add(t *testing.T) {
	sum, err := NewQuantity(2).Add(Quantity(500))
	require.NoError(t, err)
	assert.Equal(t, Quantity(2_500), sum)

	_, err = Quantity(math.MaxInt64).Add(Quantity(math.MaxInt64))
	assert.ErrorIs(t, err, ErrQuantityOverflow)
	_, err = Quantity(math.MinInt64).Add(Quantity(-1))
	assert.ErrorIs(t, err, ErrQuantityOverflow)

	sum, err = Quantity(math.MaxInt64).Add(Quantity(math.MinInt64))
	require.NoError(t, err)
	assert.Equal(t, Quantity(-1), sum)

	assert.True(t, MaxQuantity.InRange())
	assert.False(t, (MaxQuantity + 1).InRange())
	assert.False(t, Quantity(math.MinInt64).InRange())
}

func TestQuantity_JSON(t *testing.T) {
	var payload struct {
		Qty Quantity `json:"qty"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"qty":"2.5"}`), &payload))
	assert.Equal(t, Quantity(2_500), payload.Qty)

	require.NoError(t, json.Unmarshal([]byte(`{"qty":7}`), &payload))
	assert.Equal(t, NewQuantity(7), payload.Qty)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"qty":7.000}`, string(out))
}

func TestQuantity_Decimal(t *testing.T) {
	assert.Equal(t, "2000", NewQuantity(4).Decimal().Mul(MustMoney("500")).String())
	assert.Equal(t, "0.5", Quantity(500).Decimal().String())
	assert.Equal(t, "-1.250", Quantity(-1_250).String())
}

func TestPercentAndRound(t *testing.T) {
	assert.True(t, Percent(MustMoney("2000"), MustMoney("19")).Equal(MustMoney("380")))
	assert.Equal(t, "0.34", RoundMoney(MustMoney("0.335")).StringFixed(2))
}
