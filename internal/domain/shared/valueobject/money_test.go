package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kz(v int64) Money { return MustMoney(decimal.NewFromInt(v), AOA) }

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.RequireFromString("100.50"), AOA)
	require.NoError(t, err)
	assert.Equal(t, AOA, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.RequireFromString("100.5")))

	_, err = NewMoney(decimal.NewFromInt(1), "")
	assert.ErrorContains(t, err, "unsupported currency")
	_, err = NewMoney(decimal.NewFromInt(1), "XYZ")
	assert.Error(t, err)
}

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("123.45", MZN)
	require.NoError(t, err)
	assert.True(t, m.Amount().Equal(decimal.RequireFromString("123.45")))

	_, err = ParseMoney("not-a-number", AOA)
	assert.Error(t, err)
}

func TestMoney_AddAndTimes(t *testing.T) {
	sum, err := kz(1000).Add(kz(250))
	require.NoError(t, err)
	assert.True(t, sum.Equals(kz(1250)))

	_, err = kz(1000).Add(MustMoney(decimal.NewFromInt(1), USD))
	assert.Error(t, err)

	assert.True(t, kz(1500).Times(10).Equals(kz(15000)))
	assert.True(t, kz(1500).Times(0).IsZero())
}

func TestMoney_Percentages(t *testing.T) {
	tests := []struct {
		name     string
		got      Money
		expected Money
	}{
		{"penalty of ten percent", kz(1000).Percent(decimal.NewFromInt(10)), kz(100)},
		{"quarter discount", kz(1000).ApplyDiscount(decimal.NewFromInt(25)), kz(750)},
		{"full discount", kz(1000).ApplyDiscount(decimal.NewFromInt(100)), kz(0)},
		{"no discount", kz(1000).ApplyDiscount(decimal.Zero), kz(1000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.got.Equals(tt.expected), "got %s", tt.got)
		})
	}
}

func TestMoney_JSON(t *testing.T) {
	m, err := ParseMoney("1500.50", AOA)
	require.NoError(t, err)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"1500.5","currency":"AOA"}`, string(data))

	var back Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equals(m))
	assert.Equal(t, "1500.50 AOA", back.String())
}
