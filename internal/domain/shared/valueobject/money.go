package valueobject

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code
type Currency string

// Currencies a school can bill in. Kwanza is the default.
const (
	AOA Currency = "AOA"
	MZN Currency = "MZN"
	CVE Currency = "CVE"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

const DefaultCurrency = AOA

// IsValid reports whether the currency is one the school can bill in
func (c Currency) IsValid() bool {
	switch c {
	case AOA, MZN, CVE, USD, EUR:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Money is an immutable amount tagged with its currency. Fees, penalties and
// obligations are computed as Money and handed out as plain decimals once the
// currency no longer matters.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney validates the currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, fmt.Errorf("unsupported currency %q", currency)
	}
	return Money{amount: amount, currency: currency}, nil
}

// ParseMoney reads a decimal string such as "1500.50"
func ParseMoney(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return NewMoney(d, currency)
}

// MustMoney skips the currency check. Callers pass a currency that already
// passed settings validation.
func MustMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: amount, currency: currency}
}

func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }

// Add fails on a currency mismatch
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add %s to %s", other.currency, m.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Times multiplies by a count, e.g. a monthly fee by the active months of a year
func (m Money) Times(n int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(n))), currency: m.currency}
}

// Percent returns pct percent of m
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(pct).Div(hundred), currency: m.currency}
}

// ApplyDiscount takes pct percent off m
func (m Money) ApplyDiscount(pct decimal.Decimal) Money {
	return Money{amount: m.amount.Sub(m.Percent(pct).amount), currency: m.currency}
}

func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + string(m.currency)
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.amount, m.currency = v.Amount, v.Currency
	return nil
}
