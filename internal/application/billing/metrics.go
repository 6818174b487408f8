package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentMetrics receives business counters from the payment use cases
type PaymentMetrics interface {
	RecordPayment(ctx context.Context, paymentType, method string, amount decimal.Decimal)
	RecordBlockedRegistration(ctx context.Context, debtYears int)
}

type noopMetrics struct{}

func (noopMetrics) RecordPayment(context.Context, string, string, decimal.Decimal) {}
func (noopMetrics) RecordBlockedRegistration(context.Context, int)                 {}
