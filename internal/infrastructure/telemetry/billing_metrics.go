package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// OverdueCounter reports how many active students have late months.
type OverdueCounter interface {
	CountOverdueStudents(ctx context.Context) (int64, error)
}

// BillingMetrics records payment activity and the overdue population.
type BillingMetrics struct {
	logger *zap.Logger

	paymentTotal         *Counter[int64]
	paymentAmountTotal   *Counter[float64]
	paymentAmount        *Histogram
	blockedRegistrations *Counter[int64]
	overdueStudents      *Gauge

	overdue     OverdueCounter
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// BillingMetricsConfig holds configuration for billing metrics.
type BillingMetricsConfig struct {
	Meter   metric.Meter
	Logger  *zap.Logger
	Overdue OverdueCounter
}

// NewBillingMetrics creates the billing instruments on the given meter.
func NewBillingMetrics(cfg BillingMetricsConfig) (*BillingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BillingMetrics{
		logger:   logger,
		overdue:  cfg.Overdue,
		stopChan: make(chan struct{}),
	}

	var err error
	if bm.paymentTotal, err = NewCounter(cfg.Meter,
		"escola_payment_total", "Total number of recorded payments", "{payments}"); err != nil {
		return nil, err
	}
	if bm.paymentAmountTotal, err = NewFloatCounter(cfg.Meter,
		"escola_payment_amount_total", "Total amount received", "{currency}"); err != nil {
		return nil, err
	}
	if bm.paymentAmount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "escola_payment_amount",
		Description: "Distribution of recorded payment amounts",
		Unit:        "{currency}",
		Boundaries:  PaymentAmountBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.blockedRegistrations, err = NewCounter(cfg.Meter,
		"escola_registration_blocked_total", "Registrations refused because of unresolved debt", "{registrations}"); err != nil {
		return nil, err
	}
	if bm.overdueStudents, err = NewGauge(cfg.Meter,
		"escola_overdue_students", "Active students with at least one late month", "{students}"); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordPayment counts a stored payment and adds its amount.
func (bm *BillingMetrics) RecordPayment(ctx context.Context, paymentType, method string, amount decimal.Decimal) {
	attrs := []attribute.KeyValue{
		AttrPaymentType.String(paymentType),
		AttrPaymentMethod.String(method),
	}
	bm.paymentTotal.Inc(ctx, attrs...)
	value := amount.InexactFloat64()
	bm.paymentAmountTotal.Add(ctx, value, attrs...)
	bm.paymentAmount.Record(ctx, value, AttrPaymentType.String(paymentType))
}

// RecordBlockedRegistration counts an enrollment or renewal refused by the debt audit.
func (bm *BillingMetrics) RecordBlockedRegistration(ctx context.Context, debtYears int) {
	bm.blockedRegistrations.Inc(ctx, AttrDebtYears.Int(debtYears))
}

// StartPeriodicCollection refreshes the overdue gauge every interval (default 15
// minutes) until Stop is called or ctx is done. It is non-blocking.
func (bm *BillingMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if bm.overdue == nil {
		return
	}
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 15 * time.Minute
		}
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BillingMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectOverdue(ctx)
	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic billing metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.collectOverdue(ctx)
		}
	}
}

func (bm *BillingMetrics) collectOverdue(ctx context.Context) {
	count, err := bm.overdue.CountOverdueStudents(ctx)
	if err != nil {
		bm.logger.Warn("Failed to count overdue students", zap.Error(err))
		return
	}
	bm.overdueStudents.Record(ctx, count)
}

// Stop stops the periodic collection.
func (bm *BillingMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBillingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
