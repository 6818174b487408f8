package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type adder[N int64 | float64] interface {
	Add(ctx context.Context, incr N, opts ...metric.AddOption)
}

// Counter is a monotonic sum. Counter[int64] counts events, Counter[float64]
// accumulates money.
type Counter[N int64 | float64] struct {
	inst adder[N]
}

// NewCounter creates an integer counter
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter[int64], error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter[int64]{inst: c}, nil
}

// NewFloatCounter creates a float counter
func NewFloatCounter(meter metric.Meter, name, description, unit string) (*Counter[float64], error) {
	c, err := meter.Float64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter[float64]{inst: c}, nil
}

func (c *Counter[N]) Add(ctx context.Context, value N, attrs ...attribute.KeyValue) {
	c.inst.Add(ctx, value, metric.WithAttributes(attrs...))
}

func (c *Counter[N]) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.inst.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram records a float distribution
type Histogram struct {
	inst metric.Float64Histogram
}

type HistogramOpts struct {
	Name        string
	Description string
	Unit        string
	Boundaries  []float64 // nil keeps the SDK defaults
}

func NewHistogram(meter metric.Meter, opts HistogramOpts) (*Histogram, error) {
	options := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(opts.Boundaries) > 0 {
		options = append(options, metric.WithExplicitBucketBoundaries(opts.Boundaries...))
	}
	h, err := meter.Float64Histogram(opts.Name, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", opts.Name, err)
	}
	return &Histogram{inst: h}, nil
}

func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.inst.Record(ctx, value, metric.WithAttributes(attrs...))
}

// RecordDuration records d in seconds
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}

// Gauge holds the last recorded integer value
type Gauge struct {
	inst metric.Int64Gauge
}

func NewGauge(meter metric.Meter, name, description, unit string) (*Gauge, error) {
	g, err := meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge %s: %w", name, err)
	}
	return &Gauge{inst: g}, nil
}

func (g *Gauge) Record(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	g.inst.Record(ctx, value, metric.WithAttributes(attrs...))
}

// Attribute keys shared by the HTTP and billing instruments
var (
	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPRoute      = attribute.Key("http.route")

	AttrPaymentType   = attribute.Key("payment_type")
	AttrPaymentMethod = attribute.Key("payment_method")
	AttrDebtYears     = attribute.Key("debt_years")
)

var (
	// HTTPDurationBuckets are request latency boundaries in seconds
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// PaymentAmountBuckets are payment size boundaries in currency units,
	// spanning a single month's fee up to a full-year settlement.
	PaymentAmountBuckets = []float64{500, 1000, 2500, 5000, 10000, 25000, 50000, 100000, 250000}
)
