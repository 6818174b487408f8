package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const idempotencyKeyPrefix = "billing:payment:"

// PaymentRecorder validates and persists payment records. It owns no billing
// rules itself: the debt gate comes from the engine and the record invariants
// from the Student aggregate.
type PaymentRecorder struct {
	loader      *snapshotLoader
	students    billing.StudentRepository
	engine      *billing.Engine
	publisher   shared.EventPublisher
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	metrics     PaymentMetrics
	logger      *zap.Logger
}

// ServiceOption configures the billing application services
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	clock       billing.Clock
	tolerances  *billing.Tolerances
	publisher   shared.EventPublisher
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	metrics     PaymentMetrics
	logger      *zap.Logger
}

// WithClock sets the clock used as the reference date
func WithClock(clock billing.Clock) ServiceOption {
	return func(o *serviceOptions) {
		o.clock = clock
	}
}

// WithTolerances overrides the paid epsilon and debt tolerance of the stored settings
func WithTolerances(t billing.Tolerances) ServiceOption {
	return func(o *serviceOptions) {
		o.tolerances = &t
	}
}

// WithEventPublisher sets the publisher for payment events
func WithEventPublisher(p shared.EventPublisher) ServiceOption {
	return func(o *serviceOptions) {
		o.publisher = p
	}
}

// WithIdempotencyStore enables duplicate submission detection
func WithIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) ServiceOption {
	return func(o *serviceOptions) {
		o.idempotency = store
		o.idemConfig = cfg
	}
}

// WithMetrics sets the business metrics sink
func WithMetrics(m PaymentMetrics) ServiceOption {
	return func(o *serviceOptions) {
		o.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

func applyOptions(opts []ServiceOption) serviceOptions {
	o := serviceOptions{
		clock:      billing.SystemClock{},
		idemConfig: shared.DefaultIdempotencyConfig(),
		metrics:    noopMetrics{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewPaymentRecorder creates a new PaymentRecorder
func NewPaymentRecorder(
	students billing.StudentRepository,
	settings billing.SettingsRepository,
	years billing.AcademicYearRepository,
	engine *billing.Engine,
	opts ...ServiceOption,
) *PaymentRecorder {
	o := applyOptions(opts)
	return &PaymentRecorder{
		loader: &snapshotLoader{
			students:   students,
			settings:   settings,
			years:      years,
			clock:      o.clock,
			tolerances: o.tolerances,
		},
		students:    students,
		engine:      engine,
		publisher:   o.publisher,
		idempotency: o.idempotency,
		idemConfig:  o.idemConfig,
		metrics:     o.metrics,
		logger:      o.logger,
	}
}

// PaymentItemInput is one receipt line of a payment request
type PaymentItemInput struct {
	Label string
	Value decimal.Decimal
}

// RecordPaymentRequest represents a request to record a payment
type RecordPaymentRequest struct {
	StudentID      uuid.UUID
	IdempotencyKey string // Optional; resubmissions with the same key are refused
	Date           time.Time
	Amount         decimal.Decimal // Ignored when items are given
	Type           billing.PaymentType
	Method         billing.PaymentMethod
	AcademicYear   int
	ReferenceMonth *int
	Items          []PaymentItemInput
	ExtraChargeIDs []uuid.UUID
}

// RecordPaymentResult represents the result of recording a payment
type RecordPaymentResult struct {
	StudentID uuid.UUID              `json:"student_id"`
	Payment   billing.PaymentRecord  `json:"payment"`
	Month     *billing.MonthlyStatus `json:"month_status,omitempty"`
}

// Record validates a payment, refuses registrations blocked by debt, and
// persists the student with the new record in a single save.
func (r *PaymentRecorder) Record(ctx context.Context, req RecordPaymentRequest) (result *RecordPaymentResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_recorder", "record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStudentID, req.StudentID.String(),
		telemetry.SpanAttrPaymentType, string(req.Type),
		telemetry.SpanAttrAcademicYear, req.AcademicYear,
	)
	defer func() {
		telemetry.RecordError(span, err)
	}()

	release, err := r.claim(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			release()
		}
	}()

	snap, err := r.loader.load(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	student := snap.Student

	record, err := billing.NewPaymentRecord(billing.PaymentInput{
		Date:           req.Date,
		Amount:         req.Amount,
		Type:           req.Type,
		Method:         req.Method,
		AcademicYear:   req.AcademicYear,
		ReferenceMonth: req.ReferenceMonth,
		Items:          toItems(req.Items),
		ExtraChargeIDs: req.ExtraChargeIDs,
	})
	if err != nil {
		return nil, err
	}

	if record.Type.IsRegistration() {
		audit, err := r.engine.AuditDebt(snap, record.AcademicYear)
		if err != nil {
			return nil, err
		}
		if blocked := audit.Err(); blocked != nil {
			r.logger.Warn("registration blocked by unresolved debt",
				zap.String("student_id", student.ID.String()),
				zap.Int("target_year", audit.TargetYear),
				zap.Int("debt_years", len(audit.DebtYears)),
				zap.String("shortfall", audit.TotalShortfall().String()),
			)
			r.metrics.RecordBlockedRegistration(ctx, len(audit.DebtYears))
			return nil, blocked
		}
	}

	if err := student.AddPayment(record); err != nil {
		return nil, err
	}
	if err := r.students.Save(ctx, student); err != nil {
		r.logger.Error("failed to save payment",
			zap.String("student_id", student.ID.String()),
			zap.String("payment_id", record.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to save student: %w", err)
	}
	r.publishEvents(ctx, student)
	r.metrics.RecordPayment(ctx, string(record.Type), string(record.Method), record.Amount)

	r.logger.Info("payment recorded",
		zap.String("student_id", student.ID.String()),
		zap.String("payment_id", record.ID.String()),
		zap.String("type", string(record.Type)),
		zap.String("amount", record.Amount.String()),
		zap.Int("academic_year", record.AcademicYear),
	)

	result = &RecordPaymentResult{StudentID: student.ID, Payment: *record}
	if record.Type == billing.PaymentTypeMonthly {
		// Months outside the academic calendar have no status.
		if status, err := r.engine.MonthlyStatus(snap, record.AcademicYear, *record.ReferenceMonth); err == nil {
			result.Month = &status
		}
	}
	return result, nil
}

// EditPaymentRequest replaces the items of an existing payment
type EditPaymentRequest struct {
	StudentID uuid.UUID
	PaymentID uuid.UUID
	Items     []PaymentItemInput
}

// Edit replaces the items of a payment and recomputes its amount
func (r *PaymentRecorder) Edit(ctx context.Context, req EditPaymentRequest) (*billing.PaymentRecord, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_recorder", "edit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStudentID, req.StudentID.String(),
		telemetry.SpanAttrPaymentID, req.PaymentID.String(),
	)

	student, err := r.students.FindByID(ctx, req.StudentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	edited, err := student.EditPaymentItems(req.PaymentID, toItems(req.Items))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := r.students.Save(ctx, student); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save student: %w", err)
	}
	r.publishEvents(ctx, student)

	r.logger.Info("payment edited",
		zap.String("student_id", student.ID.String()),
		zap.String("payment_id", edited.ID.String()),
		zap.String("amount", edited.Amount.String()),
	)
	result := *edited
	return &result, nil
}

// DeletePaymentRequest removes a payment on an administrator's request
type DeletePaymentRequest struct {
	StudentID uuid.UUID
	PaymentID uuid.UUID
	Reason    string
}

// Delete removes a payment. Nothing is recomputed or reverted afterwards.
func (r *PaymentRecorder) Delete(ctx context.Context, req DeletePaymentRequest) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_recorder", "delete")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStudentID, req.StudentID.String(),
		telemetry.SpanAttrPaymentID, req.PaymentID.String(),
	)

	student, err := r.students.FindByID(ctx, req.StudentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := student.RemovePayment(req.PaymentID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := r.students.Save(ctx, student); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save student: %w", err)
	}
	r.publishEvents(ctx, student)

	r.logger.Warn("payment deleted",
		zap.String("student_id", student.ID.String()),
		zap.String("payment_id", req.PaymentID.String()),
		zap.String("reason", req.Reason),
	)
	return nil
}

// claim marks the idempotency key as in use. The returned func forgets the key
// so that a failed request can be retried.
func (r *PaymentRecorder) claim(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if key == "" || r.idempotency == nil || !r.idemConfig.Enabled {
		return noop, nil
	}
	fullKey := idempotencyKeyPrefix + key
	fresh, err := r.idempotency.MarkProcessed(ctx, fullKey, r.idemConfig.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if !fresh {
		r.logger.Info("duplicate payment submission refused", zap.String("idempotency_key", key))
		return nil, shared.NewDomainError(shared.ErrDuplicateRequest.Code,
			fmt.Sprintf("payment request %q has already been submitted", key))
	}
	return func() {
		if err := r.idempotency.Release(context.WithoutCancel(ctx), fullKey); err != nil {
			r.logger.Warn("failed to release idempotency key", zap.String("key", fullKey), zap.Error(err))
		}
	}, nil
}

// publishEvents hands pending domain events to the bus. The payment is already
// stored, so a publishing failure is logged and not returned.
func (r *PaymentRecorder) publishEvents(ctx context.Context, student *billing.Student) {
	events := student.PullDomainEvents()
	if r.publisher == nil || len(events) == 0 {
		return
	}
	if err := r.publisher.Publish(ctx, events...); err != nil {
		r.logger.Error("failed to publish payment events",
			zap.String("student_id", student.ID.String()),
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}

func toItems(in []PaymentItemInput) []billing.PaymentItem {
	items := make([]billing.PaymentItem, 0, len(in))
	for _, item := range in {
		items = append(items, billing.PaymentItem{Label: item.Label, Value: item.Value})
	}
	return items
}
