package handler

import (
	"time"

	billingapp "github.com/escola/backend/internal/application/billing"
	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/infrastructure/logger"
	"github.com/escola/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	BaseHandler
	recorder *billingapp.PaymentRecorder
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(recorder *billingapp.PaymentRecorder, loc *time.Location) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler: BaseHandler{Location: loc},
		recorder:    recorder,
	}
}

// Record records a payment. An Idempotency-Key header makes resubmissions
// fail with DUPLICATE_REQUEST instead of storing a second receipt.
// POST /students/:id/payments
func (h *PaymentHandler) Record(c *gin.Context) {
	studentID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	date, ok := h.parseDate(c, "date", req.Date)
	if !ok {
		return
	}
	chargeIDs, err := req.ExtraChargeUUIDs()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ctx := c.Request.Context()
	result, err := h.recorder.Record(ctx, billingapp.RecordPaymentRequest{
		StudentID:      studentID,
		IdempotencyKey: logger.GetIdempotencyKey(ctx),
		Date:           date,
		Amount:         req.Amount,
		Type:           billing.PaymentType(req.Type),
		Method:         billing.PaymentMethod(req.Method),
		AcademicYear:   req.AcademicYear,
		ReferenceMonth: req.ReferenceMonth,
		Items:          toItemInputs(req.Items),
		ExtraChargeIDs: chargeIDs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Edit replaces the receipt lines of a payment.
// PUT /students/:id/payments/:paymentId
func (h *PaymentHandler) Edit(c *gin.Context) {
	studentID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	paymentID, ok := h.parseUUIDParam(c, "paymentId")
	if !ok {
		return
	}
	var req dto.EditPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	payment, err := h.recorder.Edit(c.Request.Context(), billingapp.EditPaymentRequest{
		StudentID: studentID,
		PaymentID: paymentID,
		Items:     toItemInputs(req.Items),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Delete removes a payment.
// DELETE /students/:id/payments/:paymentId?reason=...
func (h *PaymentHandler) Delete(c *gin.Context) {
	studentID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	paymentID, ok := h.parseUUIDParam(c, "paymentId")
	if !ok {
		return
	}
	var query dto.DeletePaymentQuery
	if !h.bindQuery(c, &query) {
		return
	}
	err := h.recorder.Delete(c.Request.Context(), billingapp.DeletePaymentRequest{
		StudentID: studentID,
		PaymentID: paymentID,
		Reason:    query.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func toItemInputs(items []dto.PaymentItemRequest) []billingapp.PaymentItemInput {
	if len(items) == 0 {
		return nil
	}
	out := make([]billingapp.PaymentItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, billingapp.PaymentItemInput{Label: item.Label, Value: item.Value})
	}
	return out
}
