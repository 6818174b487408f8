package handler

import (
	billingapp "github.com/escola/backend/internal/application/billing"
	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// StatementHandler serves the read side of the engine: month statuses,
// year overviews, debt audits and ledgers
type StatementHandler struct {
	BaseHandler
	statements *billingapp.StatementService
}

// NewStatementHandler creates a new StatementHandler
func NewStatementHandler(statements *billingapp.StatementService) *StatementHandler {
	return &StatementHandler{statements: statements}
}

// DebtAuditResponse is a debt audit with its verdict spelled out
type DebtAuditResponse struct {
	billing.DebtAudit
	Blocked        bool            `json:"blocked"`
	TotalShortfall decimal.Decimal `json:"total_shortfall"`
}

// MonthlyStatus reports what is due and paid for one month.
// GET /students/:id/monthly-status?year=&month=
func (h *StatementHandler) MonthlyStatus(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var query dto.MonthQuery
	if !h.bindQuery(c, &query) {
		return
	}
	status, err := h.statements.MonthlyStatus(c.Request.Context(), id, query.Year, query.Month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// YearOverview reports every month of an academic year.
// GET /students/:id/overview?year=
func (h *StatementHandler) YearOverview(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var query dto.YearQuery
	if !h.bindQuery(c, &query) {
		return
	}
	overview, err := h.statements.YearOverview(c.Request.Context(), id, query.Year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, overview)
}

// DebtAudit reports the earlier years that would block a registration for
// the target year. A blocked student is a normal result, not an error.
// GET /students/:id/debt-audit?year=
func (h *StatementHandler) DebtAudit(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var query dto.YearQuery
	if !h.bindQuery(c, &query) {
		return
	}
	audit, err := h.statements.AuditDebt(c.Request.Context(), id, query.Year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DebtAuditResponse{
		DebtAudit:      *audit,
		Blocked:        audit.Blocked(),
		TotalShortfall: audit.TotalShortfall(),
	})
}

// Ledger lists charges and receipts of a year in date order.
// GET /students/:id/ledger?year=
func (h *StatementHandler) Ledger(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var query dto.YearQuery
	if !h.bindQuery(c, &query) {
		return
	}
	ledger, err := h.statements.Ledger(c.Request.Context(), id, query.Year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ledger)
}
