package handler

import (
	"strconv"

	billingapp "github.com/escola/backend/internal/application/billing"
	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SettingsHandler manages the price list and the academic calendar
type SettingsHandler struct {
	BaseHandler
	accounts *billingapp.AccountService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(accounts *billingapp.AccountService) *SettingsHandler {
	return &SettingsHandler{accounts: accounts}
}

// Get returns the financial settings.
// GET /settings
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.accounts.GetSettings(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// Save replaces the financial settings.
// PUT /settings
func (h *SettingsHandler) Save(c *gin.Context) {
	var req dto.FinancialSettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	settings, err := h.accounts.SaveSettings(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// ListAcademicYears returns every configured calendar.
// GET /academic-years
func (h *SettingsHandler) ListAcademicYears(c *gin.Context) {
	years, err := h.accounts.ListAcademicYears(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, years)
}

// SaveAcademicYear creates or replaces the calendar of a year.
// PUT /academic-years/:year
func (h *SettingsHandler) SaveAcademicYear(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		h.BadRequest(c, "Invalid year format")
		return
	}
	var req dto.AcademicYearRequest
	if !h.bindJSON(c, &req) {
		return
	}
	saved, err := h.accounts.SaveAcademicYear(c.Request.Context(), billing.AcademicYear{
		Year:       year,
		Status:     billing.AcademicYearStatus(req.Status),
		StartMonth: req.StartMonth,
		EndMonth:   req.EndMonth,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, saved)
}
