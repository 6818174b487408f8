package handler

import (
	"context"
	"time"

	billingapp "github.com/escola/backend/internal/application/billing"
	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StudentHandler handles student account endpoints
type StudentHandler struct {
	BaseHandler
	accounts *billingapp.AccountService
}

// NewStudentHandler creates a new StudentHandler
func NewStudentHandler(accounts *billingapp.AccountService, loc *time.Location) *StudentHandler {
	return &StudentHandler{
		BaseHandler: BaseHandler{Location: loc},
		accounts:    accounts,
	}
}

// Register opens a student account.
// POST /students
func (h *StudentHandler) Register(c *gin.Context) {
	var req dto.RegisterStudentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	birth, ok := h.parseDate(c, "birth_date", req.BirthDate)
	if !ok {
		return
	}
	matriculation, ok := h.parseDate(c, "matriculation_date", req.MatriculationDate)
	if !ok {
		return
	}

	profile := billing.NormalProfile()
	if req.Profile != nil {
		profile = req.Profile.ToDomain()
	}

	student, err := h.accounts.RegisterStudent(c.Request.Context(), billingapp.RegisterStudentRequest{
		Name:              req.Name,
		DesiredClass:      req.DesiredClass,
		BirthDate:         birth,
		MatriculationDate: matriculation,
		Profile:           profile,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToStudentResponse(student))
}

// List returns a page of students.
// GET /students
func (h *StudentHandler) List(c *gin.Context) {
	var query dto.StudentListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	filter := query.ToFilter()

	students, total, err := h.accounts.ListStudents(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.ToStudentSummaries(students), total, filter.Page, filter.PageSize)
}

// Get returns a student with its full payment history.
// GET /students/:id
func (h *StudentHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	student, err := h.accounts.GetStudent(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToStudentResponse(student))
}

// UpdateProfile replaces the financial profile of a student.
// PUT /students/:id/profile
func (h *StudentHandler) UpdateProfile(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.FinancialProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	student, err := h.accounts.UpdateProfile(c.Request.Context(), id, req.ToDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToStudentResponse(student))
}

// Suspend stops monthly charges from the given date.
// POST /students/:id/suspend
func (h *StudentHandler) Suspend(c *gin.Context) {
	h.changeStatus(c, h.accounts.Suspend)
}

// Reactivate resumes monthly charges from the given date.
// POST /students/:id/reactivate
func (h *StudentHandler) Reactivate(c *gin.Context) {
	h.changeStatus(c, h.accounts.Reactivate)
}

func (h *StudentHandler) changeStatus(c *gin.Context, change func(context.Context, uuid.UUID, time.Time) (*billing.Student, error)) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.StatusChangeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	at, ok := h.parseDate(c, "date", req.Date)
	if !ok {
		return
	}
	student, err := change(c.Request.Context(), id, at)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToStudentResponse(student))
}

// AddExtraCharge adds a one-off charge to a student.
// POST /students/:id/extra-charges
func (h *StudentHandler) AddExtraCharge(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ExtraChargeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	date, ok := h.parseDate(c, "date", req.Date)
	if !ok {
		return
	}
	charge, err := h.accounts.AddExtraCharge(c.Request.Context(), billingapp.AddExtraChargeRequest{
		StudentID:   id,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		ExpenseRef:  req.ExpenseRef,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, charge)
}
