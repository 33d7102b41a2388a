package handler

import (
	periodapp "github.com/erp/ledger/internal/application/period"
	"github.com/gin-gonic/gin"
)

// AccountingPeriodHandler serves accounting period management
type AccountingPeriodHandler struct {
	BaseHandler
	service *periodapp.Service
}

// NewAccountingPeriodHandler creates a new AccountingPeriodHandler
func NewAccountingPeriodHandler(service *periodapp.Service) *AccountingPeriodHandler {
	return &AccountingPeriodHandler{service: service}
}

// Create handles POST /companies/:id/accounting-periods
func (h *AccountingPeriodHandler) Create(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	var req periodapp.CreatePeriodRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), meta, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// Close handles POST /companies/:id/accounting-periods/:periodId/close
func (h *AccountingPeriodHandler) Close(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	periodID, ok := h.PathUUID(c, "periodId", "accounting period")
	if !ok {
		return
	}

	p, err := h.service.Close(c.Request.Context(), meta, periodID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Reopen handles POST /companies/:id/accounting-periods/:periodId/reopen
func (h *AccountingPeriodHandler) Reopen(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	periodID, ok := h.PathUUID(c, "periodId", "accounting period")
	if !ok {
		return
	}

	p, err := h.service.Reopen(c.Request.Context(), meta, periodID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}
