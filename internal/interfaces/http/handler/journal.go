package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// JournalHandler serves posted journal entries
type JournalHandler struct {
	BaseHandler
	service *ledgerapp.JournalService
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(service *ledgerapp.JournalService) *JournalHandler {
	return &JournalHandler{service: service}
}

// Create handles POST /companies/:id/journal-entries
func (h *JournalHandler) Create(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	var req ledgerapp.CreateJournalEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entry, err := h.service.Post(c.Request.Context(), meta, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// Get handles GET /companies/:id/journal-entries/:entryId
func (h *JournalHandler) Get(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	entryID, ok := h.PathUUID(c, "entryId", "journal entry")
	if !ok {
		return
	}

	entry, err := h.service.GetByID(c.Request.Context(), tenantID, entryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Reverse handles POST /companies/:id/journal-entries/:entryId/reverse.
// Posted entries are never edited; a reversal posts the mirror entry.
func (h *JournalHandler) Reverse(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	entryID, ok := h.PathUUID(c, "entryId", "journal entry")
	if !ok {
		return
	}
	var req ledgerapp.ReverseEntryRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	reversal, err := h.service.Reverse(c.Request.Context(), meta, entryID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, reversal)
}
