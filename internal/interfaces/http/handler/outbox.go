package handler

import (
	"github.com/erp/ledger/internal/application/event"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxHandler serves /companies/:id/outbox
type OutboxHandler struct {
	BaseHandler
	outbox *event.OutboxService
}

func NewOutboxHandler(outbox *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// ReviveAllResponse reports how many dead events went back to the queue
type ReviveAllResponse struct {
	Count int64 `json:"count"`
}

// Stats handles GET /outbox/stats
func (h *OutboxHandler) Stats(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	stats, err := h.outbox.Stats(c.Request.Context(), tenantID)
	h.respond(c, stats, err)
}

// ListDead handles GET /outbox/dead
func (h *OutboxHandler) ListDead(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	var filter event.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	res, err := h.outbox.ListDead(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, res.Entries, res.Total, res.Page, res.PageSize)
}

// ReviveAll handles POST /outbox/dead/retry-all
func (h *OutboxHandler) ReviveAll(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	n, err := h.outbox.ReviveAll(c.Request.Context(), tenantID)
	h.respond(c, ReviveAllResponse{Count: n}, err)
}

// Entry handles GET /outbox/:entryId
func (h *OutboxHandler) Entry(c *gin.Context) {
	tenantID, id, ok := h.entryRef(c)
	if !ok {
		return
	}
	entry, err := h.outbox.Entry(c.Request.Context(), tenantID, id)
	h.respond(c, entry, err)
}

// Revive handles POST /outbox/:entryId/retry
func (h *OutboxHandler) Revive(c *gin.Context) {
	tenantID, id, ok := h.entryRef(c)
	if !ok {
		return
	}
	entry, err := h.outbox.Revive(c.Request.Context(), tenantID, id)
	h.respond(c, entry, err)
}

func (h *OutboxHandler) entryRef(c *gin.Context) (tenantID, id uuid.UUID, ok bool) {
	if tenantID, ok = h.Tenant(c); !ok {
		return
	}
	id, ok = h.PathUUID(c, "entryId", "outbox entry")
	return
}

func (h *OutboxHandler) respond(c *gin.Context, data any, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, data)
}
