package handler

import (
	procurementapp "github.com/erp/ledger/internal/application/procurement"
	"github.com/gin-gonic/gin"
)

// PurchaseOrderHandler serves the purchase order routes and the documents
// created from an order: receipts and direct bills.
type PurchaseOrderHandler struct {
	BaseHandler
	service *procurementapp.Service
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(service *procurementapp.Service) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{service: service}
}

// Create handles POST /companies/:id/purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	var req procurementapp.CreatePurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Create(c.Request.Context(), meta, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// Get handles GET /companies/:id/purchase-orders/:poId
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	orderID, ok := h.PathUUID(c, "poId", "purchase order")
	if !ok {
		return
	}

	order, err := h.service.GetByID(c.Request.Context(), tenantID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Update handles PUT /companies/:id/purchase-orders/:poId. Only drafts are editable.
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	orderID, ok := h.PathUUID(c, "poId", "purchase order")
	if !ok {
		return
	}
	var req procurementapp.UpdatePurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Update(c.Request.Context(), meta, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Delete handles DELETE /companies/:id/purchase-orders/:poId
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	orderID, ok := h.PathUUID(c, "poId", "purchase order")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), meta, orderID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Approve handles POST /companies/:id/purchase-orders/:poId/approve
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	orderID, ok := h.PathUUID(c, "poId", "purchase order")
	if !ok {
		return
	}

	order, err := h.service.Approve(c.Request.Context(), meta, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Cancel handles POST /companies/:id/purchase-orders/:poId/cancel
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	orderID, ok := h.PathUUID(c, "poId", "purchase order")
	if !ok {
		return
	}
	var req procurementapp.CancelPurchaseOrderRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	order, err := h.service.Cancel(c.Request.Context(), meta, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// ReceivingSummary handles GET /companies/:id/purchase-orders/:poId/receiving/summary
func (h *PurchaseOrderHandler) ReceivingSummary(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	orderID, ok := h.PathUUID(c, "poId", "purchase order")
	if !ok {
		return
	}

	summary, err := h.service.ReceivingSummary(c.Request.Context(), tenantID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// CreateReceipt handles POST /companies/:id/purchase-orders/:poId/receipts.
// The receipt is created as a draft; an empty body receives everything remaining.
func (h *PurchaseOrderHandler) CreateReceipt(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	orderID, ok := h.PathUUID(c, "poId", "purchase order")
	if !ok {
		return
	}
	var req procurementapp.CreateReceiptRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	receipt, err := h.service.CreateReceipt(c.Request.Context(), meta, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, receipt)
}

// ConvertToBill handles POST /companies/:id/purchase-orders/:poId/convert-to-bill
func (h *PurchaseOrderHandler) ConvertToBill(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	orderID, ok := h.PathUUID(c, "poId", "purchase order")
	if !ok {
		return
	}
	var req procurementapp.ConvertToBillRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	bill, err := h.service.ConvertToBill(c.Request.Context(), meta, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, bill)
}

// ReceiveAndBill handles POST /companies/:id/purchase-orders/:poId/receive-and-bill
func (h *PurchaseOrderHandler) ReceiveAndBill(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	orderID, ok := h.PathUUID(c, "poId", "purchase order")
	if !ok {
		return
	}
	var req procurementapp.ReceiveAndBillRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	result, err := h.service.ReceiveAndBill(c.Request.Context(), meta, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
