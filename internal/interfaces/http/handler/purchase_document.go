package handler

import (
	procurementapp "github.com/erp/ledger/internal/application/procurement"
	"github.com/gin-gonic/gin"
)

// PurchaseReceiptHandler serves goods receipts
type PurchaseReceiptHandler struct {
	BaseHandler
	service *procurementapp.Service
}

// NewPurchaseReceiptHandler creates a new PurchaseReceiptHandler
func NewPurchaseReceiptHandler(service *procurementapp.Service) *PurchaseReceiptHandler {
	return &PurchaseReceiptHandler{service: service}
}

// Get handles GET /companies/:id/purchase-receipts/:receiptId
func (h *PurchaseReceiptHandler) Get(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	receiptID, ok := h.PathUUID(c, "receiptId", "receipt")
	if !ok {
		return
	}

	receipt, err := h.service.GetReceipt(c.Request.Context(), tenantID, receiptID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, receipt)
}

// Post handles POST /companies/:id/purchase-receipts/:receiptId/post
func (h *PurchaseReceiptHandler) Post(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	receiptID, ok := h.PathUUID(c, "receiptId", "receipt")
	if !ok {
		return
	}

	result, err := h.service.PostReceipt(c.Request.Context(), meta, receiptID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PurchaseBillHandler serves vendor bills and their payments
type PurchaseBillHandler struct {
	BaseHandler
	service *procurementapp.Service
}

// NewPurchaseBillHandler creates a new PurchaseBillHandler
func NewPurchaseBillHandler(service *procurementapp.Service) *PurchaseBillHandler {
	return &PurchaseBillHandler{service: service}
}

// Get handles GET /companies/:id/purchase-bills/:billId
func (h *PurchaseBillHandler) Get(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	billID, ok := h.PathUUID(c, "billId", "bill")
	if !ok {
		return
	}

	bill, err := h.service.GetBill(c.Request.Context(), tenantID, billID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// Post handles POST /companies/:id/purchase-bills/:billId/post
func (h *PurchaseBillHandler) Post(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	billID, ok := h.PathUUID(c, "billId", "bill")
	if !ok {
		return
	}

	bill, err := h.service.PostBill(c.Request.Context(), meta, billID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// RecordPayment handles POST /companies/:id/purchase-bills/:billId/payments
func (h *PurchaseBillHandler) RecordPayment(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	billID, ok := h.PathUUID(c, "billId", "bill")
	if !ok {
		return
	}
	var req procurementapp.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	bill, err := h.service.RecordPayment(c.Request.Context(), meta, billID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}
