package handler

import (
	"strconv"

	inventoryapp "github.com/erp/ledger/internal/application/inventory"
	"github.com/gin-gonic/gin"
)

// StockHandler serves weighted-average stock positions
type StockHandler struct {
	BaseHandler
	service *inventoryapp.StockQueryService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(service *inventoryapp.StockQueryService) *StockHandler {
	return &StockHandler{service: service}
}

// GetPosition handles GET /companies/:id/items/:itemId/locations/:locationId/stock.
// ?moves=true includes the item's stock ledger at the location.
func (h *StockHandler) GetPosition(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	itemID, ok := h.PathUUID(c, "itemId", "item")
	if !ok {
		return
	}
	locationID, ok := h.PathUUID(c, "locationId", "location")
	if !ok {
		return
	}
	withMoves, _ := strconv.ParseBool(c.Query("moves"))

	pos, err := h.service.GetPosition(c.Request.Context(), tenantID, itemID, locationID, withMoves)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pos)
}
