package handler

import (
	"github.com/erp/ledger/internal/application/masterdata"
	"github.com/gin-gonic/gin"
)

// MasterDataHandler serves accounts, items and locations
type MasterDataHandler struct {
	BaseHandler
	service *masterdata.Service
}

// NewMasterDataHandler creates a new MasterDataHandler
func NewMasterDataHandler(service *masterdata.Service) *MasterDataHandler {
	return &MasterDataHandler{service: service}
}

// CreateAccount handles POST /companies/:id/accounts
func (h *MasterDataHandler) CreateAccount(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	var req masterdata.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account, err := h.service.CreateAccount(c.Request.Context(), meta, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// ListAccounts handles GET /companies/:id/accounts
func (h *MasterDataHandler) ListAccounts(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	accounts, err := h.service.ListAccounts(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// CreateItem handles POST /companies/:id/items
func (h *MasterDataHandler) CreateItem(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	var req masterdata.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), meta, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// ListItems handles GET /companies/:id/items
func (h *MasterDataHandler) ListItems(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	items, err := h.service.ListItems(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// CreateLocation handles POST /companies/:id/locations
func (h *MasterDataHandler) CreateLocation(c *gin.Context) {
	meta, ok := h.Command(c)
	if !ok {
		return
	}
	var req masterdata.CreateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	location, err := h.service.CreateLocation(c.Request.Context(), meta, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, location)
}

// ListLocations handles GET /companies/:id/locations
func (h *MasterDataHandler) ListLocations(c *gin.Context) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return
	}
	locations, err := h.service.ListLocations(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, locations)
}
