package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/stockbooks/backend/internal/application/inventory"
)

// InventoryHandler handles stock record API endpoints
type InventoryHandler struct {
	BaseHandler
	service *inventoryapp.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(service *inventoryapp.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// List returns stock records matching the filter, paginated. The
// below_reorder_level flag narrows the list to low-stock rows.
func (h *InventoryHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter inventoryapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetByProduct fetches the stock record of one product
func (h *InventoryHandler) GetByProduct(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	item, err := h.service.GetByProduct(c.Request.Context(), tenantID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// SetReorderLevel updates the reorder threshold of one product's stock record
func (h *InventoryHandler) SetReorderLevel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req inventoryapp.SetReorderLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	item, err := h.service.SetReorderLevel(c.Request.Context(), tenantID, productID, req.ReorderLevel)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// BulkDelete removes a batch of stock records. Rows with open ledger history
// are reported back as blocked instead of deleted.
func (h *InventoryHandler) BulkDelete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req inventoryapp.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.service.BulkDelete(c.Request.Context(), tenantID, req.IDs)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// StockValue returns the tenant's total on-hand stock value
func (h *InventoryHandler) StockValue(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	value, err := h.service.StockValue(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"total_stock_value": value})
}

// RegisterRoutes registers all inventory routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inventory := rg.Group("/inventory")
	{
		inventory.GET("", h.List)
		inventory.GET("/value", h.StockValue)
		inventory.GET("/products/:productId", h.GetByProduct)
		inventory.PUT("/products/:productId/reorder-level", h.SetReorderLevel)
		inventory.POST("/bulk-delete", h.BulkDelete)
	}
}
