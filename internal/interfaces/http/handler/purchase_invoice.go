package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	invoicingapp "github.com/stockbooks/backend/internal/application/invoicing"
)

// PurchaseInvoiceHandler handles purchase invoice API endpoints
type PurchaseInvoiceHandler struct {
	BaseHandler
	service *invoicingapp.PurchaseInvoiceService
}

// NewPurchaseInvoiceHandler creates a new PurchaseInvoiceHandler
func NewPurchaseInvoiceHandler(service *invoicingapp.PurchaseInvoiceService) *PurchaseInvoiceHandler {
	return &PurchaseInvoiceHandler{service: service}
}

// Create creates a purchase invoice with its lines
func (h *PurchaseInvoiceHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req invoicingapp.CreatePurchaseInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	inv, err := h.service.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, inv)
}

// GetByID fetches one purchase invoice with its lines
func (h *PurchaseInvoiceHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := h.service.GetByID(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, inv)
}

// List returns purchase invoices matching the filter, paginated
func (h *PurchaseInvoiceHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter invoicingapp.InvoiceListFilter
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

// Restock records cumulative received quantities and reconciles the invoice
// against inventory
func (h *PurchaseInvoiceHandler) Restock(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req invoicingapp.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.service.Restock(c.Request.Context(), tenantID, invoiceID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Delete removes a purchase invoice without fulfillment history
func (h *PurchaseInvoiceHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.service.Delete(c.Request.Context(), tenantID, invoiceID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers all purchase invoice routes
func (h *PurchaseInvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/purchase-invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/:id", h.GetByID)
		invoices.POST("/:id/restock", h.Restock)
		invoices.DELETE("/:id", h.Delete)
	}
}
