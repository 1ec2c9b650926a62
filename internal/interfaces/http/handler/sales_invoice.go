package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	invoicingapp "github.com/stockbooks/backend/internal/application/invoicing"
)

// SalesInvoiceHandler handles sales invoice API endpoints, including the
// returns sub-resource
type SalesInvoiceHandler struct {
	BaseHandler
	service       *invoicingapp.SalesInvoiceService
	returnService *invoicingapp.ReturnService
}

// NewSalesInvoiceHandler creates a new SalesInvoiceHandler
func NewSalesInvoiceHandler(service *invoicingapp.SalesInvoiceService, returnService *invoicingapp.ReturnService) *SalesInvoiceHandler {
	return &SalesInvoiceHandler{
		service:       service,
		returnService: returnService,
	}
}

// Create creates a sales invoice with its lines and reconciles it when the
// requested status triggers fulfillment
func (h *SalesInvoiceHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req invoicingapp.CreateSalesInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	inv, err := h.service.CreateWithItems(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, inv)
}

// Update replaces the mutable header fields and lines of a sales invoice in
// one shot, then reconciles the result against inventory
func (h *SalesInvoiceHandler) Update(c *gin.Context) {
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

	var req invoicingapp.UpdateSalesInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	inv, err := h.service.UpdateWithItems(c.Request.Context(), tenantID, invoiceID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, inv)
}

// GetByID fetches one sales invoice with its lines
func (h *SalesInvoiceHandler) GetByID(c *gin.Context) {
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

// List returns sales invoices matching the filter, paginated
func (h *SalesInvoiceHandler) List(c *gin.Context) {
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

// Ship records cumulative shipped quantities and reconciles the invoice
// against inventory
func (h *SalesInvoiceHandler) Ship(c *gin.Context) {
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

	var req invoicingapp.ShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.service.Ship(c.Request.Context(), tenantID, invoiceID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Delete removes a sales invoice without fulfillment history
func (h *SalesInvoiceHandler) Delete(c *gin.Context) {
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

// MarkReturned flags a sales line as returned and records the return
func (h *SalesInvoiceHandler) MarkReturned(c *gin.Context) {
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

	var req invoicingapp.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	record, err := h.returnService.MarkReturned(c.Request.Context(), tenantID, invoiceID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, record)
}

// ListReturns returns the recorded returns of one invoice
func (h *SalesInvoiceHandler) ListReturns(c *gin.Context) {
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

	records, err := h.returnService.ListByInvoice(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, records)
}

// RegisterRoutes registers all sales invoice routes
func (h *SalesInvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/sales-invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/:id", h.GetByID)
		invoices.PUT("/:id", h.Update)
		invoices.POST("/:id/ship", h.Ship)
		invoices.DELETE("/:id", h.Delete)
		invoices.POST("/:id/returns", h.MarkReturned)
		invoices.GET("/:id/returns", h.ListReturns)
	}
}
