package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/invoicing"
	"github.com/stockbooks/backend/internal/domain/shared/valueobject"
)

// ==================== Purchase Invoice DTOs ====================

// CreatePurchaseInvoiceRequest represents a request to create a purchase invoice
type CreatePurchaseInvoiceRequest struct {
	InvoiceNumber string                     `json:"invoice_number" binding:"required,min=1,max=50"`
	SupplierID    uuid.UUID                  `json:"supplier_id" binding:"required"`
	SupplierName  string                     `json:"supplier_name" binding:"required,min=1,max=200"`
	DateDue       *time.Time                 `json:"date_due"`
	Tax           *AdjustmentInput           `json:"tax"`
	Discount      *AdjustmentInput           `json:"discount"`
	Items         []CreateInvoiceLineInput   `json:"items"`
	Notes         string                     `json:"notes"`
}

// CreateInvoiceLineInput represents a line item in a create request
type CreateInvoiceLineInput struct {
	ProductID   uuid.UUID        `json:"product_id" binding:"required"`
	ProductName string           `json:"product_name" binding:"required,min=1,max=200"`
	Quantity    decimal.Decimal  `json:"quantity" binding:"required"`
	UnitCost    decimal.Decimal  `json:"unit_cost"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Discount    *AdjustmentInput `json:"discount"`
	Notes       string           `json:"notes"`
}

// AdjustmentInput is the wire form of a tax or discount adjustment
type AdjustmentInput struct {
	Value decimal.Decimal `json:"value" binding:"required"`
	Kind  string          `json:"kind" binding:"required,oneof=percentage amount"`
}

// ToAdjustment converts the input to a domain adjustment
func (a *AdjustmentInput) ToAdjustment() valueobject.Adjustment {
	if a == nil {
		return valueobject.Adjustment{}
	}
	return valueobject.Adjustment{Value: a.Value, Kind: valueobject.AdjustmentKind(a.Kind)}
}

// RestockRequest declares cumulative received quantities per product
type RestockRequest struct {
	Items []RestockItemInput `json:"items" binding:"required,min=1,dive"`
}

// RestockItemInput is one product's cumulative received quantity
type RestockItemInput struct {
	ProductID        uuid.UUID       `json:"product_id" binding:"required"`
	QuantityReceived decimal.Decimal `json:"quantity_received" binding:"required"`
}

// PurchaseInvoiceResponse is the full read model of a purchase invoice
type PurchaseInvoiceResponse struct {
	ID                 uuid.UUID                     `json:"id"`
	InvoiceNumber      string                        `json:"invoice_number"`
	SupplierID         uuid.UUID                     `json:"supplier_id"`
	SupplierName       string                        `json:"supplier_name"`
	Status             string                        `json:"status"`
	PaymentStatus      string                        `json:"payment_status"`
	DateDue            *time.Time                    `json:"date_due,omitempty"`
	SubTotal           decimal.Decimal               `json:"sub_total"`
	Total              decimal.Decimal               `json:"total"`
	Fulfilled          bool                          `json:"fulfilled"`
	PartiallyFulfilled bool                          `json:"partially_fulfilled"`
	Notes              string                        `json:"notes,omitempty"`
	Items              []PurchaseInvoiceItemResponse `json:"items"`
	CreatedAt          time.Time                     `json:"created_at"`
	UpdatedAt          time.Time                     `json:"updated_at"`
}

// PurchaseInvoiceItemResponse is the read model of a purchase invoice line
type PurchaseInvoiceItemResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ProductID          uuid.UUID       `json:"product_id"`
	ProductName        string          `json:"product_name"`
	Quantity           decimal.Decimal `json:"quantity"`
	QuantityReceived   decimal.Decimal `json:"quantity_received"`
	QuantityFulfilled  decimal.Decimal `json:"quantity_fulfilled"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	State              string          `json:"state"`
	Fulfilled          bool            `json:"fulfilled"`
	PartiallyFulfilled bool            `json:"partially_fulfilled"`
}

// ToPurchaseInvoiceResponse converts a purchase invoice aggregate to its response DTO
func ToPurchaseInvoiceResponse(inv *invoicing.PurchaseInvoice) PurchaseInvoiceResponse {
	items := make([]PurchaseInvoiceItemResponse, 0, len(inv.Items))
	for idx := range inv.Items {
		item := &inv.Items[idx]
		items = append(items, PurchaseInvoiceItemResponse{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			ProductName:        item.ProductName,
			Quantity:           item.Quantity,
			QuantityReceived:   item.QuantityReceived,
			QuantityFulfilled:  item.QuantityFulfilled,
			UnitCost:           item.UnitCost,
			State:              item.State().String(),
			Fulfilled:          item.Fulfilled,
			PartiallyFulfilled: item.PartiallyFulfilled,
		})
	}
	return PurchaseInvoiceResponse{
		ID:                 inv.ID,
		InvoiceNumber:      inv.InvoiceNumber,
		SupplierID:         inv.SupplierID,
		SupplierName:       inv.SupplierName,
		Status:             inv.Status.String(),
		PaymentStatus:      inv.PaymentStatus.String(),
		DateDue:            inv.DateDue,
		SubTotal:           inv.SubTotal,
		Total:              inv.Total,
		Fulfilled:          inv.Fulfilled,
		PartiallyFulfilled: inv.PartiallyFulfilled,
		Notes:              inv.Notes,
		Items:              items,
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
	}
}

// ==================== Sales Invoice DTOs ====================

// CreateSalesInvoiceRequest represents a request to create a sales invoice
type CreateSalesInvoiceRequest struct {
	InvoiceNumber string                   `json:"invoice_number" binding:"required,min=1,max=50"`
	CustomerID    uuid.UUID                `json:"customer_id" binding:"required"`
	CustomerName  string                   `json:"customer_name" binding:"required,min=1,max=200"`
	Status        string                   `json:"status"`
	DateDue       *time.Time               `json:"date_due"`
	Tax           *AdjustmentInput         `json:"tax"`
	Discount      *AdjustmentInput         `json:"discount"`
	Items         []CreateInvoiceLineInput `json:"items"`
	Notes         string                   `json:"notes"`
}

// UpdateSalesInvoiceRequest replaces the mutable header fields and lines of
// a sales invoice in one shot
type UpdateSalesInvoiceRequest struct {
	Status   string                   `json:"status"`
	DateDue  *time.Time               `json:"date_due"`
	Tax      *AdjustmentInput         `json:"tax"`
	Discount *AdjustmentInput         `json:"discount"`
	Items    []CreateInvoiceLineInput `json:"items" binding:"required,min=1,dive"`
	Notes    *string                  `json:"notes"`
}

// ShipmentRequest declares cumulative shipped quantities per product
type ShipmentRequest struct {
	Items []ShipmentItemInput `json:"items" binding:"required,min=1,dive"`
}

// ShipmentItemInput is one product's cumulative shipped quantity
type ShipmentItemInput struct {
	ProductID       uuid.UUID       `json:"product_id" binding:"required"`
	QuantityShipped decimal.Decimal `json:"quantity_shipped" binding:"required"`
}

// ReturnRequest marks a sales line as returned
type ReturnRequest struct {
	LineID uuid.UUID `json:"line_id" binding:"required"`
	Reason string    `json:"reason"`
}

// SalesInvoiceResponse is the full read model of a sales invoice
type SalesInvoiceResponse struct {
	ID                 uuid.UUID                  `json:"id"`
	InvoiceNumber      string                     `json:"invoice_number"`
	CustomerID         uuid.UUID                  `json:"customer_id"`
	CustomerName       string                     `json:"customer_name"`
	Status             string                     `json:"status"`
	PaymentStatus      string                     `json:"payment_status"`
	DateDue            *time.Time                 `json:"date_due,omitempty"`
	SubTotal           decimal.Decimal            `json:"sub_total"`
	Total              decimal.Decimal            `json:"total"`
	Fulfilled          bool                       `json:"fulfilled"`
	PartiallyFulfilled bool                       `json:"partially_fulfilled"`
	Notes              string                     `json:"notes,omitempty"`
	Items              []SalesInvoiceItemResponse `json:"items"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

// SalesInvoiceItemResponse is the read model of a sales invoice line
type SalesInvoiceItemResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ProductID          uuid.UUID       `json:"product_id"`
	ProductName        string          `json:"product_name"`
	Quantity           decimal.Decimal `json:"quantity"`
	QuantityShipped    decimal.Decimal `json:"quantity_shipped"`
	QuantityFulfilled  decimal.Decimal `json:"quantity_fulfilled"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	State              string          `json:"state"`
	Fulfilled          bool            `json:"fulfilled"`
	PartiallyFulfilled bool            `json:"partially_fulfilled"`
	Returned           bool            `json:"returned"`
	ReturnedAt         *time.Time      `json:"returned_at,omitempty"`
}

// ToSalesInvoiceResponse converts a sales invoice aggregate to its response DTO
func ToSalesInvoiceResponse(inv *invoicing.SalesInvoice) SalesInvoiceResponse {
	items := make([]SalesInvoiceItemResponse, 0, len(inv.Items))
	for idx := range inv.Items {
		item := &inv.Items[idx]
		items = append(items, SalesInvoiceItemResponse{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			ProductName:        item.ProductName,
			Quantity:           item.Quantity,
			QuantityShipped:    item.QuantityShipped,
			QuantityFulfilled:  item.QuantityFulfilled,
			UnitPrice:          item.UnitPrice,
			State:              item.State().String(),
			Fulfilled:          item.Fulfilled,
			PartiallyFulfilled: item.PartiallyFulfilled,
			Returned:           item.Returned,
			ReturnedAt:         item.ReturnedAt,
		})
	}
	return SalesInvoiceResponse{
		ID:                 inv.ID,
		InvoiceNumber:      inv.InvoiceNumber,
		CustomerID:         inv.CustomerID,
		CustomerName:       inv.CustomerName,
		Status:             inv.Status.String(),
		PaymentStatus:      inv.PaymentStatus.String(),
		DateDue:            inv.DateDue,
		SubTotal:           inv.SubTotal,
		Total:              inv.Total,
		Fulfilled:          inv.Fulfilled,
		PartiallyFulfilled: inv.PartiallyFulfilled,
		Notes:              inv.Notes,
		Items:              items,
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
	}
}

// ==================== Return DTOs ====================

// ReturnedItemResponse is the read model of a recorded return
type ReturnedItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	LineID      uuid.UUID       `json:"line_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Restocked   bool            `json:"restocked"`
	Reason      string          `json:"reason,omitempty"`
	ReturnedAt  time.Time       `json:"returned_at"`
}

// ToReturnedItemResponse converts a returned item record to its response DTO
func ToReturnedItemResponse(rec *invoicing.ReturnedItem) ReturnedItemResponse {
	return ReturnedItemResponse{
		ID:          rec.ID,
		InvoiceID:   rec.InvoiceID,
		LineID:      rec.LineID,
		ProductID:   rec.ProductID,
		ProductName: rec.ProductName,
		Quantity:    rec.Quantity,
		Restocked:   rec.Restocked,
		Reason:      rec.Reason,
		ReturnedAt:  rec.ReturnedAt,
	}
}

// ==================== List DTOs ====================

// InvoiceListFilter carries common list filtering options
type InvoiceListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Status   string `form:"status"`
	Search   string `form:"search"`
}
