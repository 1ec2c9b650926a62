package persistence

import (
	"strings"

	"gorm.io/gorm"

	"github.com/stockbooks/backend/internal/domain/shared"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InvoiceSortFields contains allowed sort fields for purchase and sales invoices
var InvoiceSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"status":         true,
	"payment_status": true,
	"date_due":       true,
	"sub_total":      true,
	"total":          true,
	"amount_paid":    true,
}

// InventorySortFields contains allowed sort fields for inventory items
var InventorySortFields = map[string]bool{
	"id":                  true,
	"created_at":          true,
	"updated_at":          true,
	"product_id":          true,
	"product_name":        true,
	"quantity":            true,
	"quantity_on_hand":    true,
	"quantity_reserved":   true,
	"unit_cost":           true,
	"reorder_level":       true,
	"last_transaction_at": true,
}

// LedgerSortFields contains allowed sort fields for ledger entries
var LedgerSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"occurred_at": true,
	"product_id":  true,
	"quantity":    true,
}

// ReturnedItemSortFields contains allowed sort fields for returned items
var ReturnedItemSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"returned_at": true,
	"product_id":  true,
	"quantity":    true,
}

// applySortAndPagination applies validated ordering and pagination from
// a shared.Filter. The allowed map guards against injection via OrderBy.
func applySortAndPagination(query *gorm.DB, filter shared.Filter, allowed map[string]bool) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, allowed, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	return query
}
