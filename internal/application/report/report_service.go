package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/inventory"
	"github.com/stockbooks/backend/internal/domain/invoicing"
)

// SummaryReport is the tenant KPI snapshot shown on the dashboard
type SummaryReport struct {
	TenantID            uuid.UUID       `json:"tenant_id"`
	PeriodStart         time.Time       `json:"period_start"`
	TotalSales          decimal.Decimal `json:"total_sales"`
	TotalPurchases      decimal.Decimal `json:"total_purchases"`
	TotalPendingPayment decimal.Decimal `json:"total_pending_payment"`
	TotalItemsSold      decimal.Decimal `json:"total_items_sold"`
	TotalStockValue     decimal.Decimal `json:"total_stock_value"`
	ReturnsCount        int64           `json:"returns_count"`
	ComputedAt          time.Time       `json:"computed_at"`
}

// ReportService aggregates tenant KPIs from the invoice and inventory
// repositories. Reads only; it never caches or mutates.
type ReportService struct {
	purchaseRepo invoicing.PurchaseInvoiceRepository
	salesRepo    invoicing.SalesInvoiceRepository
	invRepo      inventory.Repository
	returnedRepo invoicing.ReturnedItemRepository
}

// NewReportService creates a new ReportService
func NewReportService(
	purchaseRepo invoicing.PurchaseInvoiceRepository,
	salesRepo invoicing.SalesInvoiceRepository,
	invRepo inventory.Repository,
	returnedRepo invoicing.ReturnedItemRepository,
) *ReportService {
	return &ReportService{
		purchaseRepo: purchaseRepo,
		salesRepo:    salesRepo,
		invRepo:      invRepo,
		returnedRepo: returnedRepo,
	}
}

// Summary computes the KPI snapshot over a trailing window
func (s *ReportService) Summary(ctx context.Context, tenantID uuid.UUID, since time.Time) (*SummaryReport, error) {
	totalSales, err := s.salesRepo.TotalSales(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}
	totalPurchases, err := s.purchaseRepo.TotalPurchases(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}
	pendingPayment, err := s.purchaseRepo.TotalPendingPayment(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	itemsSold, err := s.salesRepo.TotalItemsSold(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}
	stockValue, err := s.invRepo.TotalStockValue(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	returnsCount, err := s.returnedRepo.CountForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &SummaryReport{
		TenantID:            tenantID,
		PeriodStart:         since,
		TotalSales:          totalSales,
		TotalPurchases:      totalPurchases,
		TotalPendingPayment: pendingPayment,
		TotalItemsSold:      itemsSold,
		TotalStockValue:     stockValue,
		ReturnsCount:        returnsCount,
		ComputedAt:          time.Now(),
	}, nil
}
