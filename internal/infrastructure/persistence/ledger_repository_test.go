package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stockbooks/backend/internal/domain/invoicing"
)

func newMockLedgerRepository(t *testing.T) (*GormLedgerRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormLedgerRepository(gormDB), mock, mockDB
}

func TestGormLedgerRepository_Append(t *testing.T) {
	t.Run("nothing to append is a no-op", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		err := repo.Append(context.Background(), nil)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inserts entries in one batch", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		entry, err := invoicing.NewLedgerEntry(
			tenantID, invoicing.InvoiceKindPurchase, uuid.New(), uuid.New(), uuid.New(),
			invoicing.LedgerDirectionRestock, decimal.NewFromInt(5), "TXN-1",
		)
		require.NoError(t, err)

		mock.ExpectQuery(`INSERT INTO "ledger_entries"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(entry.ID))

		err = repo.Append(context.Background(), []*invoicing.LedgerEntry{entry})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLedgerRepository_FindByLine(t *testing.T) {
	t.Run("returns entries ordered by occurrence", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		lineID := uuid.New()

		rows := sqlmock.NewRows([]string{
			"id", "tenant_id", "invoice_kind", "invoice_id", "line_id",
			"product_id", "direction", "quantity", "transaction_id", "occurred_at",
		}).
			AddRow(uuid.New(), tenantID, "PURCHASE", uuid.New(), lineID,
				uuid.New(), "RESTOCK", decimal.NewFromInt(3), "TXN-1", time.Now().Add(-time.Hour)).
			AddRow(uuid.New(), tenantID, "PURCHASE", uuid.New(), lineID,
				uuid.New(), "RESTOCK", decimal.NewFromInt(2), "TXN-2", time.Now())

		mock.ExpectQuery(`SELECT \* FROM "ledger_entries" WHERE tenant_id = \$1 AND line_id = \$2 ORDER BY occurred_at ASC`).
			WithArgs(tenantID, lineID).
			WillReturnRows(rows)

		entries, err := repo.FindByLine(context.Background(), tenantID, lineID)

		assert.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "TXN-1", entries[0].TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLedgerRepository_SumAppliedByLine(t *testing.T) {
	// The sum is direction-signed in SQL: deductions count negative so a
	// reversing restock cancels them instead of doubling the line total.
	t.Run("signs deductions negative", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		lineID := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(CASE WHEN direction = 'DEDUCTION' THEN -quantity ELSE quantity END\), 0\) as total FROM "ledger_entries" WHERE tenant_id = \$1 AND line_id = \$2`).
			WithArgs(tenantID, lineID).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(decimal.NewFromInt(-6)))

		total, err := repo.SumAppliedByLine(context.Background(), tenantID, lineID)

		assert.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(-6)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns zero when the line has no entries", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		lineID := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(CASE WHEN direction = 'DEDUCTION' THEN -quantity ELSE quantity END\), 0\) as total FROM "ledger_entries" WHERE tenant_id = \$1 AND line_id = \$2`).
			WithArgs(tenantID, lineID).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(decimal.Zero))

		total, err := repo.SumAppliedByLine(context.Background(), tenantID, lineID)

		assert.NoError(t, err)
		assert.True(t, total.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLedgerRepository_SumAppliedByLines(t *testing.T) {
	t.Run("groups applied sums by line", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		lineA := uuid.New()
		lineB := uuid.New()

		rows := sqlmock.NewRows([]string{"line_id", "total"}).
			AddRow(lineA, decimal.NewFromInt(7)).
			AddRow(lineB, decimal.NewFromInt(2))

		mock.ExpectQuery(`SELECT line_id, COALESCE\(SUM\(CASE WHEN direction = 'DEDUCTION' THEN -quantity ELSE quantity END\), 0\) as total FROM "ledger_entries" WHERE tenant_id = \$1 AND line_id IN \(\$2,\$3\) GROUP BY "line_id"`).
			WithArgs(tenantID, lineA, lineB).
			WillReturnRows(rows)

		sums, err := repo.SumAppliedByLines(context.Background(), tenantID, []uuid.UUID{lineA, lineB})

		assert.NoError(t, err)
		require.Len(t, sums, 2)
		assert.True(t, sums[lineA].Equal(decimal.NewFromInt(7)))
		assert.True(t, sums[lineB].Equal(decimal.NewFromInt(2)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty line list skips the query", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		sums, err := repo.SumAppliedByLines(context.Background(), uuid.New(), nil)

		assert.NoError(t, err)
		assert.Empty(t, sums)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLedgerRepository_CountOpenByProduct(t *testing.T) {
	t.Run("counts movement history for one product", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		productID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "ledger_entries" WHERE tenant_id = \$1 AND product_id = \$2`).
			WithArgs(tenantID, productID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

		count, err := repo.CountOpenByProduct(context.Background(), tenantID, productID)

		assert.NoError(t, err)
		assert.Equal(t, int64(4), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLedgerRepository_DeleteByInvoice(t *testing.T) {
	t.Run("removes all entries for the invoice", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		invoiceID := uuid.New()

		mock.ExpectExec(`DELETE FROM "ledger_entries" WHERE tenant_id = \$1 AND invoice_id = \$2`).
			WithArgs(tenantID, invoiceID).
			WillReturnResult(sqlmock.NewResult(0, 3))

		err := repo.DeleteByInvoice(context.Background(), tenantID, invoiceID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
