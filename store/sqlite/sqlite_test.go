package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-ledger/ledger"
	"github.com/warp/budget-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedReferences(t *testing.T, s *sqlite.Store) (ledger.DepartmentID, ledger.SupplierID) {
	t.Helper()
	ctx := context.Background()
	deptID, err := s.SaveDepartment(ctx, ledger.Department{Name: "Engineering"})
	require.NoError(t, err)
	supplierID, err := s.SaveSupplier(ctx, ledger.Supplier{Name: "Initech"})
	require.NoError(t, err)
	return deptID, supplierID
}

func testOrder(deptID ledger.DepartmentID, supplierID ledger.SupplierID, number int, date time.Time) ledger.Order {
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	return ledger.Order{
		Number:       number,
		DepartmentID: deptID,
		SupplierID:   supplierID,
		Amount:       decimal.RequireFromString("99.50"),
		Quantity:     3,
		Description:  "Cables",
		Date:         date,
		Status:       ledger.StatusInProcess,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// =============================================================================
// POOLS
// =============================================================================

func TestSQLite_PoolRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	deptID, _ := seedReferences(t, s)

	id, err := s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryBudget, 2026, decimal.RequireFromString("50000.25")))
	require.NoError(t, err)

	found, err := s.FindPool(ctx, deptID, ledger.CategoryBudget, 2026)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)
	assert.True(t, found.Amount.Equal(decimal.RequireFromString("50000.25")))
	assert.Equal(t, 2026, found.Year())

	// Different year and category both miss.
	miss, err := s.FindPool(ctx, deptID, ledger.CategoryBudget, 2025)
	require.NoError(t, err)
	assert.Nil(t, miss)
	miss, err = s.FindPool(ctx, deptID, ledger.CategoryInvestment, 2026)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestSQLite_PoolUniquePerDepartmentCategoryYear(t *testing.T) {
	// GIVEN: A budget pool for (department, 2026)
	// WHEN: Inserting a second one for the same key
	// THEN: The unique index rejects it

	s := newTestStore(t)
	ctx := context.Background()
	deptID, _ := seedReferences(t, s)

	_, err := s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryBudget, 2026, decimal.NewFromInt(100)))
	require.NoError(t, err)

	_, err = s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryBudget, 2026, decimal.NewFromInt(200)))
	require.ErrorIs(t, err, ledger.ErrTransaction)
	assert.False(t, ledger.IsRetryable(err), "constraint violations must not be retried")

	// The other category is still free.
	_, err = s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryInvestment, 2026, decimal.NewFromInt(300)))
	require.NoError(t, err)
}

func TestSQLite_UpdatePoolAmount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	deptID, _ := seedReferences(t, s)

	id, err := s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryBudget, 2026, decimal.NewFromInt(100)))
	require.NoError(t, err)

	require.NoError(t, s.UpdatePoolAmount(ctx, id, decimal.NewFromInt(250)))
	found, err := s.GetPool(ctx, id)
	require.NoError(t, err)
	assert.True(t, found.Amount.Equal(decimal.NewFromInt(250)))

	err = s.UpdatePoolAmount(ctx, 999, decimal.NewFromInt(1))
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSQLite_PoolYears(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	deptID, _ := seedReferences(t, s)

	for _, year := range []int{2026, 2024, 2025} {
		_, err := s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryBudget, year, decimal.NewFromInt(10)))
		require.NoError(t, err)
	}
	// A second category in an existing year must not duplicate the year.
	_, err := s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryInvestment, 2025, decimal.NewFromInt(10)))
	require.NoError(t, err)

	years, err := s.PoolYears(ctx, deptID)
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2025, 2026}, years)
}

// =============================================================================
// ORDERS AND ATTACHMENTS
// =============================================================================

func TestSQLite_OrderRoundTripWithAttachment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	deptID, supplierID := seedReferences(t, s)

	poolID, err := s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryInvestment, 2026, decimal.NewFromInt(5000)))
	require.NoError(t, err)

	orderID, err := s.InsertOrder(ctx, testOrder(deptID, supplierID, 1, time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NoError(t, s.InsertAttachment(ctx, orderID, ledger.InvestmentAttachment(poolID, "7")))

	found, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 1, found.Number)
	assert.True(t, found.Amount.Equal(decimal.RequireFromString("99.50")))
	assert.Equal(t, ledger.CategoryInvestment, found.Attachment.Category)
	assert.Equal(t, poolID, found.Attachment.PoolID)
	assert.Equal(t, "7", found.Attachment.InvestmentSequence)

	attached, err := s.OrdersForPool(ctx, poolID)
	require.NoError(t, err)
	require.Len(t, attached, 1)
	assert.Equal(t, orderID, attached[0].ID)
}

func TestSQLite_OneAttachmentPerOrder(t *testing.T) {
	// GIVEN: An order already attached to a pool
	// WHEN: Attaching it again without deleting the first attachment
	// THEN: The primary key on order_id rejects it

	s := newTestStore(t)
	ctx := context.Background()
	deptID, supplierID := seedReferences(t, s)

	budgetPool, err := s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryBudget, 2026, decimal.NewFromInt(1000)))
	require.NoError(t, err)
	investPool, err := s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryInvestment, 2026, decimal.NewFromInt(1000)))
	require.NoError(t, err)

	orderID, err := s.InsertOrder(ctx, testOrder(deptID, supplierID, 1, time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	require.NoError(t, s.InsertAttachment(ctx, orderID, ledger.BudgetAttachment(budgetPool)))
	err = s.InsertAttachment(ctx, orderID, ledger.InvestmentAttachment(investPool, "1"))
	require.ErrorIs(t, err, ledger.ErrTransaction)

	// Delete-then-insert is the supported path.
	require.NoError(t, s.DeleteAttachment(ctx, orderID))
	require.NoError(t, s.InsertAttachment(ctx, orderID, ledger.InvestmentAttachment(investPool, "1")))

	count, err := s.CountAttachments(ctx, budgetPool)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSQLite_DeleteOrderCascadesAttachment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	deptID, supplierID := seedReferences(t, s)

	poolID, err := s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryBudget, 2026, decimal.NewFromInt(1000)))
	require.NoError(t, err)
	orderID, err := s.InsertOrder(ctx, testOrder(deptID, supplierID, 1, time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NoError(t, s.InsertAttachment(ctx, orderID, ledger.BudgetAttachment(poolID)))

	found, err := s.DeleteOrder(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, found)

	count, err := s.CountAttachments(ctx, poolID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Second delete reports not found, no error.
	found, err = s.DeleteOrder(ctx, orderID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLite_ListOrdersYearFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	deptID, supplierID := seedReferences(t, s)

	_, err := s.InsertOrder(ctx, testOrder(deptID, supplierID, 1, time.Date(2025, time.November, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	_, err = s.InsertOrder(ctx, testOrder(deptID, supplierID, 2, time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	all, err := s.ListOrders(ctx, deptID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only2026, err := s.ListOrders(ctx, deptID, 2026)
	require.NoError(t, err)
	require.Len(t, only2026, 1)
	assert.Equal(t, 2, only2026[0].Number)
}

func TestSQLite_MaxNumbers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	deptID, supplierID := seedReferences(t, s)

	max, err := s.MaxOrderNumber(ctx, deptID)
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	seq, err := s.MaxInvestmentSequence(ctx, deptID)
	require.NoError(t, err)
	assert.Equal(t, 0, seq)

	poolID, err := s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryInvestment, 2026, decimal.NewFromInt(1000)))
	require.NoError(t, err)
	orderID, err := s.InsertOrder(ctx, testOrder(deptID, supplierID, 4, time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NoError(t, s.InsertAttachment(ctx, orderID, ledger.InvestmentAttachment(poolID, "9")))

	max, err = s.MaxOrderNumber(ctx, deptID)
	require.NoError(t, err)
	assert.Equal(t, 4, max)

	seq, err = s.MaxInvestmentSequence(ctx, deptID)
	require.NoError(t, err)
	assert.Equal(t, 9, seq)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestSQLite_WithTxRollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that inserts a pool and then fails
	// WHEN: WithTx returns the error
	// THEN: The pool insert is gone

	s := newTestStore(t)
	ctx := context.Background()
	deptID, _ := seedReferences(t, s)

	sentinel := &ledger.ValidationError{Field: "amount", Reason: "boom"}
	err := s.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryBudget, 2026, decimal.NewFromInt(100))); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, ledger.ErrValidation)

	pool, err := s.FindPool(ctx, deptID, ledger.CategoryBudget, 2026)
	require.NoError(t, err)
	assert.Nil(t, pool, "rolled back pool must not be visible")
}

func TestSQLite_WithTxCommits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	deptID, _ := seedReferences(t, s)

	err := s.WithTx(ctx, func(tx ledger.Store) error {
		_, err := tx.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryBudget, 2026, decimal.NewFromInt(100)))
		return err
	})
	require.NoError(t, err)

	pool, err := s.FindPool(ctx, deptID, ledger.CategoryBudget, 2026)
	require.NoError(t, err)
	require.NotNil(t, pool)
}

func TestSQLite_Reset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	deptID, _ := seedReferences(t, s)

	_, err := s.InsertPool(ctx, ledger.NewYearPool(deptID, ledger.CategoryBudget, 2026, decimal.NewFromInt(100)))
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	departments, err := s.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Empty(t, departments)
	pools, err := s.ListPools(ctx, deptID)
	require.NoError(t, err)
	assert.Empty(t, pools)
}
