package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-ledger/ledger"
	"github.com/warp/budget-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newAllocationFixture(t *testing.T) (*ledger.AllocationService, *store.TxMemory, ledger.DepartmentID) {
	t.Helper()
	mem := store.NewTxMemory()
	deptID, err := mem.SaveDepartment(context.Background(), ledger.Department{Name: "Engineering"})
	require.NoError(t, err)
	return ledger.NewAllocationService(mem), mem, deptID
}

func amount(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// =============================================================================
// CREATE / UPDATE
// =============================================================================

func TestAllocate_CreatesBothPools(t *testing.T) {
	// GIVEN: A department with no pools
	// WHEN: Allocating budget and investment for 2026
	// THEN: Both pools exist with the requested amounts

	svc, mem, deptID := newAllocationFixture(t)
	ctx := context.Background()

	results, err := svc.Allocate(ctx, ledger.AllocationRequest{
		DepartmentID:     deptID,
		Year:             2026,
		BudgetAmount:     amount(50000),
		InvestmentAmount: amount(20000),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, ledger.CategoryBudget, results[0].Category)
	assert.True(t, results[0].Created)
	assert.Equal(t, ledger.CategoryInvestment, results[1].Category)
	assert.True(t, results[1].Created)

	budget, err := mem.FindPool(ctx, deptID, ledger.CategoryBudget, 2026)
	require.NoError(t, err)
	require.NotNil(t, budget)
	assert.True(t, budget.Amount.Equal(amount(50000)))
	assert.Equal(t, 2026, budget.Year())
}

func TestAllocate_UpdatesExistingPoolInPlace(t *testing.T) {
	// GIVEN: A budget pool of 50000 for 2026
	// WHEN: Allocating 60000 for the same (department, category, year)
	// THEN: The same pool row is updated, no second pool appears

	svc, mem, deptID := newAllocationFixture(t)
	ctx := context.Background()

	first, err := svc.Allocate(ctx, ledger.AllocationRequest{
		DepartmentID: deptID, Year: 2026, BudgetAmount: amount(50000),
	})
	require.NoError(t, err)

	second, err := svc.Allocate(ctx, ledger.AllocationRequest{
		DepartmentID: deptID, Year: 2026, BudgetAmount: amount(60000),
	})
	require.NoError(t, err)

	assert.Equal(t, first[0].PoolID, second[0].PoolID, "same pool must be reused")
	assert.False(t, second[0].Created)

	pools, err := mem.ListPools(ctx, deptID)
	require.NoError(t, err)
	assert.Len(t, pools, 1)
	assert.True(t, pools[0].Amount.Equal(amount(60000)))
}

func TestAllocate_ZeroAmountLeavesCategoryUntouched(t *testing.T) {
	svc, mem, deptID := newAllocationFixture(t)
	ctx := context.Background()

	results, err := svc.Allocate(ctx, ledger.AllocationRequest{
		DepartmentID: deptID, Year: 2026, BudgetAmount: amount(10000),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ledger.CategoryBudget, results[0].Category)

	investment, err := mem.FindPool(ctx, deptID, ledger.CategoryInvestment, 2026)
	require.NoError(t, err)
	assert.Nil(t, investment, "investment pool must not be created")
}

func TestAllocate_SameCategoryDifferentYears(t *testing.T) {
	svc, mem, deptID := newAllocationFixture(t)
	ctx := context.Background()

	for year, amt := range map[int]int64{2025: 40000, 2026: 48000} {
		_, err := svc.Allocate(ctx, ledger.AllocationRequest{
			DepartmentID: deptID, Year: year, BudgetAmount: amount(amt),
		})
		require.NoError(t, err)
	}

	years, err := mem.PoolYears(ctx, deptID)
	require.NoError(t, err)
	assert.Equal(t, []int{2025, 2026}, years)
}

// =============================================================================
// LOCKING
// =============================================================================

func TestAllocate_PoolWithOrdersIsLocked(t *testing.T) {
	// GIVEN: A budget pool with one attached order
	// WHEN: Changing its amount
	// THEN: The call fails with PoolLockedError

	svc, mem, deptID := newAllocationFixture(t)
	ctx := context.Background()

	results, err := svc.Allocate(ctx, ledger.AllocationRequest{
		DepartmentID: deptID, Year: 2026, BudgetAmount: amount(50000),
	})
	require.NoError(t, err)
	attachOrder(t, mem, deptID, results[0].PoolID)

	_, err = svc.Allocate(ctx, ledger.AllocationRequest{
		DepartmentID: deptID, Year: 2026, BudgetAmount: amount(60000),
	})
	require.Error(t, err)

	var locked *ledger.PoolLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, ledger.CategoryBudget, locked.Category)
	assert.Equal(t, 1, locked.AttachedOrders)
	assert.True(t, ledger.IsClientError(err))
}

func TestAllocate_LockedCategoryRollsBackTheOther(t *testing.T) {
	// GIVEN: Budget and investment pools; the investment pool has an order
	// WHEN: Re-allocating both amounts in one call
	// THEN: Neither pool changes, including the unlocked budget pool

	svc, mem, deptID := newAllocationFixture(t)
	ctx := context.Background()

	results, err := svc.Allocate(ctx, ledger.AllocationRequest{
		DepartmentID:     deptID,
		Year:             2026,
		BudgetAmount:     amount(500),
		InvestmentAmount: amount(300),
	})
	require.NoError(t, err)
	attachOrder(t, mem, deptID, results[1].PoolID) // lock investment

	_, err = svc.Allocate(ctx, ledger.AllocationRequest{
		DepartmentID:     deptID,
		Year:             2026,
		BudgetAmount:     amount(900),
		InvestmentAmount: amount(999),
	})
	require.ErrorIs(t, err, ledger.ErrPoolLocked)

	budget, err := mem.FindPool(ctx, deptID, ledger.CategoryBudget, 2026)
	require.NoError(t, err)
	assert.True(t, budget.Amount.Equal(amount(500)), "budget update must be rolled back, got %s", budget.Amount)
}

// =============================================================================
// VALIDATION AND ATOMICITY
// =============================================================================

func TestAllocate_NegativeAmountWritesNothing(t *testing.T) {
	// GIVEN: A valid budget amount paired with a negative investment amount
	// WHEN: Allocating
	// THEN: Validation fails and no pool of either category exists

	svc, mem, deptID := newAllocationFixture(t)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, ledger.AllocationRequest{
		DepartmentID:     deptID,
		Year:             2026,
		BudgetAmount:     amount(100),
		InvestmentAmount: amount(-5),
	})
	require.ErrorIs(t, err, ledger.ErrValidation)

	pools, err := mem.ListPools(ctx, deptID)
	require.NoError(t, err)
	assert.Empty(t, pools, "no pool may be created when any amount is invalid")
}

func TestAllocate_RequiresAtLeastOnePositiveAmount(t *testing.T) {
	svc, _, deptID := newAllocationFixture(t)

	_, err := svc.Allocate(context.Background(), ledger.AllocationRequest{
		DepartmentID: deptID, Year: 2026,
	})
	require.ErrorIs(t, err, ledger.ErrValidation)
}

func TestAllocate_UnknownDepartment(t *testing.T) {
	svc, _, _ := newAllocationFixture(t)

	_, err := svc.Allocate(context.Background(), ledger.AllocationRequest{
		DepartmentID: 999, Year: 2026, BudgetAmount: amount(100),
	})
	require.ErrorIs(t, err, ledger.ErrNotFound)

	var notFound *ledger.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "department", notFound.Kind)
}

// attachOrder inserts a minimal order and attaches it to the pool,
// bypassing the order service.
func attachOrder(t *testing.T, mem *store.TxMemory, deptID ledger.DepartmentID, poolID ledger.PoolID) {
	t.Helper()
	ctx := context.Background()

	supplierID, err := mem.SaveSupplier(ctx, ledger.Supplier{Name: "Acme"})
	require.NoError(t, err)

	orderID, err := mem.InsertOrder(ctx, ledger.Order{
		Number:       1,
		DepartmentID: deptID,
		SupplierID:   supplierID,
		Amount:       amount(10),
		Quantity:     1,
		Description:  "paper",
		Date:         time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Status:       ledger.StatusInProcess,
	})
	require.NoError(t, err)
	require.NoError(t, mem.InsertAttachment(ctx, orderID, ledger.BudgetAttachment(poolID)))
}
