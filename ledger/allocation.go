/*
allocation.go - Pool Allocation Service

PURPOSE:
  Creates or updates a department's yearly pools. One call may touch the
  budget pool, the investment pool, or both - always inside a single
  all-or-nothing transaction.

RULES:
  1. A requested category with a positive amount creates the pool if the
     (department, category, year) key has none, otherwise updates the
     amount in place.
  2. A pool with attached orders is locked: the entire call aborts with
     PoolLockedError, including the other category's write. Otherwise
     historical spend figures would silently apply to a different
     allocation than the one orders were drawn against.
  3. Zero or omitted amounts mean "do not touch that category". Negative
     amounts fail validation before the transaction opens, so a bad
     investment amount never leaves a half-created budget pool behind.

SEE ALSO:
  - store.go: Transactional contract the service relies on
  - summary.go: Consumes the pools written here
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ALLOCATION SERVICE
// =============================================================================

// AllocationService creates and updates yearly pools.
type AllocationService struct {
	store TxStore
}

func NewAllocationService(store TxStore) *AllocationService {
	return &AllocationService{store: store}
}

// AllocationRequest asks for up to two pools to be created or updated.
// A zero amount leaves that category untouched.
type AllocationRequest struct {
	DepartmentID     DepartmentID
	Year             int
	BudgetAmount     decimal.Decimal
	InvestmentAmount decimal.Decimal
}

// amountFor returns the requested amount for a category.
func (r AllocationRequest) amountFor(c Category) decimal.Decimal {
	if c == CategoryBudget {
		return r.BudgetAmount
	}
	return r.InvestmentAmount
}

// AllocationResult describes one pool touched by an Allocate call.
type AllocationResult struct {
	Category Category
	PoolID   PoolID
	Amount   decimal.Decimal
	Created  bool
}

// Allocate creates or updates the requested pools in one transaction.
// Returns one result per touched category, budget first.
func (s *AllocationService) Allocate(ctx context.Context, req AllocationRequest) ([]AllocationResult, error) {
	if err := validateAllocation(req); err != nil {
		return nil, err
	}

	var results []AllocationResult
	err := s.store.WithTx(ctx, func(tx Store) error {
		dept, err := tx.GetDepartment(ctx, req.DepartmentID)
		if err != nil {
			return err
		}
		if dept == nil {
			return &NotFoundError{Kind: "department", ID: int64(req.DepartmentID)}
		}

		for _, category := range Categories() {
			amount := req.amountFor(category)
			if !amount.IsPositive() {
				continue
			}

			res, err := allocateOne(ctx, tx, req.DepartmentID, category, req.Year, amount)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// allocateOne handles a single category inside the open transaction.
func allocateOne(ctx context.Context, tx Store, departmentID DepartmentID, category Category, year int, amount decimal.Decimal) (AllocationResult, error) {
	existing, err := tx.FindPool(ctx, departmentID, category, year)
	if err != nil {
		return AllocationResult{}, err
	}

	if existing == nil {
		id, err := tx.InsertPool(ctx, NewYearPool(departmentID, category, year, amount))
		if err != nil {
			return AllocationResult{}, err
		}
		return AllocationResult{Category: category, PoolID: id, Amount: amount, Created: true}, nil
	}

	// Pools with drawn orders are locked against amount changes.
	attached, err := tx.CountAttachments(ctx, existing.ID)
	if err != nil {
		return AllocationResult{}, err
	}
	if attached > 0 {
		return AllocationResult{}, &PoolLockedError{
			DepartmentID:   departmentID,
			Category:       category,
			Year:           year,
			AttachedOrders: attached,
		}
	}

	if err := tx.UpdatePoolAmount(ctx, existing.ID, amount); err != nil {
		return AllocationResult{}, err
	}
	return AllocationResult{Category: category, PoolID: existing.ID, Amount: amount}, nil
}

// validateAllocation runs entirely before the transaction opens: a bad
// amount in either category must leave no partial writes.
func validateAllocation(req AllocationRequest) error {
	if req.DepartmentID <= 0 {
		return &ValidationError{Field: "departmentId", Reason: "required"}
	}
	if req.Year <= 0 {
		return &ValidationError{Field: "year", Reason: "must be a positive year"}
	}
	if req.BudgetAmount.IsNegative() {
		return &ValidationError{Field: "budgetAmount", Reason: "must not be negative"}
	}
	if req.InvestmentAmount.IsNegative() {
		return &ValidationError{Field: "investmentAmount", Reason: "must not be negative"}
	}
	if !req.BudgetAmount.IsPositive() && !req.InvestmentAmount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "at least one category amount must be positive"}
	}
	return nil
}
