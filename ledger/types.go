/*
Package ledger provides the core budget/investment pool ledger engine.

PURPOSE:
  This package contains the types and algorithms for tracking departmental
  yearly allocations ("pools") and the purchase orders drawn against them.
  Each department receives up to two pools per year - an operating budget
  pool and a capital investment pool - and every order consumes exactly one
  of them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category: Budget vs Investment, the two independent pool kinds
  - Pool: One yearly allocation of one category for one department
  - Order: A purchase order attached to exactly one pool
  - Attachment: The tagged link between an order and its pool

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing pool/order/department IDs
  3. Exclusivity by construction: an Attachment is built only through
     BudgetAttachment or InvestmentAttachment, so an order can never be
     in both categories, or in neither

USAGE:
  att := ledger.BudgetAttachment(poolID)
  order := ledger.Order{
      DepartmentID: 3,
      Amount:       decimal.NewFromInt(1000),
      Attachment:   att,
  }

SEE ALSO:
  - allocation.go: Pool creation and update rules
  - orders.go: Order upsert with transactional pool attachment
  - summary.go: Spend aggregation and monthly projections
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DepartmentID int64
type SupplierID int64
type PoolID int64
type OrderID int64

// =============================================================================
// CATEGORY - The two independent pool kinds
// =============================================================================

type Category string

const (
	CategoryBudget     Category = "budget"
	CategoryInvestment Category = "investment"
)

// Valid reports whether c is one of the two known categories.
func (c Category) Valid() bool {
	return c == CategoryBudget || c == CategoryInvestment
}

// Categories lists both categories in a stable order.
func Categories() []Category {
	return []Category{CategoryBudget, CategoryInvestment}
}

// =============================================================================
// REFERENCE DATA - Owned by the external provider, read-mostly here
// =============================================================================

// Department is identity-only reference data. The ledger never mutates it.
type Department struct {
	ID   DepartmentID
	Name string
}

// Supplier is identity-only reference data.
type Supplier struct {
	ID   SupplierID
	Name string
}

// =============================================================================
// POOL - One yearly allocation of one category for one department
// =============================================================================

// Pool represents one yearly monetary allocation. At most one non-deleted
// pool exists per (department, category, year); the year is derived from
// PeriodStart, never stored redundantly.
type Pool struct {
	ID           PoolID
	DepartmentID DepartmentID
	Category     Category
	Amount       decimal.Decimal
	PeriodStart  time.Time
	PeriodEnd    time.Time
}

// Year returns the invariant grouping key for pool uniqueness.
func (p Pool) Year() int {
	return p.PeriodStart.Year()
}

// Period returns the pool's validity window.
func (p Pool) Period() Period {
	return Period{Start: p.PeriodStart, End: p.PeriodEnd}
}

// NewYearPool builds a pool spanning Jan 1 - Dec 31 of the target year,
// the only period shape current usage produces.
func NewYearPool(departmentID DepartmentID, category Category, year int, amount decimal.Decimal) Pool {
	return Pool{
		DepartmentID: departmentID,
		Category:     category,
		Amount:       amount,
		PeriodStart:  StartOfYear(year),
		PeriodEnd:    EndOfYear(year),
	}
}

// =============================================================================
// ORDER STATUS - InProcess is the only non-terminal state
// =============================================================================

type Status string

const (
	StatusInProcess Status = "in_process"
	StatusCancelled Status = "cancelled"
	StatusConfirmed Status = "confirmed"
)

func (s Status) Valid() bool {
	return s == StatusInProcess || s == StatusCancelled || s == StatusConfirmed
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusConfirmed
}

// CanTransition reports whether moving from s to next is allowed.
// InProcess -> Confirmed and InProcess -> Cancelled are the only moves.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	return s == StatusInProcess
}

// =============================================================================
// ATTACHMENT - Tagged link between an order and exactly one pool
// =============================================================================

// Attachment links an order to one pool of one category. The zero value is
// not a valid attachment; use BudgetAttachment or InvestmentAttachment so
// the "exactly one category" invariant holds by construction.
type Attachment struct {
	Category Category
	PoolID   PoolID

	// InvestmentSequence is the display sequence number carried only by
	// investment attachments. Empty for budget attachments.
	InvestmentSequence string
}

// BudgetAttachment links an order to a budget pool.
func BudgetAttachment(poolID PoolID) Attachment {
	return Attachment{Category: CategoryBudget, PoolID: poolID}
}

// InvestmentAttachment links an order to an investment pool with its
// sequence number.
func InvestmentAttachment(poolID PoolID, sequence string) Attachment {
	return Attachment{Category: CategoryInvestment, PoolID: poolID, InvestmentSequence: sequence}
}

// IsZero reports whether the attachment is missing. A persisted order is
// never in this state; it only occurs on in-flight inputs.
func (a Attachment) IsZero() bool {
	return a.Category == ""
}

// =============================================================================
// ORDER - A purchase order consuming funds from exactly one pool
// =============================================================================

type Order struct {
	ID              OrderID
	Number          int // display numbering, unique per department
	DepartmentID    DepartmentID
	SupplierID      SupplierID
	Amount          decimal.Decimal
	Quantity        int
	Description     string
	Date            time.Time
	Capitalizable   bool
	Status          Status
	InvoiceAttached bool
	Attachment      Attachment

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total returns amount * quantity, the figure a printed order carries.
// Aggregation intentionally uses Amount alone, matching the reporting views.
func (o Order) Total() decimal.Decimal {
	return o.Amount.Mul(decimal.NewFromInt(int64(o.Quantity)))
}
