/*
orders.go - Order Assignment Service

PURPOSE:
  Creates/updates purchase orders and, in the same transaction, attaches
  each one to the correct pool. The category is re-decided on every call:
  a non-blank investment sequence makes the order an investment order,
  anything else a budget order, so an edit can move an order between
  categories.

TRANSACTIONAL SEQUENCE (one WithTx call):
  1. Write or overwrite the core order row
  2. Delete any existing attachment for the order (idempotent)
  3. Resolve the target pool for (department, category, current year)
  4. Abort - rolling back the order write too - if no pool exists
  5. Insert the fresh attachment

NUMBERING:
  Display numbers (order number, investment sequence) are department max+1,
  computed inside the write transaction and backed by a unique index, so
  two concurrent creations cannot mint the same number.

SEE ALSO:
  - allocation.go: Writes the pools resolved here
  - types.go: Attachment variant enforcing category exclusivity
*/
package ledger

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LIMITS - Configured input ceilings
// =============================================================================

// Limits bounds order input. Values come from configuration; DefaultLimits
// mirrors the documented defaults.
type Limits struct {
	MaxOrderAmount decimal.Decimal
	MaxQuantity    int
	MaxDescription int

	// DateWindowYears bounds how far in the past an order may be dated.
	DateWindowYears int
}

func DefaultLimits() Limits {
	return Limits{
		MaxOrderAmount:  decimal.NewFromInt(1_000_000),
		MaxQuantity:     10_000,
		MaxDescription:  500,
		DateWindowYears: 5,
	}
}

// =============================================================================
// ORDER SERVICE
// =============================================================================

// OrderService upserts and deletes orders with their pool attachments.
type OrderService struct {
	store  TxStore
	limits Limits

	// now is injected so tests control the current year the pool
	// resolution uses.
	now func() time.Time
}

func NewOrderService(store TxStore, limits Limits) *OrderService {
	return &OrderService{store: store, limits: limits, now: time.Now}
}

// WithClock returns a copy of the service using the given clock.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	return &OrderService{store: s.store, limits: s.limits, now: now}
}

// OrderInput carries everything an upsert needs. ID zero means create.
// A non-blank InvestmentSequence makes this an investment order.
type OrderInput struct {
	ID                 OrderID
	DepartmentID       DepartmentID
	SupplierID         SupplierID
	Amount             decimal.Decimal
	Quantity           int
	Description        string
	Date               time.Time
	Capitalizable      bool
	Status             Status
	InvoiceAttached    bool
	InvestmentSequence string
}

// CategoryOf returns the category the input decides.
func (in OrderInput) CategoryOf() Category {
	if strings.TrimSpace(in.InvestmentSequence) != "" {
		return CategoryInvestment
	}
	return CategoryBudget
}

// UpsertResult reports the persisted order id and its decided category.
type UpsertResult struct {
	OrderID  OrderID
	Category Category
}

// Upsert writes the order and its attachment atomically. On update, the
// previous attachment is removed first, which is how an order switches
// category across an edit.
func (s *OrderService) Upsert(ctx context.Context, in OrderInput) (UpsertResult, error) {
	if err := s.validateOrder(in); err != nil {
		return UpsertResult{}, err
	}

	category := in.CategoryOf()
	year := s.now().Year()

	var result UpsertResult
	err := s.store.WithTx(ctx, func(tx Store) error {
		if err := checkReferences(ctx, tx, in); err != nil {
			return err
		}

		orderID, err := writeOrderRow(ctx, tx, in, s.now())
		if err != nil {
			return err
		}

		// Idempotent: a freshly created order has nothing to delete.
		if err := tx.DeleteAttachment(ctx, orderID); err != nil {
			return err
		}

		// The pool is the department's currently configured one, keyed by
		// the current calendar year, not by the order's own date.
		pool, err := tx.FindPool(ctx, in.DepartmentID, category, year)
		if err != nil {
			return err
		}
		if pool == nil {
			return &NoPoolForDepartmentError{DepartmentID: in.DepartmentID, Category: category, Year: year}
		}

		att := BudgetAttachment(pool.ID)
		if category == CategoryInvestment {
			att = InvestmentAttachment(pool.ID, strings.TrimSpace(in.InvestmentSequence))
		}
		if err := tx.InsertAttachment(ctx, orderID, att); err != nil {
			return err
		}

		result = UpsertResult{OrderID: orderID, Category: category}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return result, nil
}

// writeOrderRow inserts or updates the core order row and returns its id.
func writeOrderRow(ctx context.Context, tx Store, in OrderInput, now time.Time) (OrderID, error) {
	order := Order{
		ID:              in.ID,
		DepartmentID:    in.DepartmentID,
		SupplierID:      in.SupplierID,
		Amount:          in.Amount,
		Quantity:        in.Quantity,
		Description:     strings.TrimSpace(in.Description),
		Date:            DateOf(in.Date),
		Capitalizable:   in.Capitalizable,
		Status:          in.Status,
		InvoiceAttached: in.InvoiceAttached,
		UpdatedAt:       now,
	}

	if in.ID == 0 {
		number, err := tx.MaxOrderNumber(ctx, in.DepartmentID)
		if err != nil {
			return 0, err
		}
		order.Number = number + 1
		order.CreatedAt = now
		return tx.InsertOrder(ctx, order)
	}

	existing, err := tx.GetOrder(ctx, in.ID)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return 0, &NotFoundError{Kind: "order", ID: int64(in.ID)}
	}
	if !existing.Status.CanTransition(in.Status) {
		return 0, &ValidationError{
			Field:  "status",
			Reason: "no transition out of " + string(existing.Status),
		}
	}

	order.Number = existing.Number
	order.CreatedAt = existing.CreatedAt
	return in.ID, tx.UpdateOrder(ctx, order)
}

func checkReferences(ctx context.Context, tx Store, in OrderInput) error {
	dept, err := tx.GetDepartment(ctx, in.DepartmentID)
	if err != nil {
		return err
	}
	if dept == nil {
		return &NotFoundError{Kind: "department", ID: int64(in.DepartmentID)}
	}
	supplier, err := tx.GetSupplier(ctx, in.SupplierID)
	if err != nil {
		return err
	}
	if supplier == nil {
		return &NotFoundError{Kind: "supplier", ID: int64(in.SupplierID)}
	}
	return nil
}

// Delete removes orders and their attachments transactionally. Missing
// ids are silently skipped; the count of actually deleted orders is
// returned. Calling it twice on the same id deletes once.
func (s *OrderService) Delete(ctx context.Context, ids []OrderID) (int, error) {
	deleted := 0
	err := s.store.WithTx(ctx, func(tx Store) error {
		for _, id := range ids {
			if err := tx.DeleteAttachment(ctx, id); err != nil {
				return err
			}
			found, err := tx.DeleteOrder(ctx, id)
			if err != nil {
				return err
			}
			if found {
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// NextInvestmentSequence returns the next display sequence number for a
// department's investment orders. Advisory numbering for form prefill,
// not an identity key.
func (s *OrderService) NextInvestmentSequence(ctx context.Context, departmentID DepartmentID) (string, error) {
	max, err := s.store.MaxInvestmentSequence(ctx, departmentID)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(max + 1), nil
}

// validateOrder bounds all inputs before any write happens.
func (s *OrderService) validateOrder(in OrderInput) error {
	if in.DepartmentID <= 0 {
		return &ValidationError{Field: "departmentId", Reason: "required"}
	}
	if in.SupplierID <= 0 {
		return &ValidationError{Field: "supplierId", Reason: "required"}
	}
	if !in.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if in.Amount.GreaterThan(s.limits.MaxOrderAmount) {
		return &ValidationError{Field: "amount", Reason: "exceeds ceiling " + s.limits.MaxOrderAmount.String()}
	}
	if in.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if in.Quantity > s.limits.MaxQuantity {
		return &ValidationError{Field: "quantity", Reason: "exceeds ceiling " + strconv.Itoa(s.limits.MaxQuantity)}
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return &ValidationError{Field: "description", Reason: "required"}
	}
	if len(desc) > s.limits.MaxDescription {
		return &ValidationError{Field: "description", Reason: "exceeds " + strconv.Itoa(s.limits.MaxDescription) + " characters"}
	}
	if in.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	oldest := DateOf(s.now()).AddDate(-s.limits.DateWindowYears, 0, 0)
	if DateOf(in.Date).Before(oldest) {
		return &ValidationError{Field: "date", Reason: "older than " + strconv.Itoa(s.limits.DateWindowYears) + " years"}
	}
	if !in.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown status"}
	}
	return nil
}
