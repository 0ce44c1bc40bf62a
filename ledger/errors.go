/*
errors.go - Centralized error types for the ledger core

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer classifies errors through the helpers at the bottom
  instead of matching concrete types.

ERROR CATEGORIES:
  1. Validation errors - malformed/out-of-range input, never partially applied
  2. Pool conflicts    - locked pools, missing pools
  3. Lookup errors     - referenced department/supplier/order does not exist
  4. Store errors      - underlying transaction failures, full rollback

USAGE:
  Callers match with errors.Is against the sentinels, or errors.As against
  the structured types when they need the context:

    var locked *ledger.PoolLockedError
    if errors.As(err, &locked) {
        fmt.Printf("%d orders block the %s pool", locked.AttachedOrders, locked.Category)
    }

SEE ALSO:
  - allocation.go: Produces PoolLockedError
  - orders.go: Produces NoPoolForDepartmentError
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all input validation failures.
	// Always recoverable by the caller; nothing was written.
	ErrValidation = errors.New("validation failed")

	// ErrPoolLocked is returned when mutating a pool that already has
	// attached orders. The whole call rolls back.
	ErrPoolLocked = errors.New("pool has attached orders")

	// ErrNoPoolForDepartment is returned when an order targets a
	// department/category with no corresponding pool.
	ErrNoPoolForDepartment = errors.New("no pool for department")

	// ErrNotFound is returned when a referenced department, supplier or
	// order does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransaction is returned when the underlying store fails.
	// Every write of the call has been rolled back.
	ErrTransaction = errors.New("transaction failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PoolLockedError reports a refused pool mutation, including how many
// orders block it so the caller can explain the refusal to an end user.
type PoolLockedError struct {
	DepartmentID   DepartmentID
	Category       Category
	Year           int
	AttachedOrders int
}

func (e *PoolLockedError) Error() string {
	return fmt.Sprintf("%s pool for department %d year %d is locked: %d attached order(s)",
		e.Category, e.DepartmentID, e.Year, e.AttachedOrders)
}

func (e *PoolLockedError) Unwrap() error { return ErrPoolLocked }

// NoPoolForDepartmentError reports an order that cannot be attached because
// the department has no pool of the requested category.
type NoPoolForDepartmentError struct {
	DepartmentID DepartmentID
	Category     Category
	Year         int
}

func (e *NoPoolForDepartmentError) Error() string {
	return fmt.Sprintf("department %d has no %s pool for %d", e.DepartmentID, e.Category, e.Year)
}

func (e *NoPoolForDepartmentError) Unwrap() error { return ErrNoPoolForDepartment }

// NotFoundError reports a missing referenced record.
type NotFoundError struct {
	Kind string // "department", "supplier", "order", "pool"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TransactionError wraps a store failure. Retryable marks connection-class
// failures that may succeed on retry; validation and lock conflicts are
// never retried.
type TransactionError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return ErrTransaction }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	var txErr *TransactionError
	return errors.As(err, &txErr) && txErr.Retryable
}

// IsClientError returns true if the error is due to invalid client input
// or a state conflict the client can resolve.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrPoolLocked) ||
		errors.Is(err, ErrNoPoolForDepartment)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
