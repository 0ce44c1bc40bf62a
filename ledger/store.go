/*
store.go - Persistence interface for pools, orders and reference data

PURPOSE:
  Defines the interface between the ledger services and the database.
  Different implementations can use SQLite, PostgreSQL, or in-memory
  storage.

KEY INTERFACES:
  Store:   All reads/writes on one connection or transaction
  TxStore: Adds WithTx for atomic multi-table operations

TRANSACTIONAL CONTRACT:
  Every service operation (allocate, upsert, delete) runs inside a single
  WithTx call: either all of its writes commit or none do. The Store an
  implementation hands to the WithTx callback must route every operation
  through the open transaction, so the "pool has attached orders" predicate
  and the subsequent amount update are serialized against concurrent
  attachment inserts.

ATTACHMENT INVARIANT:
  Implementations must guarantee at most one attachment row per order
  (schema-level in SQLite: order_id is the attachment primary key).
  DeleteAttachment is idempotent - deleting a missing attachment is a no-op.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - allocation.go, orders.go: The only writers
  - summary.go: Pure reader of pool + order rows
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store handles persistence for the ledger. Implementations returned by
// TxStore.WithTx must execute every call inside the open transaction.
type Store interface {
	// --- Reference data (read-mostly; owned by the external provider) ---

	// GetDepartment returns nil, nil when the department does not exist.
	GetDepartment(ctx context.Context, id DepartmentID) (*Department, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	SaveDepartment(ctx context.Context, d Department) (DepartmentID, error)

	// GetSupplier returns nil, nil when the supplier does not exist.
	GetSupplier(ctx context.Context, id SupplierID) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	SaveSupplier(ctx context.Context, s Supplier) (SupplierID, error)

	// --- Pools ---

	// FindPool returns the single non-deleted pool for the grouping key,
	// or nil, nil when none exists.
	FindPool(ctx context.Context, departmentID DepartmentID, category Category, year int) (*Pool, error)
	GetPool(ctx context.Context, id PoolID) (*Pool, error)
	InsertPool(ctx context.Context, p Pool) (PoolID, error)
	UpdatePoolAmount(ctx context.Context, id PoolID, amount decimal.Decimal) error
	ListPools(ctx context.Context, departmentID DepartmentID) ([]Pool, error)

	// PoolYears returns the distinct years for which the department has at
	// least one pool, ascending.
	PoolYears(ctx context.Context, departmentID DepartmentID) ([]int, error)

	// CountAttachments returns how many orders are attached to the pool.
	// Inside WithTx this read locks the predicate against concurrent inserts.
	CountAttachments(ctx context.Context, poolID PoolID) (int, error)

	// --- Orders ---

	// GetOrder returns the order with its attachment, or nil, nil.
	GetOrder(ctx context.Context, id OrderID) (*Order, error)
	InsertOrder(ctx context.Context, o Order) (OrderID, error)
	UpdateOrder(ctx context.Context, o Order) error

	// DeleteOrder removes the order row and reports whether it existed.
	// The attachment row must be removed in the same call.
	DeleteOrder(ctx context.Context, id OrderID) (bool, error)

	// ListOrders returns a department's orders with attachments. year 0
	// means no date filter.
	ListOrders(ctx context.Context, departmentID DepartmentID, year int) ([]Order, error)

	// OrdersForPool returns every order currently attached to the pool.
	OrdersForPool(ctx context.Context, poolID PoolID) ([]Order, error)

	// --- Attachments ---

	// DeleteAttachment removes the order's attachment if present. No-op
	// when none exists.
	DeleteAttachment(ctx context.Context, orderID OrderID) error
	InsertAttachment(ctx context.Context, orderID OrderID, a Attachment) error

	// --- Display numbering ---

	// MaxOrderNumber returns the highest order number in the department,
	// 0 when it has no orders.
	MaxOrderNumber(ctx context.Context, departmentID DepartmentID) (int, error)

	// MaxInvestmentSequence returns the highest numeric investment sequence
	// among the department's investment attachments, 0 when there are none.
	MaxInvestmentSequence(ctx context.Context, departmentID DepartmentID) (int, error)
}

// TxStore wraps Store with transaction support. Every service operation
// uses this; plain Store methods outside WithTx are for read paths only.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
