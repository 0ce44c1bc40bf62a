/*
Package sqlite provides a SQLite-backed implementation of the ledger
storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  departments:      Reference data (owned by the external provider)
  suppliers:        Reference data
  pools:            Yearly allocations, one row per (department, category, year)
  orders:           Purchase orders
  pool_attachments: The order-to-pool link; order_id is the PRIMARY KEY,
                    so an order can never carry two attachments

INDEXES:
  idx_pools_dept_category_year: UNIQUE on the year expression of
    period_start - enforces pool uniqueness at the schema level
  idx_orders_dept_number: UNIQUE backstop for display numbering
  idx_attachments_pool: attachment counting and per-pool order loads

CONCURRENCY:
  Transactions are opened immediate (_txlock=immediate), so the write
  lock is taken before the "pool has attached orders" predicate is read.
  Two concurrent allocations against the same pool serialize instead of
  both observing zero attachments. A sync.RWMutex additionally guards
  in-process access, as SQLite allows a single writer at a time.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging) so readers never
  block on the single writer.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/budget-ledger/ledger"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = time.RFC3339
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Reference data
	CREATE TABLE IF NOT EXISTS departments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS suppliers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);

	-- Pools: one yearly allocation of one category for one department
	CREATE TABLE IF NOT EXISTS pools (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		department_id INTEGER NOT NULL REFERENCES departments(id),
		category TEXT NOT NULL CHECK (category IN ('budget', 'investment')),
		amount TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL
	);

	-- CRITICAL: at most one pool per (department, category, year).
	-- The year is derived from period_start, never stored redundantly.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_pools_dept_category_year
		ON pools(department_id, category, strftime('%Y', period_start));

	-- Orders
	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		number INTEGER NOT NULL,
		department_id INTEGER NOT NULL REFERENCES departments(id),
		supplier_id INTEGER NOT NULL REFERENCES suppliers(id),
		amount TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		description TEXT NOT NULL,
		order_date TEXT NOT NULL,
		capitalizable BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL CHECK (status IN ('in_process', 'cancelled', 'confirmed')),
		invoice_attached BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Display numbering backstop: max+1 is computed inside the write
	-- transaction, this index catches any duplicate that slips through.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_dept_number
		ON orders(department_id, number);

	CREATE INDEX IF NOT EXISTS idx_orders_department
		ON orders(department_id, order_date);

	-- CRITICAL: order_id is the primary key, so an order carries at most
	-- one attachment. The CHECK ties the sequence number to the category.
	CREATE TABLE IF NOT EXISTS pool_attachments (
		order_id INTEGER PRIMARY KEY REFERENCES orders(id) ON DELETE CASCADE,
		pool_id INTEGER NOT NULL REFERENCES pools(id),
		category TEXT NOT NULL CHECK (category IN ('budget', 'investment')),
		investment_sequence TEXT,
		CHECK (
			(category = 'investment' AND investment_sequence IS NOT NULL)
			OR (category = 'budget' AND investment_sequence IS NULL)
		)
	);

	CREATE INDEX IF NOT EXISTS idx_attachments_pool
		ON pool_attachments(pool_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONS (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within an immediate database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

// txStore routes every Store call through the open transaction.
type txStore struct {
	q dbtx
}

func (ts *txStore) GetDepartment(ctx context.Context, id ledger.DepartmentID) (*ledger.Department, error) {
	return getDepartment(ctx, ts.q, id)
}
func (ts *txStore) ListDepartments(ctx context.Context) ([]ledger.Department, error) {
	return listDepartments(ctx, ts.q)
}
func (ts *txStore) SaveDepartment(ctx context.Context, d ledger.Department) (ledger.DepartmentID, error) {
	return saveDepartment(ctx, ts.q, d)
}
func (ts *txStore) GetSupplier(ctx context.Context, id ledger.SupplierID) (*ledger.Supplier, error) {
	return getSupplier(ctx, ts.q, id)
}
func (ts *txStore) ListSuppliers(ctx context.Context) ([]ledger.Supplier, error) {
	return listSuppliers(ctx, ts.q)
}
func (ts *txStore) SaveSupplier(ctx context.Context, sp ledger.Supplier) (ledger.SupplierID, error) {
	return saveSupplier(ctx, ts.q, sp)
}
func (ts *txStore) FindPool(ctx context.Context, departmentID ledger.DepartmentID, category ledger.Category, year int) (*ledger.Pool, error) {
	return findPool(ctx, ts.q, departmentID, category, year)
}
func (ts *txStore) GetPool(ctx context.Context, id ledger.PoolID) (*ledger.Pool, error) {
	return getPool(ctx, ts.q, id)
}
func (ts *txStore) InsertPool(ctx context.Context, p ledger.Pool) (ledger.PoolID, error) {
	return insertPool(ctx, ts.q, p)
}
func (ts *txStore) UpdatePoolAmount(ctx context.Context, id ledger.PoolID, amount decimal.Decimal) error {
	return updatePoolAmount(ctx, ts.q, id, amount)
}
func (ts *txStore) ListPools(ctx context.Context, departmentID ledger.DepartmentID) ([]ledger.Pool, error) {
	return listPools(ctx, ts.q, departmentID)
}
func (ts *txStore) PoolYears(ctx context.Context, departmentID ledger.DepartmentID) ([]int, error) {
	return poolYears(ctx, ts.q, departmentID)
}
func (ts *txStore) CountAttachments(ctx context.Context, poolID ledger.PoolID) (int, error) {
	return countAttachments(ctx, ts.q, poolID)
}
func (ts *txStore) GetOrder(ctx context.Context, id ledger.OrderID) (*ledger.Order, error) {
	return getOrder(ctx, ts.q, id)
}
func (ts *txStore) InsertOrder(ctx context.Context, o ledger.Order) (ledger.OrderID, error) {
	return insertOrder(ctx, ts.q, o)
}
func (ts *txStore) UpdateOrder(ctx context.Context, o ledger.Order) error {
	return updateOrder(ctx, ts.q, o)
}
func (ts *txStore) DeleteOrder(ctx context.Context, id ledger.OrderID) (bool, error) {
	return deleteOrder(ctx, ts.q, id)
}
func (ts *txStore) ListOrders(ctx context.Context, departmentID ledger.DepartmentID, year int) ([]ledger.Order, error) {
	return listOrders(ctx, ts.q, departmentID, year)
}
func (ts *txStore) OrdersForPool(ctx context.Context, poolID ledger.PoolID) ([]ledger.Order, error) {
	return ordersForPool(ctx, ts.q, poolID)
}
func (ts *txStore) DeleteAttachment(ctx context.Context, orderID ledger.OrderID) error {
	return deleteAttachment(ctx, ts.q, orderID)
}
func (ts *txStore) InsertAttachment(ctx context.Context, orderID ledger.OrderID, a ledger.Attachment) error {
	return insertAttachment(ctx, ts.q, orderID, a)
}
func (ts *txStore) MaxOrderNumber(ctx context.Context, departmentID ledger.DepartmentID) (int, error) {
	return maxOrderNumber(ctx, ts.q, departmentID)
}
func (ts *txStore) MaxInvestmentSequence(ctx context.Context, departmentID ledger.DepartmentID) (int, error) {
	return maxInvestmentSequence(ctx, ts.q, departmentID)
}

// =============================================================================
// DIRECT STORE METHODS (ledger.Store interface, outside transactions)
// =============================================================================

func (s *Store) GetDepartment(ctx context.Context, id ledger.DepartmentID) (*ledger.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getDepartment(ctx, s.db, id)
}

func (s *Store) ListDepartments(ctx context.Context) ([]ledger.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listDepartments(ctx, s.db)
}

func (s *Store) SaveDepartment(ctx context.Context, d ledger.Department) (ledger.DepartmentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveDepartment(ctx, s.db, d)
}

func (s *Store) GetSupplier(ctx context.Context, id ledger.SupplierID) (*ledger.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSupplier(ctx, s.db, id)
}

func (s *Store) ListSuppliers(ctx context.Context) ([]ledger.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listSuppliers(ctx, s.db)
}

func (s *Store) SaveSupplier(ctx context.Context, sp ledger.Supplier) (ledger.SupplierID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSupplier(ctx, s.db, sp)
}

func (s *Store) FindPool(ctx context.Context, departmentID ledger.DepartmentID, category ledger.Category, year int) (*ledger.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findPool(ctx, s.db, departmentID, category, year)
}

func (s *Store) GetPool(ctx context.Context, id ledger.PoolID) (*ledger.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPool(ctx, s.db, id)
}

func (s *Store) InsertPool(ctx context.Context, p ledger.Pool) (ledger.PoolID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertPool(ctx, s.db, p)
}

func (s *Store) UpdatePoolAmount(ctx context.Context, id ledger.PoolID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePoolAmount(ctx, s.db, id, amount)
}

func (s *Store) ListPools(ctx context.Context, departmentID ledger.DepartmentID) ([]ledger.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPools(ctx, s.db, departmentID)
}

func (s *Store) PoolYears(ctx context.Context, departmentID ledger.DepartmentID) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return poolYears(ctx, s.db, departmentID)
}

func (s *Store) CountAttachments(ctx context.Context, poolID ledger.PoolID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countAttachments(ctx, s.db, poolID)
}

func (s *Store) GetOrder(ctx context.Context, id ledger.OrderID) (*ledger.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getOrder(ctx, s.db, id)
}

func (s *Store) InsertOrder(ctx context.Context, o ledger.Order) (ledger.OrderID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertOrder(ctx, s.db, o)
}

func (s *Store) UpdateOrder(ctx context.Context, o ledger.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateOrder(ctx, s.db, o)
}

func (s *Store) DeleteOrder(ctx context.Context, id ledger.OrderID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteOrder(ctx, s.db, id)
}

func (s *Store) ListOrders(ctx context.Context, departmentID ledger.DepartmentID, year int) ([]ledger.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listOrders(ctx, s.db, departmentID, year)
}

func (s *Store) OrdersForPool(ctx context.Context, poolID ledger.PoolID) ([]ledger.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ordersForPool(ctx, s.db, poolID)
}

func (s *Store) DeleteAttachment(ctx context.Context, orderID ledger.OrderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAttachment(ctx, s.db, orderID)
}

func (s *Store) InsertAttachment(ctx context.Context, orderID ledger.OrderID, a ledger.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertAttachment(ctx, s.db, orderID, a)
}

func (s *Store) MaxOrderNumber(ctx context.Context, departmentID ledger.DepartmentID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maxOrderNumber(ctx, s.db, departmentID)
}

func (s *Store) MaxInvestmentSequence(ctx context.Context, departmentID ledger.DepartmentID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maxInvestmentSequence(ctx, s.db, departmentID)
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"pool_attachments", "orders", "pools", "suppliers", "departments"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return storeErr("reset "+table, err)
		}
	}
	return nil
}

// =============================================================================
// REFERENCE DATA QUERIES
// =============================================================================

func getDepartment(ctx context.Context, q dbtx, id ledger.DepartmentID) (*ledger.Department, error) {
	var d ledger.Department
	err := q.QueryRowContext(ctx,
		"SELECT id, name FROM departments WHERE id = ?", id,
	).Scan(&d.ID, &d.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get department", err)
	}
	return &d, nil
}

func listDepartments(ctx context.Context, q dbtx) ([]ledger.Department, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, name FROM departments ORDER BY name")
	if err != nil {
		return nil, storeErr("list departments", err)
	}
	defer rows.Close()

	var out []ledger.Department
	for rows.Next() {
		var d ledger.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, storeErr("scan department", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func saveDepartment(ctx context.Context, q dbtx, d ledger.Department) (ledger.DepartmentID, error) {
	if d.ID != 0 {
		_, err := q.ExecContext(ctx,
			"INSERT INTO departments (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name",
			d.ID, d.Name)
		if err != nil {
			return 0, storeErr("save department", err)
		}
		return d.ID, nil
	}
	res, err := q.ExecContext(ctx, "INSERT INTO departments (name) VALUES (?)", d.Name)
	if err != nil {
		return 0, storeErr("save department", err)
	}
	id, _ := res.LastInsertId()
	return ledger.DepartmentID(id), nil
}

func getSupplier(ctx context.Context, q dbtx, id ledger.SupplierID) (*ledger.Supplier, error) {
	var sp ledger.Supplier
	err := q.QueryRowContext(ctx,
		"SELECT id, name FROM suppliers WHERE id = ?", id,
	).Scan(&sp.ID, &sp.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get supplier", err)
	}
	return &sp, nil
}

func listSuppliers(ctx context.Context, q dbtx) ([]ledger.Supplier, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, name FROM suppliers ORDER BY name")
	if err != nil {
		return nil, storeErr("list suppliers", err)
	}
	defer rows.Close()

	var out []ledger.Supplier
	for rows.Next() {
		var sp ledger.Supplier
		if err := rows.Scan(&sp.ID, &sp.Name); err != nil {
			return nil, storeErr("scan supplier", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func saveSupplier(ctx context.Context, q dbtx, sp ledger.Supplier) (ledger.SupplierID, error) {
	if sp.ID != 0 {
		_, err := q.ExecContext(ctx,
			"INSERT INTO suppliers (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name",
			sp.ID, sp.Name)
		if err != nil {
			return 0, storeErr("save supplier", err)
		}
		return sp.ID, nil
	}
	res, err := q.ExecContext(ctx, "INSERT INTO suppliers (name) VALUES (?)", sp.Name)
	if err != nil {
		return 0, storeErr("save supplier", err)
	}
	id, _ := res.LastInsertId()
	return ledger.SupplierID(id), nil
}

// =============================================================================
// POOL QUERIES
// =============================================================================

const poolColumns = "id, department_id, category, amount, period_start, period_end"

func findPool(ctx context.Context, q dbtx, departmentID ledger.DepartmentID, category ledger.Category, year int) (*ledger.Pool, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+poolColumns+` FROM pools
		 WHERE department_id = ? AND category = ? AND strftime('%Y', period_start) = ?`,
		departmentID, category, fmt.Sprintf("%04d", year))
	return scanPool(row)
}

func getPool(ctx context.Context, q dbtx, id ledger.PoolID) (*ledger.Pool, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+poolColumns+` FROM pools WHERE id = ?`, id)
	return scanPool(row)
}

func scanPool(row *sql.Row) (*ledger.Pool, error) {
	var p ledger.Pool
	var amount, start, end string
	err := row.Scan(&p.ID, &p.DepartmentID, &p.Category, &amount, &start, &end)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("scan pool", err)
	}
	p.Amount = mustDecimal(amount)
	p.PeriodStart, _ = time.Parse(dateLayout, start)
	p.PeriodEnd, _ = time.Parse(dateLayout, end)
	return &p, nil
}

func insertPool(ctx context.Context, q dbtx, p ledger.Pool) (ledger.PoolID, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO pools (department_id, category, amount, period_start, period_end)
		 VALUES (?, ?, ?, ?, ?)`,
		p.DepartmentID, p.Category, p.Amount.String(),
		p.PeriodStart.Format(dateLayout), p.PeriodEnd.Format(dateLayout))
	if err != nil {
		return 0, storeErr("insert pool", err)
	}
	id, _ := res.LastInsertId()
	return ledger.PoolID(id), nil
}

func updatePoolAmount(ctx context.Context, q dbtx, id ledger.PoolID, amount decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		"UPDATE pools SET amount = ? WHERE id = ?", amount.String(), id)
	if err != nil {
		return storeErr("update pool amount", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "pool", ID: int64(id)}
	}
	return nil
}

func listPools(ctx context.Context, q dbtx, departmentID ledger.DepartmentID) ([]ledger.Pool, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+poolColumns+` FROM pools
		 WHERE department_id = ?
		 ORDER BY period_start DESC, category`,
		departmentID)
	if err != nil {
		return nil, storeErr("list pools", err)
	}
	defer rows.Close()

	var out []ledger.Pool
	for rows.Next() {
		var p ledger.Pool
		var amount, start, end string
		if err := rows.Scan(&p.ID, &p.DepartmentID, &p.Category, &amount, &start, &end); err != nil {
			return nil, storeErr("scan pool", err)
		}
		p.Amount = mustDecimal(amount)
		p.PeriodStart, _ = time.Parse(dateLayout, start)
		p.PeriodEnd, _ = time.Parse(dateLayout, end)
		out = append(out, p)
	}
	return out, rows.Err()
}

func poolYears(ctx context.Context, q dbtx, departmentID ledger.DepartmentID) ([]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT CAST(strftime('%Y', period_start) AS INTEGER) AS year
		 FROM pools WHERE department_id = ? ORDER BY year ASC`,
		departmentID)
	if err != nil {
		return nil, storeErr("pool years", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, storeErr("scan year", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func countAttachments(ctx context.Context, q dbtx, poolID ledger.PoolID) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pool_attachments WHERE pool_id = ?", poolID,
	).Scan(&count)
	if err != nil {
		return 0, storeErr("count attachments", err)
	}
	return count, nil
}

// =============================================================================
// ORDER QUERIES
// =============================================================================

const orderColumns = `
	o.id, o.number, o.department_id, o.supplier_id, o.amount, o.quantity,
	o.description, o.order_date, o.capitalizable, o.status, o.invoice_attached,
	o.created_at, o.updated_at,
	a.category, a.pool_id, a.investment_sequence`

const orderFrom = `
	FROM orders o
	LEFT JOIN pool_attachments a ON a.order_id = o.id`

func getOrder(ctx context.Context, q dbtx, id ledger.OrderID) (*ledger.Order, error) {
	rows, err := q.QueryContext(ctx, "SELECT"+orderColumns+orderFrom+" WHERE o.id = ?", id)
	if err != nil {
		return nil, storeErr("get order", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func insertOrder(ctx context.Context, q dbtx, o ledger.Order) (ledger.OrderID, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO orders
		 (number, department_id, supplier_id, amount, quantity, description,
		  order_date, capitalizable, status, invoice_attached, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Number, o.DepartmentID, o.SupplierID, o.Amount.String(), o.Quantity,
		o.Description, o.Date.Format(dateLayout), o.Capitalizable, o.Status,
		o.InvoiceAttached,
		o.CreatedAt.UTC().Format(tsLayout), o.UpdatedAt.UTC().Format(tsLayout))
	if err != nil {
		return 0, storeErr("insert order", err)
	}
	id, _ := res.LastInsertId()
	return ledger.OrderID(id), nil
}

func updateOrder(ctx context.Context, q dbtx, o ledger.Order) error {
	res, err := q.ExecContext(ctx,
		`UPDATE orders SET
		 department_id = ?, supplier_id = ?, amount = ?, quantity = ?,
		 description = ?, order_date = ?, capitalizable = ?, status = ?,
		 invoice_attached = ?, updated_at = ?
		 WHERE id = ?`,
		o.DepartmentID, o.SupplierID, o.Amount.String(), o.Quantity,
		o.Description, o.Date.Format(dateLayout), o.Capitalizable, o.Status,
		o.InvoiceAttached, o.UpdatedAt.UTC().Format(tsLayout), o.ID)
	if err != nil {
		return storeErr("update order", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "order", ID: int64(o.ID)}
	}
	return nil
}

func deleteOrder(ctx context.Context, q dbtx, id ledger.OrderID) (bool, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
	if err != nil {
		return false, storeErr("delete order", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func listOrders(ctx context.Context, q dbtx, departmentID ledger.DepartmentID, year int) ([]ledger.Order, error) {
	query := "SELECT" + orderColumns + orderFrom + " WHERE o.department_id = ?"
	args := []any{departmentID}
	if year != 0 {
		query += " AND strftime('%Y', o.order_date) = ?"
		args = append(args, fmt.Sprintf("%04d", year))
	}
	query += " ORDER BY o.order_date ASC, o.id ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func ordersForPool(ctx context.Context, q dbtx, poolID ledger.PoolID) ([]ledger.Order, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT"+orderColumns+orderFrom+" WHERE a.pool_id = ? ORDER BY o.order_date ASC, o.id ASC",
		poolID)
	if err != nil {
		return nil, storeErr("orders for pool", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]ledger.Order, error) {
	var out []ledger.Order
	for rows.Next() {
		var (
			o         ledger.Order
			amount    string
			orderDate string
			createdAt string
			updatedAt string
			attCat    sql.NullString
			attPool   sql.NullInt64
			attSeq    sql.NullString
		)
		if err := rows.Scan(
			&o.ID, &o.Number, &o.DepartmentID, &o.SupplierID, &amount, &o.Quantity,
			&o.Description, &orderDate, &o.Capitalizable, &o.Status, &o.InvoiceAttached,
			&createdAt, &updatedAt,
			&attCat, &attPool, &attSeq,
		); err != nil {
			return nil, storeErr("scan order", err)
		}

		o.Amount = mustDecimal(amount)
		o.Date, _ = time.Parse(dateLayout, orderDate)
		o.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		o.UpdatedAt, _ = time.Parse(tsLayout, updatedAt)

		if attCat.Valid {
			o.Attachment = ledger.Attachment{
				Category:           ledger.Category(attCat.String),
				PoolID:             ledger.PoolID(attPool.Int64),
				InvestmentSequence: attSeq.String,
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// =============================================================================
// ATTACHMENT QUERIES
// =============================================================================

func deleteAttachment(ctx context.Context, q dbtx, orderID ledger.OrderID) error {
	// No-op when the order has no attachment.
	if _, err := q.ExecContext(ctx,
		"DELETE FROM pool_attachments WHERE order_id = ?", orderID); err != nil {
		return storeErr("delete attachment", err)
	}
	return nil
}

func insertAttachment(ctx context.Context, q dbtx, orderID ledger.OrderID, a ledger.Attachment) error {
	var seq any
	if a.Category == ledger.CategoryInvestment {
		seq = a.InvestmentSequence
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO pool_attachments (order_id, pool_id, category, investment_sequence)
		 VALUES (?, ?, ?, ?)`,
		orderID, a.PoolID, a.Category, seq); err != nil {
		return storeErr("insert attachment", err)
	}
	return nil
}

// =============================================================================
// DISPLAY NUMBERING
// =============================================================================

func maxOrderNumber(ctx context.Context, q dbtx, departmentID ledger.DepartmentID) (int, error) {
	var max int
	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(number), 0) FROM orders WHERE department_id = ?",
		departmentID,
	).Scan(&max)
	if err != nil {
		return 0, storeErr("max order number", err)
	}
	return max, nil
}

func maxInvestmentSequence(ctx context.Context, q dbtx, departmentID ledger.DepartmentID) (int, error) {
	var max int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(CAST(a.investment_sequence AS INTEGER)), 0)
		 FROM pool_attachments a
		 JOIN orders o ON o.id = a.order_id
		 WHERE o.department_id = ? AND a.category = 'investment'`,
		departmentID,
	).Scan(&max)
	if err != nil {
		return 0, storeErr("max investment sequence", err)
	}
	return max, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// storeErr wraps a driver failure into the ledger taxonomy. Busy/locked
// conditions are transient and marked retryable; constraint violations
// are not.
func storeErr(op string, err error) error {
	return &ledger.TransactionError{Op: op, Err: err, Retryable: isTransient(err)}
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "connection")
}
