// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/budget-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	departments map[ledger.DepartmentID]ledger.Department
	suppliers   map[ledger.SupplierID]ledger.Supplier
	pools       map[ledger.PoolID]ledger.Pool
	orders      map[ledger.OrderID]ledger.Order
	attachments map[ledger.OrderID]ledger.Attachment

	nextDepartment ledger.DepartmentID
	nextSupplier   ledger.SupplierID
	nextPool       ledger.PoolID
	nextOrder      ledger.OrderID
}

func NewMemory() *Memory {
	return &Memory{
		departments:    make(map[ledger.DepartmentID]ledger.Department),
		suppliers:      make(map[ledger.SupplierID]ledger.Supplier),
		pools:          make(map[ledger.PoolID]ledger.Pool),
		orders:         make(map[ledger.OrderID]ledger.Order),
		attachments:    make(map[ledger.OrderID]ledger.Attachment),
		nextDepartment: 1,
		nextSupplier:   1,
		nextPool:       1,
		nextOrder:      1,
	}
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (m *Memory) GetDepartment(_ context.Context, id ledger.DepartmentID) (*ledger.Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.departments[id]; ok {
		return &d, nil
	}
	return nil, nil
}

func (m *Memory) ListDepartments(_ context.Context) ([]ledger.Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Department, 0, len(m.departments))
	for _, d := range m.departments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveDepartment(_ context.Context, d ledger.Department) (ledger.DepartmentID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveDepartmentLocked(d), nil
}

func (m *Memory) saveDepartmentLocked(d ledger.Department) ledger.DepartmentID {
	if d.ID == 0 {
		d.ID = m.nextDepartment
		m.nextDepartment++
	} else if d.ID >= m.nextDepartment {
		m.nextDepartment = d.ID + 1
	}
	m.departments[d.ID] = d
	return d.ID
}

func (m *Memory) GetSupplier(_ context.Context, id ledger.SupplierID) (*ledger.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.suppliers[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) ListSuppliers(_ context.Context) ([]ledger.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveSupplier(_ context.Context, s ledger.Supplier) (ledger.SupplierID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.nextSupplier
		m.nextSupplier++
	} else if s.ID >= m.nextSupplier {
		m.nextSupplier = s.ID + 1
	}
	m.suppliers[s.ID] = s
	return s.ID, nil
}

// =============================================================================
// POOLS
// =============================================================================

func (m *Memory) FindPool(_ context.Context, departmentID ledger.DepartmentID, category ledger.Category, year int) (*ledger.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.pools {
		if p.DepartmentID == departmentID && p.Category == category && p.Year() == year {
			pool := p
			return &pool, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetPool(_ context.Context, id ledger.PoolID) (*ledger.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.pools[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) InsertPool(_ context.Context, p ledger.Pool) (ledger.PoolID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextPool
	m.nextPool++
	m.pools[p.ID] = p
	return p.ID, nil
}

func (m *Memory) UpdatePoolAmount(_ context.Context, id ledger.PoolID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[id]
	if !ok {
		return &ledger.NotFoundError{Kind: "pool", ID: int64(id)}
	}
	p.Amount = amount
	m.pools[id] = p
	return nil
}

func (m *Memory) ListPools(_ context.Context, departmentID ledger.DepartmentID) ([]ledger.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Pool
	for _, p := range m.pools {
		if p.DepartmentID == departmentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) PoolYears(_ context.Context, departmentID ledger.DepartmentID) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[int]bool)
	for _, p := range m.pools {
		if p.DepartmentID == departmentID {
			seen[p.Year()] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

func (m *Memory) CountAttachments(_ context.Context, poolID ledger.PoolID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, a := range m.attachments {
		if a.PoolID == poolID {
			count++
		}
	}
	return count, nil
}

// =============================================================================
// ORDERS
// =============================================================================

func (m *Memory) GetOrder(_ context.Context, id ledger.OrderID) (*ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	o.Attachment = m.attachments[id]
	return &o, nil
}

func (m *Memory) InsertOrder(_ context.Context, o ledger.Order) (ledger.OrderID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.nextOrder
	m.nextOrder++
	o.Attachment = ledger.Attachment{}
	m.orders[o.ID] = o
	return o.ID, nil
}

func (m *Memory) UpdateOrder(_ context.Context, o ledger.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return &ledger.NotFoundError{Kind: "order", ID: int64(o.ID)}
	}
	o.Attachment = ledger.Attachment{}
	m.orders[o.ID] = o
	return nil
}

func (m *Memory) DeleteOrder(_ context.Context, id ledger.OrderID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return false, nil
	}
	delete(m.orders, id)
	delete(m.attachments, id)
	return true, nil
}

func (m *Memory) ListOrders(_ context.Context, departmentID ledger.DepartmentID, year int) ([]ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Order
	for id, o := range m.orders {
		if o.DepartmentID != departmentID {
			continue
		}
		if year != 0 && o.Date.Year() != year {
			continue
		}
		o.Attachment = m.attachments[id]
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) OrdersForPool(_ context.Context, poolID ledger.PoolID) ([]ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Order
	for id, a := range m.attachments {
		if a.PoolID != poolID {
			continue
		}
		o := m.orders[id]
		o.Attachment = a
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

func (m *Memory) DeleteAttachment(_ context.Context, orderID ledger.OrderID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attachments, orderID)
	return nil
}

func (m *Memory) InsertAttachment(_ context.Context, orderID ledger.OrderID, a ledger.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachments[orderID] = a
	return nil
}

// =============================================================================
// DISPLAY NUMBERING
// =============================================================================

func (m *Memory) MaxOrderNumber(_ context.Context, departmentID ledger.DepartmentID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for _, o := range m.orders {
		if o.DepartmentID == departmentID && o.Number > max {
			max = o.Number
		}
	}
	return max, nil
}

func (m *Memory) MaxInvestmentSequence(_ context.Context, departmentID ledger.DepartmentID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for id, a := range m.attachments {
		if a.Category != ledger.CategoryInvestment {
			continue
		}
		if m.orders[id].DepartmentID != departmentID {
			continue
		}
		if n, ok := numeric(a.InvestmentSequence); ok && n > max {
			max = n
		}
	}
	return max, nil
}

func numeric(s string) (int, bool) {
	n := 0
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a full snapshot restored on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	snapshot := tm.snapshot()

	if err := fn(tm.Memory); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	s := memorySnapshot{
		departments:    make(map[ledger.DepartmentID]ledger.Department, len(tm.departments)),
		suppliers:      make(map[ledger.SupplierID]ledger.Supplier, len(tm.suppliers)),
		pools:          make(map[ledger.PoolID]ledger.Pool, len(tm.pools)),
		orders:         make(map[ledger.OrderID]ledger.Order, len(tm.orders)),
		attachments:    make(map[ledger.OrderID]ledger.Attachment, len(tm.attachments)),
		nextDepartment: tm.nextDepartment,
		nextSupplier:   tm.nextSupplier,
		nextPool:       tm.nextPool,
		nextOrder:      tm.nextOrder,
	}
	for k, v := range tm.departments {
		s.departments[k] = v
	}
	for k, v := range tm.suppliers {
		s.suppliers[k] = v
	}
	for k, v := range tm.pools {
		s.pools[k] = v
	}
	for k, v := range tm.orders {
		s.orders[k] = v
	}
	for k, v := range tm.attachments {
		s.attachments[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.departments = s.departments
	tm.suppliers = s.suppliers
	tm.pools = s.pools
	tm.orders = s.orders
	tm.attachments = s.attachments
	tm.nextDepartment = s.nextDepartment
	tm.nextSupplier = s.nextSupplier
	tm.nextPool = s.nextPool
	tm.nextOrder = s.nextOrder
}

type memorySnapshot struct {
	departments map[ledger.DepartmentID]ledger.Department
	suppliers   map[ledger.SupplierID]ledger.Supplier
	pools       map[ledger.PoolID]ledger.Pool
	orders      map[ledger.OrderID]ledger.Order
	attachments map[ledger.OrderID]ledger.Attachment

	nextDepartment ledger.DepartmentID
	nextSupplier   ledger.SupplierID
	nextPool       ledger.PoolID
	nextOrder      ledger.OrderID
}
