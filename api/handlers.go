/*
handlers.go - HTTP API handlers for the budget ledger

PURPOSE:
  Exposes the pool and order services via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Departments:
    GET    /api/departments               List all departments
    POST   /api/departments               Create department
    GET    /api/departments/{id}/pools    Pools of a department
    GET    /api/departments/{id}/years    Years with at least one pool
    GET    /api/departments/{id}/summary  Derived figures (?year=&category=&month=)
    GET    /api/departments/{id}/orders   Orders of a department (?year=)

  Suppliers:
    GET    /api/suppliers                 List all suppliers
    POST   /api/suppliers                 Create supplier

  Pools:
    POST   /api/pools/allocate            Create/update both pools of a year

  Orders:
    POST   /api/orders                    Create or update an order
    DELETE /api/orders                    Delete a batch of orders
    GET    /api/orders/next-sequence      Next investment sequence (?department_id=)

  Dev:
    POST   /api/seed                      Load the demo dataset

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator/v10 struct tags)
  3. Call domain logic (allocation service, order service, summary)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Domain errors map onto HTTP statuses through their sentinels:
  - 400: validation failures
  - 404: unknown department, supplier, pool or order
  - 409: pool locked by attached orders
  - 422: no pool of the required category for the department
  - 500: storage failures

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - seed.go: Demo dataset loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/warp/budget-ledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       ledger.TxStore
	Allocations *ledger.AllocationService
	Orders      *ledger.OrderService
	Log         *logrus.Logger

	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a new handler over the given store.
func NewHandler(store ledger.TxStore, limits ledger.Limits, log *logrus.Logger) *Handler {
	return &Handler{
		Store:       store,
		Allocations: ledger.NewAllocationService(store),
		Orders:      ledger.NewOrderService(store, limits),
		Log:         log,
		validate:    validator.New(),
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests. The order service
// shares the same clock so pool resolution and summaries agree.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	h.Orders = h.Orders.WithClock(now)
	return h
}

// =============================================================================
// DEPARTMENT HANDLERS
// =============================================================================

// ListDepartments returns all departments.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Store.ListDepartments(r.Context())
	if err != nil {
		h.serverError(w, "Failed to list departments", err)
		return
	}

	dtos := make([]DepartmentDTO, len(departments))
	for i, d := range departments {
		dtos[i] = toDepartmentDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDepartment creates a department.
func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req CreateDepartmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.Store.SaveDepartment(r.Context(), ledger.Department{Name: req.Name})
	if err != nil {
		h.serverError(w, "Failed to create department", err)
		return
	}
	writeJSON(w, http.StatusCreated, DepartmentDTO{ID: int64(id), Name: req.Name})
}

// ListDepartmentPools returns all pools of a department, newest year first.
func (h *Handler) ListDepartmentPools(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	pools, err := h.Store.ListPools(r.Context(), ledger.DepartmentID(id))
	if err != nil {
		h.serverError(w, "Failed to list pools", err)
		return
	}

	dtos := make([]PoolDTO, len(pools))
	for i, p := range pools {
		dtos[i] = toPoolDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPoolYears returns the years a department has at least one pool for.
func (h *Handler) ListPoolYears(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	years, err := h.Store.PoolYears(r.Context(), ledger.DepartmentID(id))
	if err != nil {
		h.serverError(w, "Failed to list pool years", err)
		return
	}
	if years == nil {
		years = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"years": years})
}

// GetSummary returns derived figures for a department. With ?category=
// it returns a single summary; without it, one per category. The
// optional ?month= adds the monthly available figure.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	departmentID := ledger.DepartmentID(id)

	dept, err := h.Store.GetDepartment(ctx, departmentID)
	if err != nil {
		h.serverError(w, "Failed to get department", err)
		return
	}
	if dept == nil {
		writeError(w, http.StatusNotFound, "not_found", "Department not found")
		return
	}

	year := queryInt(r, "year", h.now().Year())
	month := queryInt(r, "month", 0)
	if month < 0 || month > 12 {
		writeError(w, http.StatusBadRequest, "validation", "month must be between 1 and 12")
		return
	}

	if raw := r.URL.Query().Get("category"); raw != "" {
		category := ledger.Category(raw)
		if !category.Valid() {
			writeError(w, http.StatusBadRequest, "validation", "category must be budget or investment")
			return
		}
		dto, err := h.summarize(r, departmentID, category, year, month)
		if err != nil {
			h.serverError(w, "Failed to compute summary", err)
			return
		}
		writeJSON(w, http.StatusOK, dto)
		return
	}

	out := make(map[string]SummaryDTO, 2)
	for _, category := range ledger.Categories() {
		dto, err := h.summarize(r, departmentID, category, year, month)
		if err != nil {
			h.serverError(w, "Failed to compute summary", err)
			return
		}
		out[string(category)] = dto
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) summarize(r *http.Request, departmentID ledger.DepartmentID, category ledger.Category, year, month int) (SummaryDTO, error) {
	ctx := r.Context()

	pool, err := h.Store.FindPool(ctx, departmentID, category, year)
	if err != nil {
		return SummaryDTO{}, err
	}

	var orders []ledger.Order
	if pool != nil {
		if orders, err = h.Store.OrdersForPool(ctx, pool.ID); err != nil {
			return SummaryDTO{}, err
		}
	}

	summary := ledger.Summarize(pool, orders, departmentID, category, year, h.now())
	dto := toSummaryDTO(summary)
	if month != 0 {
		available := summary.MonthlyAvailable(orders, time.Month(month)).String()
		dto.MonthlyAvailable = &available
	}
	return dto, nil
}

// ListDepartmentOrders returns a department's orders, optionally
// restricted to one year.
func (h *Handler) ListDepartmentOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	year := queryInt(r, "year", 0)
	orders, err := h.Store.ListOrders(r.Context(), ledger.DepartmentID(id), year)
	if err != nil {
		h.serverError(w, "Failed to list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

// =============================================================================
// SUPPLIER HANDLERS
// =============================================================================

// ListSuppliers returns all suppliers.
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.Store.ListSuppliers(r.Context())
	if err != nil {
		h.serverError(w, "Failed to list suppliers", err)
		return
	}

	dtos := make([]SupplierDTO, len(suppliers))
	for i, s := range suppliers {
		dtos[i] = toSupplierDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSupplier creates a supplier.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.Store.SaveSupplier(r.Context(), ledger.Supplier{Name: req.Name})
	if err != nil {
		h.serverError(w, "Failed to create supplier", err)
		return
	}
	writeJSON(w, http.StatusCreated, SupplierDTO{ID: int64(id), Name: req.Name})
}

// =============================================================================
// POOL HANDLERS
// =============================================================================

// AllocatePools creates or updates both pools of a department for one
// year, atomically.
func (h *Handler) AllocatePools(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if !h.decode(w, r, &req) {
		return
	}

	results, err := h.Allocations.Allocate(r.Context(), ledger.AllocationRequest{
		DepartmentID:     ledger.DepartmentID(req.DepartmentID),
		Year:             req.Year,
		BudgetAmount:     req.BudgetAmount,
		InvestmentAmount: req.InvestmentAmount,
	})
	if err != nil {
		h.domainError(w, "Failed to allocate pools", err)
		return
	}

	dtos := make([]AllocationResultDTO, len(results))
	for i, res := range results {
		dtos[i] = AllocationResultDTO{
			Category: string(res.Category),
			PoolID:   int64(res.PoolID),
			Amount:   res.Amount.String(),
			Created:  res.Created,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// UpsertOrder creates an order (no id) or updates one (with id), and
// re-routes its pool attachment from the investment sequence field.
func (h *Handler) UpsertOrder(w http.ResponseWriter, r *http.Request) {
	var req UpsertOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "Invalid date format (use YYYY-MM-DD)")
		return
	}

	result, err := h.Orders.Upsert(r.Context(), ledger.OrderInput{
		ID:                 ledger.OrderID(req.ID),
		DepartmentID:       ledger.DepartmentID(req.DepartmentID),
		SupplierID:         ledger.SupplierID(req.SupplierID),
		Amount:             req.Amount,
		Quantity:           req.Quantity,
		Description:        req.Description,
		Date:               date,
		Capitalizable:      req.Capitalizable,
		Status:             ledger.Status(req.Status),
		InvoiceAttached:    req.InvoiceAttached,
		InvestmentSequence: req.InvestmentSequence,
	})
	if err != nil {
		h.domainError(w, "Failed to save order", err)
		return
	}

	status := http.StatusOK
	if req.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, UpsertOrderResponse{
		OrderID:  int64(result.OrderID),
		Category: string(result.Category),
	})
}

// DeleteOrders deletes a batch of orders. Unknown ids are skipped, so
// repeating a delete is harmless.
func (h *Handler) DeleteOrders(w http.ResponseWriter, r *http.Request) {
	var req DeleteOrdersRequest
	if !h.decode(w, r, &req) {
		return
	}

	ids := make([]ledger.OrderID, len(req.IDs))
	for i, id := range req.IDs {
		ids[i] = ledger.OrderID(id)
	}

	deleted, err := h.Orders.Delete(r.Context(), ids)
	if err != nil {
		h.domainError(w, "Failed to delete orders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// NextInvestmentSequence returns the next free sequence number for a
// department, as a preview for the order form.
func (h *Handler) NextInvestmentSequence(w http.ResponseWriter, r *http.Request) {
	departmentID := queryInt(r, "department_id", 0)
	if departmentID <= 0 {
		writeError(w, http.StatusBadRequest, "validation", "department_id is required")
		return
	}

	seq, err := h.Orders.NextInvestmentSequence(r.Context(), ledger.DepartmentID(departmentID))
	if err != nil {
		h.serverError(w, "Failed to compute next sequence", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"next_sequence": seq})
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// decode parses and validates a JSON request body. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Code:    "validation",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "validation", "Invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// domainError maps a service error onto its HTTP status.
func (h *Handler) domainError(w http.ResponseWriter, fallback string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, ledger.ErrPoolLocked):
		writeError(w, http.StatusConflict, "pool_locked", err.Error())
	case errors.Is(err, ledger.ErrNoPoolForDepartment):
		writeError(w, http.StatusUnprocessableEntity, "no_pool", err.Error())
	default:
		h.serverError(w, fallback, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.Log.WithError(err).WithField("retryable", ledger.IsRetryable(err)).Error(message)
	writeError(w, http.StatusInternalServerError, "internal", message)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
