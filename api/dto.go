/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts travel as JSON strings ("1200.50") and parse into
  decimal.Decimal, which accepts both quoted and bare numbers. Responses
  always quote, so clients never see float rounding.

VALIDATION:
  Request types carry validator/v10 struct tags. Handlers run the
  validator before anything reaches the services; the services then
  re-check domain rules (ceilings, date window, status transitions) on
  their own.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model these map onto
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-ledger/ledger"
)

// =============================================================================
// REFERENCE DATA
// =============================================================================

// DepartmentDTO represents a department in API responses.
type DepartmentDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreateDepartmentRequest is the request to create a department.
type CreateDepartmentRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// SupplierDTO represents a supplier in API responses.
type SupplierDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreateSupplierRequest is the request to create a supplier.
type CreateSupplierRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// =============================================================================
// POOLS
// =============================================================================

// PoolDTO represents a yearly allocation in API responses.
type PoolDTO struct {
	ID           int64  `json:"id"`
	DepartmentID int64  `json:"department_id"`
	Category     string `json:"category"`
	Amount       string `json:"amount"`
	Year         int    `json:"year"`
	PeriodStart  string `json:"period_start"`
	PeriodEnd    string `json:"period_end"`
}

// AllocateRequest is the request to create or update both pools of a
// department for one year. A zero amount leaves that category untouched.
type AllocateRequest struct {
	DepartmentID     int64           `json:"department_id" validate:"required,gt=0"`
	Year             int             `json:"year" validate:"required,gt=0"`
	BudgetAmount     decimal.Decimal `json:"budget_amount"`
	InvestmentAmount decimal.Decimal `json:"investment_amount"`
}

// AllocationResultDTO reports what happened to one pool.
type AllocationResultDTO struct {
	Category string `json:"category"`
	PoolID   int64  `json:"pool_id"`
	Amount   string `json:"amount"`
	Created  bool   `json:"created"`
}

// =============================================================================
// ORDERS
// =============================================================================

// OrderDTO represents a purchase order in API responses.
type OrderDTO struct {
	ID                 int64  `json:"id"`
	Number             int    `json:"number"`
	DepartmentID       int64  `json:"department_id"`
	SupplierID         int64  `json:"supplier_id"`
	Amount             string `json:"amount"`
	Quantity           int    `json:"quantity"`
	Total              string `json:"total"`
	Description        string `json:"description"`
	Date               string `json:"date"`
	Capitalizable      bool   `json:"capitalizable"`
	Status             string `json:"status"`
	InvoiceAttached    bool   `json:"invoice_attached"`
	Category           string `json:"category,omitempty"`
	PoolID             int64  `json:"pool_id,omitempty"`
	InvestmentSequence string `json:"investment_sequence,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
	UpdatedAt          string `json:"updated_at,omitempty"`
}

// UpsertOrderRequest creates an order when id is absent and updates it
// otherwise. A non-blank investment_sequence routes the order to the
// investment pool; blank routes it to the budget pool.
type UpsertOrderRequest struct {
	ID                 int64           `json:"id"`
	DepartmentID       int64           `json:"department_id" validate:"required,gt=0"`
	SupplierID         int64           `json:"supplier_id" validate:"required,gt=0"`
	Amount             decimal.Decimal `json:"amount"`
	Quantity           int             `json:"quantity" validate:"required,gt=0"`
	Description        string          `json:"description" validate:"required"`
	Date               string          `json:"date" validate:"required"`
	Capitalizable      bool            `json:"capitalizable"`
	Status             string          `json:"status" validate:"required,oneof=in_process cancelled confirmed"`
	InvoiceAttached    bool            `json:"invoice_attached"`
	InvestmentSequence string          `json:"investment_sequence"`
}

// UpsertOrderResponse reports the persisted order and its routing.
type UpsertOrderResponse struct {
	OrderID  int64  `json:"order_id"`
	Category string `json:"category"`
}

// DeleteOrdersRequest is the request to delete a batch of orders.
type DeleteOrdersRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// =============================================================================
// SUMMARY
// =============================================================================

// SummaryDTO represents the derived figures for one pool.
type SummaryDTO struct {
	DepartmentID       int64   `json:"department_id"`
	Category           string  `json:"category"`
	Year               int     `json:"year"`
	TotalAllocated     string  `json:"total_allocated"`
	SpentToDate        string  `json:"spent_to_date"`
	Remaining          string  `json:"remaining"`
	MonthsRemaining    int     `json:"months_remaining"`
	RecommendedMonthly string  `json:"recommended_monthly"`
	Health             string  `json:"health"`
	MonthlyAvailable   *string `json:"monthly_available,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toDepartmentDTO(d ledger.Department) DepartmentDTO {
	return DepartmentDTO{ID: int64(d.ID), Name: d.Name}
}

func toSupplierDTO(s ledger.Supplier) SupplierDTO {
	return SupplierDTO{ID: int64(s.ID), Name: s.Name}
}

func toPoolDTO(p ledger.Pool) PoolDTO {
	return PoolDTO{
		ID:           int64(p.ID),
		DepartmentID: int64(p.DepartmentID),
		Category:     string(p.Category),
		Amount:       p.Amount.String(),
		Year:         p.Year(),
		PeriodStart:  p.PeriodStart.Format("2006-01-02"),
		PeriodEnd:    p.PeriodEnd.Format("2006-01-02"),
	}
}

func toOrderDTO(o ledger.Order) OrderDTO {
	dto := OrderDTO{
		ID:              int64(o.ID),
		Number:          o.Number,
		DepartmentID:    int64(o.DepartmentID),
		SupplierID:      int64(o.SupplierID),
		Amount:          o.Amount.String(),
		Quantity:        o.Quantity,
		Total:           o.Total().String(),
		Description:     o.Description,
		Date:            o.Date.Format("2006-01-02"),
		Capitalizable:   o.Capitalizable,
		Status:          string(o.Status),
		InvoiceAttached: o.InvoiceAttached,
	}
	if !o.CreatedAt.IsZero() {
		dto.CreatedAt = o.CreatedAt.Format(time.RFC3339)
	}
	if !o.UpdatedAt.IsZero() {
		dto.UpdatedAt = o.UpdatedAt.Format(time.RFC3339)
	}
	if !o.Attachment.IsZero() {
		dto.Category = string(o.Attachment.Category)
		dto.PoolID = int64(o.Attachment.PoolID)
		dto.InvestmentSequence = o.Attachment.InvestmentSequence
	}
	return dto
}

func toOrderDTOs(orders []ledger.Order) []OrderDTO {
	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = toOrderDTO(o)
	}
	return dtos
}

func toSummaryDTO(s ledger.Summary) SummaryDTO {
	return SummaryDTO{
		DepartmentID:       int64(s.DepartmentID),
		Category:           string(s.Category),
		Year:               s.Year,
		TotalAllocated:     s.TotalAllocated.String(),
		SpentToDate:        s.SpentToDate.String(),
		Remaining:          s.Remaining.String(),
		MonthsRemaining:    s.MonthsRemaining,
		RecommendedMonthly: s.RecommendedMonthly.String(),
		Health:             string(s.Health),
	}
}
