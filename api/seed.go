/*
seed.go - Demo dataset loader for testing and demonstrations

PURPOSE:

	Populates the database with realistic data for local development and
	demos: three departments, a handful of suppliers, pools for the
	current year, and orders that exercise both categories.

HOW SEEDING WORKS:
 1. Reset database (clear all data) when the store supports it
 2. Create departments and suppliers
 3. Allocate both pools for each department via the allocation service
 4. Create orders through the order service, so numbering, attachments
    and investment sequences come out the same as through the API

USAGE VIA API:

	POST /api/seed

NOTE:

	Seeding resets the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - ledger/allocation.go, ledger/orders.go: Services used here
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/budget-ledger/ledger"
)

// resetter is implemented by stores that can wipe all data.
type resetter interface {
	Reset(ctx context.Context) error
}

// SeedDemo resets the database and loads the demo dataset.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	if err := h.seed(r.Context()); err != nil {
		h.serverError(w, "Failed to seed demo data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "seeded"})
}

func (h *Handler) seed(ctx context.Context) error {
	if rs, ok := h.Store.(resetter); ok {
		if err := rs.Reset(ctx); err != nil {
			return err
		}
	}

	departments := []string{"Engineering", "Marketing", "Operations"}
	departmentIDs := make([]ledger.DepartmentID, len(departments))
	for i, name := range departments {
		id, err := h.Store.SaveDepartment(ctx, ledger.Department{Name: name})
		if err != nil {
			return err
		}
		departmentIDs[i] = id
	}

	suppliers := []string{"Initech Supplies", "Globex Hardware", "Acme Services"}
	supplierIDs := make([]ledger.SupplierID, len(suppliers))
	for i, name := range suppliers {
		id, err := h.Store.SaveSupplier(ctx, ledger.Supplier{Name: name})
		if err != nil {
			return err
		}
		supplierIDs[i] = id
	}

	year := h.now().Year()
	allocations := []ledger.AllocationRequest{
		{DepartmentID: departmentIDs[0], Year: year, BudgetAmount: decimal.NewFromInt(120000), InvestmentAmount: decimal.NewFromInt(45000)},
		{DepartmentID: departmentIDs[1], Year: year, BudgetAmount: decimal.NewFromInt(60000), InvestmentAmount: decimal.NewFromInt(10000)},
		{DepartmentID: departmentIDs[2], Year: year, BudgetAmount: decimal.NewFromInt(80000)},
	}
	for _, req := range allocations {
		if _, err := h.Allocations.Allocate(ctx, req); err != nil {
			return err
		}
	}

	today := ledger.DateOf(h.now())
	orders := []ledger.OrderInput{
		{
			DepartmentID: departmentIDs[0],
			SupplierID:   supplierIDs[0],
			Amount:       decimal.NewFromInt(250),
			Quantity:     4,
			Description:  "Mechanical keyboards",
			Date:         today.AddDate(0, -2, 0),
			Status:       ledger.StatusConfirmed,
		},
		{
			DepartmentID:       departmentIDs[0],
			SupplierID:         supplierIDs[1],
			Amount:             decimal.NewFromInt(8200),
			Quantity:           1,
			Description:        "Build server",
			Date:               today.AddDate(0, -1, 0),
			Capitalizable:      true,
			Status:             ledger.StatusConfirmed,
			InvoiceAttached:    true,
			InvestmentSequence: "1",
		},
		{
			DepartmentID: departmentIDs[1],
			SupplierID:   supplierIDs[2],
			Amount:       decimal.NewFromInt(1500),
			Quantity:     2,
			Description:  "Trade fair booth panels",
			Date:         today,
			Status:       ledger.StatusInProcess,
		},
	}
	for i, in := range orders {
		if _, err := h.Orders.Upsert(ctx, in); err != nil {
			return fmt.Errorf("seed order %d: %w", i+1, err)
		}
	}

	h.Log.WithFields(logrus.Fields{
		"departments": len(departments),
		"suppliers":   len(suppliers),
		"year":        year,
	}).Info("demo data seeded")
	return nil
}
