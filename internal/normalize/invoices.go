package normalize

import (
	"errors"
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-normalize/internal/model"
)

// ResolveInvoices collapses transactions into one invoice per invoice
// number, stamped with the earliest timestamp seen. Every invoice must map
// to exactly one customer; all violations are returned joined together as
// *InvoiceConflictError values.
func ResolveInvoices(txs []model.Transaction) ([]model.Invoice, error) {
	type group struct {
		at        time.Time
		customers []int64
	}

	groups := make(map[string]*group)
	var order []string

	for _, tx := range txs {
		if !tx.HasCustomer() {
			return nil, fmt.Errorf("row %d: %w", tx.Row, ErrMissingCustomer)
		}
		id := *tx.CustomerID

		g, ok := groups[tx.InvoiceNo]
		if !ok {
			groups[tx.InvoiceNo] = &group{at: tx.InvoiceDate, customers: []int64{id}}
			order = append(order, tx.InvoiceNo)
			continue
		}
		if tx.InvoiceDate.Before(g.at) {
			g.at = tx.InvoiceDate
		}
		if !containsID(g.customers, id) {
			g.customers = append(g.customers, id)
		}
	}

	invoices := make([]model.Invoice, 0, len(order))
	var errs []error

	for _, no := range order {
		g := groups[no]
		if len(g.customers) > 1 {
			errs = append(errs, &InvoiceConflictError{InvoiceNo: no, CustomerIDs: g.customers})
			continue
		}
		invoices = append(invoices, model.Invoice{
			InvoiceNo:  no,
			InvoicedAt: g.at,
			CustomerID: g.customers[0],
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return invoices, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
