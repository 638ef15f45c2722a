package normalize

import (
	"fmt"

	"github.com/pgEdge/pgedge-normalize/internal/model"
)

// Denormalize joins the four tables of ds back into one row per invoice
// line, in line order.
func Denormalize(ds model.Dataset) ([]model.DetailRow, error) {
	customers := make(map[int64]model.Customer, len(ds.Customers))
	for _, c := range ds.Customers {
		customers[c.ID] = c
	}
	products := make(map[int64]model.Product, len(ds.Products))
	for _, p := range ds.Products {
		products[p.ID] = p
	}
	invoices := make(map[string]model.Invoice, len(ds.Invoices))
	for _, inv := range ds.Invoices {
		invoices[inv.InvoiceNo] = inv
	}

	rows := make([]model.DetailRow, 0, len(ds.InvoiceLines))
	for _, l := range ds.InvoiceLines {
		inv, ok := invoices[l.InvoiceNo]
		if !ok {
			return nil, fmt.Errorf("line %d references unknown invoice %s", l.ID, l.InvoiceNo)
		}
		prod, ok := products[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("line %d references unknown product %d", l.ID, l.ProductID)
		}
		cust, ok := customers[inv.CustomerID]
		if !ok {
			return nil, fmt.Errorf("invoice %s references unknown customer %d",
				inv.InvoiceNo, inv.CustomerID)
		}
		rows = append(rows, model.DetailRow{
			LineID:      l.ID,
			InvoiceNo:   inv.InvoiceNo,
			StockCode:   prod.StockCode,
			Description: prod.Description,
			Quantity:    l.Quantity,
			InvoicedAt:  inv.InvoicedAt,
			UnitPrice:   l.UnitPrice,
			CustomerID:  cust.ID,
			Country:     cust.Country,
		})
	}
	return rows, nil
}
