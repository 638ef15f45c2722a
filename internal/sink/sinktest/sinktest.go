// Package sinktest provides a small normalized dataset shared by the sink
// test suites.
package sinktest

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-normalize/internal/model"
	"github.com/pgEdge/pgedge-normalize/internal/normalize"
	"github.com/pgEdge/pgedge-normalize/internal/sink"
)

// RunID is the fixed identifier used by Run.
var RunID = uuid.MustParse("6f1c2b7e-3d4a-4b8e-9a51-0c2d7e8f9a10")

var base = time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)

// Dataset returns three customers, two products (one without a
// description), three invoices and four lines.
func Dataset() model.Dataset {
	heart := "WHITE HANGING HEART"
	return model.Dataset{
		Customers: []model.Customer{
			{ID: -5, Country: "Bahrain"},
			{ID: 12345, Country: "France"},
			{ID: 17850, Country: "United Kingdom"},
		},
		Products: []model.Product{
			{ID: 1, StockCode: "85123A", Description: &heart},
			{ID: 2, StockCode: "84406B"},
		},
		Invoices: []model.Invoice{
			{InvoiceNo: "536365", InvoicedAt: base, CustomerID: 17850},
			{InvoiceNo: "536370", InvoicedAt: base.Add(19 * time.Minute), CustomerID: 12345},
			{InvoiceNo: "C536379", InvoicedAt: base.Add(time.Hour), CustomerID: -5},
		},
		InvoiceLines: []model.InvoiceLine{
			{ID: 1, InvoiceNo: "536365", ProductID: 1, Quantity: 6, UnitPrice: decimal.RequireFromString("2.55")},
			{ID: 2, InvoiceNo: "536365", ProductID: 2, Quantity: 8, UnitPrice: decimal.RequireFromString("2.75")},
			{ID: 3, InvoiceNo: "536370", ProductID: 1, Quantity: 24, UnitPrice: decimal.RequireFromString("3.75")},
			{ID: 4, InvoiceNo: "C536379", ProductID: 2, Quantity: -1, UnitPrice: decimal.RequireFromString("27.50")},
		},
	}
}

// Run returns run metadata matching Dataset.
func Run() sink.RunInfo {
	return sink.RunInfo{
		ID:         RunID,
		Source:     "online_retail.csv",
		StartedAt:  base,
		FinishedAt: base.Add(time.Second),
		Stats: normalize.Stats{
			Transactions: 4,
			Repaired:     1,
			Customers:    3,
			Products:     2,
			Invoices:     3,
			InvoiceLines: 4,
		},
		Issues: 1,
	}
}
