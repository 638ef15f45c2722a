//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package model defines the source and derived records of a normalization run.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one row of the flat export.
type Transaction struct {
	// Row is the 1-based data row number in the source.
	Row int

	InvoiceNo   string
	StockCode   string
	Description string
	Quantity    int
	InvoiceDate time.Time
	UnitPrice   decimal.Decimal

	// CustomerID is nil when the export has no customer for the row.
	CustomerID *int64

	Country string
}

// HasCustomer reports whether the transaction carries a customer identifier.
func (t Transaction) HasCustomer() bool {
	return t.CustomerID != nil
}

// Customer is a resolved customer.
type Customer struct {
	ID      int64
	Country string
}

// Product is a resolved product. Description is nil when no non-empty
// description was ever observed for the stock code.
type Product struct {
	ID          int64
	StockCode   string
	Description *string
}

// Invoice is a resolved invoice header.
type Invoice struct {
	InvoiceNo  string
	InvoicedAt time.Time
	CustomerID int64
}

// InvoiceLine is one source row re-keyed against the resolved product.
type InvoiceLine struct {
	ID        int64
	InvoiceNo string
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Dataset holds the four tables produced by a run.
type Dataset struct {
	Customers    []Customer
	Products     []Product
	Invoices     []Invoice
	InvoiceLines []InvoiceLine
}

// DetailRow is one row of the denormalized view that joins the four tables
// back into the shape of the export.
type DetailRow struct {
	LineID      int64
	InvoiceNo   string
	StockCode   string
	Description *string
	Quantity    int
	InvoicedAt  time.Time
	UnitPrice   decimal.Decimal
	CustomerID  int64
	Country     string
}

// Transaction converts the row back into a source transaction. Row is taken
// from the line id so first-seen ordering is preserved.
func (d DetailRow) Transaction() Transaction {
	id := d.CustomerID
	var desc string
	if d.Description != nil {
		desc = *d.Description
	}
	return Transaction{
		Row:         int(d.LineID),
		InvoiceNo:   d.InvoiceNo,
		StockCode:   d.StockCode,
		Description: desc,
		Quantity:    d.Quantity,
		InvoiceDate: d.InvoicedAt,
		UnitPrice:   d.UnitPrice,
		CustomerID:  &id,
		Country:     d.Country,
	}
}
