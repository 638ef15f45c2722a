package normalize

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-normalize/internal/model"
)

var base = time.Date(2010, 12, 1, 10, 0, 0, 0, time.UTC)

func cust(id int64) *int64 { return &id }

func at(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

// tx builds a transaction; rows are numbered by the caller.
func tx(row int, invoice, code, desc string, qty int, when time.Time, customer *int64, country string) model.Transaction {
	return model.Transaction{
		Row:         row,
		InvoiceNo:   invoice,
		StockCode:   code,
		Description: desc,
		Quantity:    qty,
		InvoiceDate: when,
		UnitPrice:   decimal.RequireFromString("2.50"),
		CustomerID:  customer,
		Country:     country,
	}
}

func mustPipeline(p Policy) *Pipeline {
	pl, err := New(p)
	if err != nil {
		panic(err)
	}
	return pl
}
