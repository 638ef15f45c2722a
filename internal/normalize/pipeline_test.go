package normalize

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/pgEdge/pgedge-normalize/internal/model"
)

// messyExport has missing customers, description variants, a customer that
// moved country and invoice lines with different timestamps.
func messyExport() []model.Transaction {
	return []model.Transaction{
		tx(1, "536365", "85123A", "WHITE HANGING HEART", 6, at(0), cust(17850), "United Kingdom"),
		tx(2, "536365", "71053", "WHITE METAL LANTERN", 6, at(1), cust(17850), "United Kingdom"),
		tx(3, "536366", "85123A", "WHITE HANGING HEART ", 2, at(30), nil, "United Kingdom"),
		tx(4, "536367", "84406B", "", 8, at(45), cust(13047), "United Kingdom"),
		tx(5, "536368", "85123A", "white hanging heart", 1, at(60), cust(13047), "EIRE"),
		tx(6, "536369", "71053", "WHITE METAL LANTERN", 3, at(70), nil, "Bahrain"),
		tx(7, "536370", "22728", "ALARM CLOCK", 24, at(80), nil, "Bahrain"),
		tx(8, "536370", "22728", "ALARM CLOCK BAKELIKE", 24, at(79), nil, "Bahrain"),
		tx(9, "536371", "22728", "ALARM CLOCK", 1, at(90), nil, "Lithuania"),
	}
}

func distinct[T comparable](txs []model.Transaction, key func(model.Transaction) T) int {
	seen := make(map[T]struct{})
	for _, x := range txs {
		seen[key(x)] = struct{}{}
	}
	return len(seen)
}

func TestRunProperties(t *testing.T) {
	input := messyExport()
	res, err := mustPipeline(DefaultPolicy()).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	ds := res.Dataset

	t.Run("input untouched", func(t *testing.T) {
		if input[2].CustomerID != nil {
			t.Error("Run modified the caller's transactions")
		}
	})

	// Repeat the repair on a copy to count the distinct repaired ids
	repaired := make([]model.Transaction, len(input))
	copy(repaired, input)
	RepairIdentifiers(repaired, DefaultPolicy().Sentinels)

	t.Run("customer cardinality", func(t *testing.T) {
		want := distinct(repaired, func(x model.Transaction) int64 { return *x.CustomerID })
		if len(ds.Customers) != want {
			t.Errorf("customers = %d, want %d", len(ds.Customers), want)
		}
	})

	t.Run("product cardinality", func(t *testing.T) {
		want := distinct(input, func(x model.Transaction) string { return x.StockCode })
		if len(ds.Products) != want {
			t.Errorf("products = %d, want %d", len(ds.Products), want)
		}
	})

	t.Run("invoice cardinality", func(t *testing.T) {
		want := distinct(input, func(x model.Transaction) string { return x.InvoiceNo })
		if len(ds.Invoices) != want {
			t.Errorf("invoices = %d, want %d", len(ds.Invoices), want)
		}
	})

	t.Run("line preservation", func(t *testing.T) {
		if len(ds.InvoiceLines) != len(input) {
			t.Errorf("lines = %d, want %d", len(ds.InvoiceLines), len(input))
		}
	})

	t.Run("resolved values", func(t *testing.T) {
		countries := make(map[int64]string)
		for _, c := range ds.Customers {
			countries[c.ID] = c.Country
		}
		if countries[13047] != "EIRE" {
			t.Errorf("13047 country = %s, want latest EIRE", countries[13047])
		}
		if countries[-5] != "Bahrain" {
			t.Errorf("Bahrain sentinel customer missing: %v", countries)
		}
		if countries[DefaultSentinelID] != "Lithuania" {
			t.Errorf("default sentinel customer missing: %v", countries)
		}

		for _, inv := range ds.Invoices {
			if inv.InvoiceNo == "536370" && !inv.InvoicedAt.Equal(at(79)) {
				t.Errorf("536370 timestamp = %v, want earliest %v", inv.InvoicedAt, at(79))
			}
		}
	})

	t.Run("issues and stats", func(t *testing.T) {
		kinds := make(map[model.IssueKind]int)
		for _, is := range res.Issues {
			kinds[is.Kind]++
		}
		if kinds[model.IssueUnmappedCountry] != 1 {
			t.Errorf("unmapped issues = %d, want 1", kinds[model.IssueUnmappedCountry])
		}
		if kinds[model.IssueMissingDescription] != 1 {
			t.Errorf("missing description issues = %d, want 1", kinds[model.IssueMissingDescription])
		}
		if res.Stats.Repaired != 5 || res.Stats.Transactions != 9 {
			t.Errorf("stats = %+v", res.Stats)
		}
	})
}

func TestRunIdempotent(t *testing.T) {
	pl := mustPipeline(DefaultPolicy())
	first, err := pl.Run(context.Background(), messyExport())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rows, err := Denormalize(first.Dataset)
	if err != nil {
		t.Fatalf("Denormalize failed: %v", err)
	}
	again := make([]model.Transaction, len(rows))
	for i, r := range rows {
		again[i] = r.Transaction()
	}

	second, err := pl.Run(context.Background(), again)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if !reflect.DeepEqual(first.Dataset.Customers, second.Dataset.Customers) {
		t.Errorf("customers differ:\n%+v\n%+v", first.Dataset.Customers, second.Dataset.Customers)
	}
	if !reflect.DeepEqual(first.Dataset.Products, second.Dataset.Products) {
		t.Errorf("products differ:\n%+v\n%+v", first.Dataset.Products, second.Dataset.Products)
	}
	if !reflect.DeepEqual(first.Dataset.Invoices, second.Dataset.Invoices) {
		t.Errorf("invoices differ:\n%+v\n%+v", first.Dataset.Invoices, second.Dataset.Invoices)
	}
	if second.Stats.Repaired != 0 {
		t.Errorf("second run repaired %d rows, want 0", second.Stats.Repaired)
	}
}

func TestRunWidgetScenario(t *testing.T) {
	input := []model.Transaction{
		tx(1, "INV1", "A1", "Widget", 3, at(0), cust(5), "UK"),
		tx(2, "INV1", "A1", "widget", 2, at(1), cust(5), "UK"),
	}
	res, err := mustPipeline(DefaultPolicy()).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	ds := res.Dataset

	if len(ds.Customers) != 1 || ds.Customers[0] != (model.Customer{ID: 5, Country: "UK"}) {
		t.Errorf("customers = %+v", ds.Customers)
	}
	if len(ds.Products) != 1 {
		t.Fatalf("products = %+v", ds.Products)
	}
	if d := ds.Products[0].Description; d == nil || (*d != "Widget" && *d != "widget") {
		t.Errorf("description = %v", d)
	}
	if len(ds.Invoices) != 1 || !ds.Invoices[0].InvoicedAt.Equal(at(0)) || ds.Invoices[0].CustomerID != 5 {
		t.Errorf("invoices = %+v", ds.Invoices)
	}
	if len(ds.InvoiceLines) != 2 {
		t.Fatalf("lines = %+v", ds.InvoiceLines)
	}
	if ds.InvoiceLines[0].Quantity != 3 || ds.InvoiceLines[1].Quantity != 2 {
		t.Errorf("quantities = %d, %d", ds.InvoiceLines[0].Quantity, ds.InvoiceLines[1].Quantity)
	}
	if ds.InvoiceLines[0].ProductID != ds.InvoiceLines[1].ProductID {
		t.Error("lines should reference the same product")
	}
}

func TestRunBahrainScenario(t *testing.T) {
	input := []model.Transaction{tx(1, "INV9", "A1", "Widget", 1, at(0), nil, "Bahrain")}
	res, err := mustPipeline(DefaultPolicy()).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := res.Dataset.Invoices[0].CustomerID; got != -5 {
		t.Errorf("repaired customer = %d, want -5", got)
	}
}

func TestRunFailPolicies(t *testing.T) {
	t.Run("unmapped country", func(t *testing.T) {
		p := DefaultPolicy()
		p.UnmappedCountry = ViolationFail
		_, err := mustPipeline(p).Run(context.Background(), messyExport())
		var ue *UnmappedCountryError
		if !errors.As(err, &ue) || ue.Country != "Lithuania" || ue.Rows[0] != 9 {
			t.Errorf("Expected UnmappedCountryError for Lithuania, got %v", err)
		}
		if !errors.Is(err, ErrUnmappedCountry) {
			t.Errorf("Expected ErrUnmappedCountry, got %v", err)
		}
	})

	t.Run("missing description", func(t *testing.T) {
		p := DefaultPolicy()
		p.MissingDescription = ViolationFail
		_, err := mustPipeline(p).Run(context.Background(), messyExport())
		if !errors.Is(err, ErrMissingDescription) {
			t.Errorf("Expected ErrMissingDescription, got %v", err)
		}
	})

	t.Run("invoice conflict", func(t *testing.T) {
		input := append(messyExport(), tx(10, "536365", "22728", "ALARM CLOCK", 1, at(2), cust(99), "France"))
		_, err := mustPipeline(DefaultPolicy()).Run(context.Background(), input)
		if !errors.Is(err, ErrInvoiceCustomerConflict) {
			t.Errorf("Expected ErrInvoiceCustomerConflict, got %v", err)
		}
	})
}

func TestRunEmptyAndCancelled(t *testing.T) {
	pl := mustPipeline(DefaultPolicy())
	if _, err := pl.Run(context.Background(), nil); !errors.Is(err, ErrNoTransactions) {
		t.Errorf("Expected ErrNoTransactions, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pl.Run(ctx, messyExport()); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRunSortsByRow(t *testing.T) {
	input := messyExport()
	input[0], input[8] = input[8], input[0]

	res, err := mustPipeline(DefaultPolicy()).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Dataset.Products[0].StockCode != "85123A" {
		t.Errorf("first product = %s, want 85123A (row 1)", res.Dataset.Products[0].StockCode)
	}
}

func TestNewRejectsInvalidPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.DescriptionSelection = "longest"
	if _, err := New(p); !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("Expected ErrInvalidPolicy, got %v", err)
	}
	if _, err := New(Policy{}); !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("Expected ErrInvalidPolicy for empty policy, got %v", err)
	}
}

func TestDenormalizeUnknownReferences(t *testing.T) {
	ds := model.Dataset{
		InvoiceLines: []model.InvoiceLine{{ID: 1, InvoiceNo: "X", ProductID: 1}},
	}
	if _, err := Denormalize(ds); err == nil {
		t.Error("Expected error for dangling invoice reference")
	}
}
