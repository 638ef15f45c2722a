//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package csv implements a sink that writes one CSV file per table into a
// directory.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-normalize/internal/logging"
	"github.com/pgEdge/pgedge-normalize/internal/model"
	"github.com/pgEdge/pgedge-normalize/internal/normalize"
	"github.com/pgEdge/pgedge-normalize/internal/sink"
)

// Name is the registry name of the sink.
const Name = "csv"

// TimeLayout is the text form of invoice timestamps.
const TimeLayout = time.RFC3339

// Files lists the file names the sink owns, in write order.
var Files = []string{
	sink.TableCustomers + ".csv",
	sink.TableProducts + ".csv",
	sink.TableInvoices + ".csv",
	sink.TableInvoiceLines + ".csv",
	sink.ViewInvoiceDetails + ".csv",
	"metadata.csv",
}

func init() {
	sink.Register(Name, "Directory of CSV files, one per table", open)
}

func open(_ context.Context, opts sink.Options) (sink.Sink, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("csv sink requires an output directory")
	}
	return New(opts.Path), nil
}

// rename is swapped out by tests to fail part way through a write.
var rename = os.Rename

// Sink writes datasets as CSV files.
type Sink struct {
	dir string
}

// New returns a sink writing into dir.
func New(dir string) *Sink {
	return &Sink{dir: dir}
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return Name
}

// Description returns a human-readable description.
func (s *Sink) Description() string {
	return "Directory of CSV files, one per table"
}

// CreateSchema creates the output directory.
func (s *Sink) CreateSchema(_ context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// DropSchema removes the files the sink owns. Other files in the directory
// are left alone.
func (s *Sink) DropSchema(_ context.Context) error {
	for _, name := range Files {
		err := os.Remove(filepath.Join(s.dir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	logging.Info().Str("path", s.dir).Msg("Output files removed")
	return nil
}

// Write writes every table, the denormalized view and the run metadata.
// Files are written under temporary names and renamed once all succeed.
func (s *Sink) Write(ctx context.Context, ds model.Dataset, run sink.RunInfo) error {
	for _, name := range Files {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
			return sink.ErrOutputExists
		}
	}

	details, err := normalize.Denormalize(ds)
	if err != nil {
		return fmt.Errorf("failed to build invoice details: %w", err)
	}

	tables := map[string][][]string{
		Files[0]: customerRecords(ds.Customers),
		Files[1]: productRecords(ds.Products),
		Files[2]: invoiceRecords(ds.Invoices),
		Files[3]: lineRecords(ds.InvoiceLines),
		Files[4]: detailRecords(details),
		Files[5]: metadataRecords(run.Metadata()),
	}

	var written []string
	cleanup := func() {
		for _, tmp := range written {
			_ = os.Remove(tmp)
		}
	}

	for _, name := range Files {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		tmp := filepath.Join(s.dir, "."+name+".tmp")
		if err := writeFile(tmp, tables[name]); err != nil {
			cleanup()
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, tmp)
	}

	for i, name := range Files {
		if err := rename(written[i], filepath.Join(s.dir, name)); err != nil {
			// Leave the directory as it was so the next write can start over.
			for _, done := range Files[:i] {
				_ = os.Remove(filepath.Join(s.dir, done))
			}
			for _, tmp := range written[i:] {
				_ = os.Remove(tmp)
			}
			return fmt.Errorf("failed to rename %s: %w", name, err)
		}
	}

	logging.Info().
		Str("run_id", run.ID.String()).
		Str("path", s.dir).
		Int("invoice_lines", len(ds.InvoiceLines)).
		Msg("Dataset written to CSV files")
	return nil
}

// Close is a no-op.
func (s *Sink) Close() error {
	return nil
}

func writeFile(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func description(d *string) string {
	if d == nil {
		return ""
	}
	return *d
}

func customerRecords(customers []model.Customer) [][]string {
	records := [][]string{{"customer_id", "country"}}
	for _, c := range customers {
		records = append(records, []string{id(c.ID), c.Country})
	}
	return records
}

func productRecords(products []model.Product) [][]string {
	records := [][]string{{"product_id", "stock_code", "description"}}
	for _, p := range products {
		records = append(records, []string{id(p.ID), p.StockCode, description(p.Description)})
	}
	return records
}

func invoiceRecords(invoices []model.Invoice) [][]string {
	records := [][]string{{"invoice_no", "invoiced_at", "customer_id"}}
	for _, inv := range invoices {
		records = append(records, []string{
			inv.InvoiceNo,
			inv.InvoicedAt.UTC().Format(TimeLayout),
			id(inv.CustomerID),
		})
	}
	return records
}

func lineRecords(lines []model.InvoiceLine) [][]string {
	records := [][]string{{"line_id", "invoice_no", "product_id", "quantity", "unit_price"}}
	for _, l := range lines {
		records = append(records, []string{
			id(l.ID),
			l.InvoiceNo,
			id(l.ProductID),
			strconv.Itoa(l.Quantity),
			l.UnitPrice.String(),
		})
	}
	return records
}

func detailRecords(rows []model.DetailRow) [][]string {
	records := [][]string{{
		"line_id", "invoice_no", "stock_code", "description", "quantity",
		"invoiced_at", "unit_price", "customer_id", "country",
	}}
	for _, r := range rows {
		records = append(records, []string{
			id(r.LineID),
			r.InvoiceNo,
			r.StockCode,
			description(r.Description),
			strconv.Itoa(r.Quantity),
			r.InvoicedAt.UTC().Format(TimeLayout),
			r.UnitPrice.String(),
			id(r.CustomerID),
			r.Country,
		})
	}
	return records
}

func metadataRecords(metadata map[string]string) [][]string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := [][]string{{"key", "value"}}
	for _, k := range keys {
		records = append(records, []string{k, metadata[k]})
	}
	return records
}
