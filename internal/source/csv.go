//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package source reads the flat transaction export. The reader streams the
// file through encoding/csv, maps header names onto the known columns, and
// converts each row into a model.Transaction.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pgEdge/pgedge-normalize/internal/logging"
	"github.com/pgEdge/pgedge-normalize/internal/model"
)

// Column identifies one of the export's fields.
type Column int

const (
	ColInvoiceNo Column = iota
	ColStockCode
	ColDescription
	ColQuantity
	ColInvoiceDate
	ColUnitPrice
	ColCustomerID
	ColCountry
	numColumns
)

var columnNames = [numColumns]string{
	"InvoiceNo", "StockCode", "Description", "Quantity",
	"InvoiceDate", "UnitPrice", "CustomerID", "Country",
}

func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return fmt.Sprintf("Column(%d)", int(c))
	}
	return columnNames[c]
}

// headerAliases maps folded header names to columns. Folding lower-cases
// and drops spaces and underscores.
var headerAliases = map[string]Column{
	"invoiceno":   ColInvoiceNo,
	"invoice":     ColInvoiceNo,
	"stockcode":   ColStockCode,
	"description": ColDescription,
	"quantity":    ColQuantity,
	"invoicedate": ColInvoiceDate,
	"unitprice":   ColUnitPrice,
	"price":       ColUnitPrice,
	"customerid":  ColCustomerID,
	"country":     ColCountry,
}

const utf8BOM = "\uFEFF"

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// RowError describes a row that could not be converted.
type RowError struct {
	Row    int
	Column Column
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Options configures the reader. Zero values pick the defaults of the
// "Online Retail" export.
type Options struct {
	// Encoding is "utf-8" (default) or "latin1".
	Encoding string

	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// TimestampLayout is a Go time layout; "1/2/2006 15:04" when empty.
	TimestampLayout string

	// Location is the zone timestamps are recorded in; UTC when nil.
	Location *time.Location

	// SkipMalformed reports bad rows as issues instead of failing.
	SkipMalformed bool
}

// Result is the outcome of reading an export.
type Result struct {
	Transactions []model.Transaction
	Issues       []model.Issue
	Skipped      int
}

// Reader converts CSV exports into transactions.
type Reader struct {
	opt Options
}

// NewReader returns a Reader with defaults applied to opt.
func NewReader(opt Options) *Reader {
	if opt.Comma == 0 {
		opt.Comma = ','
	}
	if opt.TimestampLayout == "" {
		opt.TimestampLayout = "1/2/2006 15:04"
	}
	if opt.Location == nil {
		opt.Location = time.UTC
	}
	return &Reader{opt: opt}
}

// ReadFile opens path and reads it.
func (r *Reader) ReadFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return r.Read(ctx, f)
}

// Read consumes in until EOF.
func (r *Reader) Read(ctx context.Context, in io.Reader) (*Result, error) {
	src, err := r.decoder(in)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(src)
	cr.Comma = r.opt.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("input is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	log := logging.With("source")
	res := &Result{}
	row := 0

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if row%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		var tx model.Transaction
		if err == nil {
			tx, err = r.convert(row, rec, index)
		} else {
			err = &RowError{Row: row, Column: -1, Err: err}
		}
		if err != nil {
			if !r.opt.SkipMalformed {
				return nil, err
			}
			res.Skipped++
			res.Issues = append(res.Issues, model.Issue{
				Kind:    model.IssueMalformedRow,
				Row:     row,
				Key:     "row",
				Message: err.Error(),
			})
			log.Warn().Int("row", row).Err(err).Msg("Skipping malformed row")
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}

	log.Info().
		Int("rows", row).
		Int("transactions", len(res.Transactions)).
		Int("skipped", res.Skipped).
		Msg("Read export")

	return res, nil
}

func (r *Reader) decoder(in io.Reader) (io.Reader, error) {
	switch strings.ToLower(r.opt.Encoding) {
	case "", "utf-8", "utf8":
		return in, nil
	case "latin1", "iso-8859-1":
		return transform.NewReader(in, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", r.opt.Encoding)
	}
}

func foldHeader(h string) string {
	h = strings.TrimPrefix(h, utf8BOM)
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "")
	return strings.ReplaceAll(h, "_", "")
}

func mapHeader(header []string) ([numColumns]int, error) {
	var index [numColumns]int
	for i := range index {
		index[i] = -1
	}
	for pos, h := range header {
		if col, ok := headerAliases[foldHeader(h)]; ok && index[col] < 0 {
			index[col] = pos
		}
	}

	var missing []string
	for col, pos := range index {
		if pos < 0 {
			missing = append(missing, Column(col).String())
		}
	}
	if len(missing) > 0 {
		return index, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return index, nil
}

func (r *Reader) convert(row int, rec []string, index [numColumns]int) (model.Transaction, error) {
	field := func(c Column) string {
		pos := index[c]
		if pos >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[pos])
	}
	fail := func(c Column, err error) (model.Transaction, error) {
		return model.Transaction{}, &RowError{Row: row, Column: c, Err: err}
	}

	for _, pos := range index {
		if pos >= len(rec) {
			return fail(-1, fmt.Errorf("expected at least %d fields, got %d", pos+1, len(rec)))
		}
	}

	tx := model.Transaction{
		Row:         row,
		InvoiceNo:   field(ColInvoiceNo),
		StockCode:   field(ColStockCode),
		Description: norm.NFC.String(field(ColDescription)),
		Country:     field(ColCountry),
	}
	if tx.InvoiceNo == "" {
		return fail(ColInvoiceNo, errors.New("value is required"))
	}
	if tx.StockCode == "" {
		return fail(ColStockCode, errors.New("value is required"))
	}

	// Quantities are stored as 32-bit integers by the database sinks.
	qty, err := strconv.ParseInt(field(ColQuantity), 10, 32)
	if err != nil {
		return fail(ColQuantity, err)
	}
	tx.Quantity = int(qty)

	at, err := time.ParseInLocation(r.opt.TimestampLayout, field(ColInvoiceDate), r.opt.Location)
	if err != nil {
		return fail(ColInvoiceDate, err)
	}
	tx.InvoiceDate = at.UTC()

	price, err := decimal.NewFromString(field(ColUnitPrice))
	if err != nil {
		return fail(ColUnitPrice, err)
	}
	tx.UnitPrice = price

	if raw := field(ColCustomerID); raw != "" {
		id, err := parseCustomerID(raw)
		if err != nil {
			return fail(ColCustomerID, err)
		}
		// Non-positive ids are reserved for the synthetic sentinel customers.
		if id <= 0 {
			return fail(ColCustomerID, fmt.Errorf("customer id must be positive, got %d", id))
		}
		tx.CustomerID = &id
	}

	return tx, nil
}

// parseCustomerID accepts integers and integral decimals such as "17850.0",
// which spreadsheet round trips produce.
func parseCustomerID(raw string) (int64, error) {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("customer id %q is not an integer", raw)
	}
	return d.IntPart(), nil
}
