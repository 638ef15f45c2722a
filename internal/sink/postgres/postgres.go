//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package postgres implements the PostgreSQL sink.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-normalize/internal/db"
	"github.com/pgEdge/pgedge-normalize/internal/logging"
	"github.com/pgEdge/pgedge-normalize/internal/model"
	"github.com/pgEdge/pgedge-normalize/internal/sink"
)

// Name is the registry name of the sink.
const Name = "postgres"

func init() {
	sink.Register(Name, "PostgreSQL tables loaded with COPY in one transaction", open)
}

func open(ctx context.Context, opts sink.Options) (sink.Sink, error) {
	if opts.Connection == "" {
		return nil, fmt.Errorf("postgres sink requires a connection string")
	}
	pool, err := db.Connect(ctx, opts.Connection)
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}

// Sink writes datasets to PostgreSQL.
type Sink struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool. Close closes the pool.
func New(pool *pgxpool.Pool) *Sink {
	return &Sink{pool: pool}
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return Name
}

// Description returns a human-readable description.
func (s *Sink) Description() string {
	return "PostgreSQL tables loaded with COPY in one transaction"
}

// CreateSchema creates the tables and the invoice_details view.
func (s *Sink) CreateSchema(ctx context.Context) error {
	logging.Info().Msg("Creating normalized schema")

	if _, err := s.pool.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Info().Msg("Schema created successfully")
	return nil
}

// DropSchema drops the tables, the view and the metadata table.
func (s *Sink) DropSchema(ctx context.Context) error {
	logging.Info().Msg("Dropping normalized schema")

	if _, err := s.pool.Exec(ctx, dropSchemaSQL); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	if err := db.DropMetadata(ctx, s.pool); err != nil {
		return fmt.Errorf("failed to drop metadata: %w", err)
	}

	logging.Info().Msg("Schema dropped successfully")
	return nil
}

// Write loads the dataset with COPY and records the run metadata. Nothing
// is visible unless every table loads.
func (s *Sink) Write(ctx context.Context, ds model.Dataset, run sink.RunInfo) error {
	var populated bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoice_lines)`).Scan(&populated)
	if err != nil {
		return fmt.Errorf("failed to check existing data: %w", err)
	}
	if populated {
		return sink.ErrOutputExists
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logging.Warn().Err(rbErr).Msg("Rollback failed")
		}
	}()

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{sink.TableCustomers, []string{"customer_id", "country"}, customerRows(ds.Customers)},
		{sink.TableProducts, []string{"product_id", "stock_code", "description"}, productRows(ds.Products)},
		{sink.TableInvoices, []string{"invoice_no", "invoiced_at", "customer_id"}, invoiceRows(ds.Invoices)},
		{sink.TableInvoiceLines, []string{"line_id", "invoice_no", "product_id", "quantity", "unit_price"}, lineRows(ds.InvoiceLines)},
	}

	for _, c := range copies {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows))
		if err != nil {
			return fmt.Errorf("failed to copy %s: %w", c.table, err)
		}
		logging.Debug().
			Str("table", c.table).
			Int64("rows", n).
			Msg("Copied rows")
	}

	if err := db.SaveMetadata(ctx, tx, run.Metadata()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	logging.Info().
		Str("run_id", run.ID.String()).
		Int("invoice_lines", len(ds.InvoiceLines)).
		Msg("Dataset written to PostgreSQL")
	return nil
}

// Close closes the connection pool.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

func customerRows(customers []model.Customer) [][]any {
	rows := make([][]any, len(customers))
	for i, c := range customers {
		rows[i] = []any{c.ID, c.Country}
	}
	return rows
}

func productRows(products []model.Product) [][]any {
	rows := make([][]any, len(products))
	for i, p := range products {
		rows[i] = []any{p.ID, p.StockCode, p.Description}
	}
	return rows
}

func invoiceRows(invoices []model.Invoice) [][]any {
	rows := make([][]any, len(invoices))
	for i, inv := range invoices {
		rows[i] = []any{inv.InvoiceNo, inv.InvoicedAt, inv.CustomerID}
	}
	return rows
}

func lineRows(lines []model.InvoiceLine) [][]any {
	rows := make([][]any, len(lines))
	for i, l := range lines {
		rows[i] = []any{l.ID, l.InvoiceNo, l.ProductID, int64(l.Quantity), numeric(l.UnitPrice)}
	}
	return rows
}

// numeric converts an exact decimal to the NUMERIC wire type without a
// float round trip.
func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
