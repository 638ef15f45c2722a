//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package sqlite implements the SQLite sink on the pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/pgEdge/pgedge-normalize/internal/logging"
	"github.com/pgEdge/pgedge-normalize/internal/model"
	"github.com/pgEdge/pgedge-normalize/internal/sink"
)

// Name is the registry name of the sink.
const Name = "sqlite"

// TimeLayout is the text form of invoice timestamps.
const TimeLayout = time.RFC3339

func init() {
	sink.Register(Name, "SQLite database file written in one transaction", open)
}

func open(ctx context.Context, opts sink.Options) (sink.Sink, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite sink requires an output path")
	}
	return Open(ctx, opts.Path)
}

// Sink writes datasets to a SQLite file.
type Sink struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database file with foreign keys enforced.
func Open(ctx context.Context, path string) (*Sink, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer; pragmas apply per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	logging.Debug().Str("path", path).Msg("Opened SQLite database")
	return &Sink{db: db, path: path}, nil
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return Name
}

// Description returns a human-readable description.
func (s *Sink) Description() string {
	return "SQLite database file written in one transaction"
}

// CreateSchema creates the tables, the metadata table and the view.
func (s *Sink) CreateSchema(ctx context.Context) error {
	for _, stmt := range createSchemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	logging.Info().Str("path", s.path).Msg("Schema created successfully")
	return nil
}

// DropSchema drops everything CreateSchema created.
func (s *Sink) DropSchema(ctx context.Context) error {
	for _, stmt := range dropSchemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}
	logging.Info().Str("path", s.path).Msg("Schema dropped successfully")
	return nil
}

// Write inserts the dataset and the run metadata in one transaction.
func (s *Sink) Write(ctx context.Context, ds model.Dataset, run sink.RunInfo) error {
	var populated bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM invoice_lines)`).Scan(&populated)
	if err != nil {
		return fmt.Errorf("failed to check existing data: %w", err)
	}
	if populated {
		return sink.ErrOutputExists
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.Warn().Err(rbErr).Msg("Rollback failed")
		}
	}()

	err = insertAll(ctx, tx, sink.TableCustomers, insertCustomerSQL, len(ds.Customers), func(i int) []any {
		c := ds.Customers[i]
		return []any{c.ID, c.Country}
	})
	if err != nil {
		return err
	}

	err = insertAll(ctx, tx, sink.TableProducts, insertProductSQL, len(ds.Products), func(i int) []any {
		p := ds.Products[i]
		return []any{p.ID, p.StockCode, p.Description}
	})
	if err != nil {
		return err
	}

	err = insertAll(ctx, tx, sink.TableInvoices, insertInvoiceSQL, len(ds.Invoices), func(i int) []any {
		inv := ds.Invoices[i]
		return []any{inv.InvoiceNo, inv.InvoicedAt.UTC().Format(TimeLayout), inv.CustomerID}
	})
	if err != nil {
		return err
	}

	err = insertAll(ctx, tx, sink.TableInvoiceLines, insertLineSQL, len(ds.InvoiceLines), func(i int) []any {
		l := ds.InvoiceLines[i]
		return []any{l.ID, l.InvoiceNo, l.ProductID, l.Quantity, l.UnitPrice.String()}
	})
	if err != nil {
		return err
	}

	metadata := run.Metadata()
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	err = insertAll(ctx, tx, sink.TableMetadata, upsertMetadataSQL, len(keys), func(i int) []any {
		return []any{keys[i], metadata[keys[i]]}
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	logging.Info().
		Str("run_id", run.ID.String()).
		Str("path", s.path).
		Int("invoice_lines", len(ds.InvoiceLines)).
		Msg("Dataset written to SQLite")
	return nil
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}

// insertAll runs one prepared statement n times.
func insertAll(ctx context.Context, tx *sql.Tx, table, query string, n int, args func(i int) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	logging.Debug().Str("table", table).Int("rows", n).Msg("Inserted rows")
	return nil
}
