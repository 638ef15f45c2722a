//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package sink defines the output interface for normalized datasets and a
// registry of implementations.
package sink

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-normalize/internal/model"
	"github.com/pgEdge/pgedge-normalize/internal/normalize"
	"github.com/pgEdge/pgedge-normalize/pkg/version"
)

// Output table names, in load order.
const (
	TableCustomers     = "customers"
	TableProducts      = "products"
	TableInvoices      = "invoices"
	TableInvoiceLines  = "invoice_lines"
	ViewInvoiceDetails = "invoice_details"
	TableMetadata      = "normalize_metadata"
)

// ErrOutputExists is returned by Write when the target already holds a
// normalized dataset. Drop the schema first to replace it.
var ErrOutputExists = errors.New("output already contains normalized data")

// Options carries the settings a sink needs to open its target.
type Options struct {
	// Connection is a PostgreSQL connection string.
	Connection string

	// Path is a file (sqlite) or directory (csv).
	Path string
}

// Sink writes a normalized dataset to a storage target.
type Sink interface {
	// Name returns the sink name.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// CreateSchema prepares the target. It is safe to call repeatedly.
	CreateSchema(ctx context.Context) error

	// DropSchema removes everything CreateSchema and Write created.
	DropSchema(ctx context.Context) error

	// Write stores the dataset and the run metadata atomically where the
	// target allows it.
	Write(ctx context.Context, ds model.Dataset, run RunInfo) error

	// Close releases the target.
	Close() error
}

// RunInfo describes the run that produced a dataset.
type RunInfo struct {
	ID         uuid.UUID
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      normalize.Stats
	Issues     int
}

// NewRunInfo starts a run record with a fresh identifier.
func NewRunInfo(source string, startedAt time.Time) RunInfo {
	return RunInfo{
		ID:        uuid.New(),
		Source:    source,
		StartedAt: startedAt.UTC(),
	}
}

// Finish records the outcome of the pipeline.
func (r *RunInfo) Finish(res *normalize.Result, finishedAt time.Time) {
	r.Stats = res.Stats
	r.Issues = len(res.Issues)
	r.FinishedAt = finishedAt.UTC()
}

// Metadata flattens the run into the key/value pairs stored next to the
// output.
func (r RunInfo) Metadata() map[string]string {
	return map[string]string{
		"run_id":        r.ID.String(),
		"version":       version.Version,
		"source":        r.Source,
		"started_at":    r.StartedAt.Format(time.RFC3339),
		"finished_at":   r.FinishedAt.Format(time.RFC3339),
		"transactions":  strconv.Itoa(r.Stats.Transactions),
		"repaired":      strconv.Itoa(r.Stats.Repaired),
		"customers":     strconv.Itoa(r.Stats.Customers),
		"products":      strconv.Itoa(r.Stats.Products),
		"invoices":      strconv.Itoa(r.Stats.Invoices),
		"invoice_lines": strconv.Itoa(r.Stats.InvoiceLines),
		"issues":        strconv.Itoa(r.Issues),
	}
}
