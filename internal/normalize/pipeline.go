//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package normalize resolves a flat transaction export into customers,
// products, invoices and invoice lines.
//
// A run executes five passes strictly in order: identifier repair, customer
// resolution, product resolution, invoice resolution and line expansion.
// Each pass reads the repaired copy of the input; the caller's slice is
// never modified. Surrogate keys are drawn from sequences owned by the run,
// so two runs over the same input produce the same keys.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pgEdge/pgedge-normalize/internal/logging"
	"github.com/pgEdge/pgedge-normalize/internal/model"
)

// Stats summarizes a run.
type Stats struct {
	Transactions int
	Repaired     int
	Customers    int
	Products     int
	Invoices     int
	InvoiceLines int
}

// Result is the outcome of a successful run.
type Result struct {
	Dataset model.Dataset
	Issues  []model.Issue
	Stats   Stats
}

// Pipeline runs the resolution passes under a fixed policy.
type Pipeline struct {
	policy Policy
}

// New validates the policy and returns a pipeline.
func New(policy Policy) (*Pipeline, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{policy: policy}, nil
}

// Policy returns the policy the pipeline was built with.
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// Run resolves txs into a dataset.
func (p *Pipeline) Run(ctx context.Context, txs []model.Transaction) (*Result, error) {
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	work := make([]model.Transaction, len(txs))
	copy(work, txs)
	for i := range work {
		if work[i].CustomerID != nil {
			id := *work[i].CustomerID
			work[i].CustomerID = &id
		}
	}
	sort.SliceStable(work, func(i, j int) bool { return work[i].Row < work[j].Row })

	res := &Result{Stats: Stats{Transactions: len(work)}}

	// Identifier repair
	repaired, issues := RepairIdentifiers(work, p.policy.Sentinels)
	res.Stats.Repaired = repaired
	if p.policy.UnmappedCountry == ViolationFail && len(issues) > 0 {
		return nil, errors.Join(unmappedCountryErrors(issues)...)
	}
	res.Issues = append(res.Issues, issues...)
	logging.Debug().
		Int("repaired", repaired).
		Int("unmapped", len(issues)).
		Msg("Repaired customer identifiers")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Customers
	customers, err := ResolveCustomers(work, p.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customers: %w", err)
	}
	res.Dataset.Customers = customers
	logging.Debug().Int("customers", len(customers)).Msg("Resolved customers")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Products
	products, issues := ResolveProducts(work, p.policy, NewSequence(1))
	if p.policy.MissingDescription == ViolationFail && len(issues) > 0 {
		return nil, errors.Join(missingDescriptionErrors(issues)...)
	}
	res.Issues = append(res.Issues, issues...)
	res.Dataset.Products = products
	logging.Debug().
		Int("products", len(products)).
		Int("missing_descriptions", len(issues)).
		Msg("Resolved products")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Invoices
	invoices, err := ResolveInvoices(work)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve invoices: %w", err)
	}
	res.Dataset.Invoices = invoices
	logging.Debug().Int("invoices", len(invoices)).Msg("Resolved invoices")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Lines
	lines, err := ExpandLines(work, products, NewSequence(1))
	if err != nil {
		return nil, fmt.Errorf("failed to expand invoice lines: %w", err)
	}
	res.Dataset.InvoiceLines = lines
	logging.Debug().Int("lines", len(lines)).Msg("Expanded invoice lines")

	res.Stats.Customers = len(customers)
	res.Stats.Products = len(products)
	res.Stats.Invoices = len(invoices)
	res.Stats.InvoiceLines = len(lines)

	return res, nil
}
