package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pgEdge/pgedge-normalize/internal/sink"
	"github.com/pgEdge/pgedge-normalize/internal/sink/sinktest"
)

func openTestSink(t *testing.T) *Sink {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "normalized.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.CreateSchema(context.Background()); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	return s
}

func count(t *testing.T, s *Sink, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return n
}

func TestWrite(t *testing.T) {
	ctx := context.Background()
	s := openTestSink(t)

	if err := s.Write(ctx, sinktest.Dataset(), sinktest.Run()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	counts := map[string]int{
		"customers":       3,
		"products":        2,
		"invoices":        3,
		"invoice_lines":   4,
		"invoice_details": 4,
	}
	for table, want := range counts {
		if got := count(t, s, table); got != want {
			t.Errorf("%s has %d rows, want %d", table, got, want)
		}
	}

	var desc sql.NullString
	var price, invoicedAt, country string
	err := s.db.QueryRow(`
        SELECT description, unit_price, invoiced_at, country
        FROM invoice_details WHERE line_id = 4
    `).Scan(&desc, &price, &invoicedAt, &country)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if desc.Valid {
		t.Errorf("expected NULL description, got %q", desc.String)
	}
	if price != "27.5" {
		t.Errorf("expected price 27.5, got %s", price)
	}
	if invoicedAt != "2010-12-01T09:26:00Z" {
		t.Errorf("unexpected invoiced_at %s", invoicedAt)
	}
	if country != "Bahrain" {
		t.Errorf("expected Bahrain, got %s", country)
	}

	var runID string
	if err := s.db.QueryRow(`SELECT value FROM normalize_metadata WHERE key = 'run_id'`).Scan(&runID); err != nil {
		t.Fatalf("metadata query failed: %v", err)
	}
	if runID != sinktest.RunID.String() {
		t.Errorf("run_id = %s, want %s", runID, sinktest.RunID)
	}
}

func TestWriteTwice(t *testing.T) {
	ctx := context.Background()
	s := openTestSink(t)

	if err := s.Write(ctx, sinktest.Dataset(), sinktest.Run()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	err := s.Write(ctx, sinktest.Dataset(), sinktest.Run())
	if !errors.Is(err, sink.ErrOutputExists) {
		t.Errorf("expected ErrOutputExists, got %v", err)
	}
}

func TestWriteRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := openTestSink(t)

	// A line pointing at a missing product violates the foreign key.
	ds := sinktest.Dataset()
	ds.InvoiceLines[0].ProductID = 99

	if err := s.Write(ctx, ds, sinktest.Run()); err == nil {
		t.Fatal("expected foreign key violation")
	}
	if got := count(t, s, "customers"); got != 0 {
		t.Errorf("customers should be rolled back, found %d rows", got)
	}
}

func TestDropSchema(t *testing.T) {
	ctx := context.Background()
	s := openTestSink(t)

	if err := s.Write(ctx, sinktest.Dataset(), sinktest.Run()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.DropSchema(ctx); err != nil {
		t.Fatalf("DropSchema failed: %v", err)
	}

	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type IN ('table', 'view')`).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master query failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no tables or views after drop, found %d", n)
	}

	// Schema can be recreated and written again.
	if err := s.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	if err := s.Write(ctx, sinktest.Dataset(), sinktest.Run()); err != nil {
		t.Fatalf("Write after drop failed: %v", err)
	}
}
