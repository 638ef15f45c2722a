//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package testutil sets up scratch PostgreSQL databases for the
// integration tests of the postgres sink.
package testutil

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-normalize/internal/db"
	"github.com/pgEdge/pgedge-normalize/internal/sink/postgres"
)

const (
	// DefaultConnString is used when PGEDGE_TEST_CONN is not set.
	DefaultConnString = "postgres://postgres@localhost:5432/postgres"

	// DBPrefix starts the name of every scratch database.
	DBPrefix = "normalize_test_"
)

// AdminConnString returns the server connection string the scratch
// databases are created from, or skips t when the server cannot be reached.
func AdminConnString(t *testing.T) string {
	t.Helper()

	connStr := os.Getenv("PGEDGE_TEST_CONN")
	if connStr == "" {
		connStr = DefaultConnString
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, connStr)
	if err != nil {
		t.Skipf("PostgreSQL not available, skipping integration test: %v", err)
	}
	pool.Close()
	return connStr
}

// Database is a scratch database owned by a single test.
type Database struct {
	Name    string
	ConnStr string
	Pool    *pgxpool.Pool
}

// NewDatabase creates an empty database for t and connects to it. The
// database is dropped when t finishes, unless t failed, in which case it
// is kept for inspection.
func NewDatabase(t *testing.T, label string) *Database {
	t.Helper()

	admin := AdminConnString(t)
	name := DBPrefix + label + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	adminPool, err := db.Connect(ctx, admin)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer adminPool.Close()

	if _, err := adminPool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		t.Fatalf("Failed to create database %s: %v", name, err)
	}

	connStr, err := withDatabase(admin, name)
	if err != nil {
		t.Fatalf("Failed to build connection string: %v", err)
	}
	pool, err := db.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", name, err)
	}

	d := &Database{Name: name, ConnStr: connStr, Pool: pool}
	t.Cleanup(func() {
		pool.Close()
		if t.Failed() {
			t.Logf("Keeping database %s for diagnostics", name)
			return
		}
		dropDatabase(t, admin, name)
	})
	return d
}

// PostgresSink returns a sink on a separate pool with the normalized
// schema already created. The sink is closed when t finishes.
func (d *Database) PostgresSink(t *testing.T) *postgres.Sink {
	t.Helper()

	ctx := context.Background()
	pool, err := db.Connect(ctx, d.ConnStr)
	if err != nil {
		t.Fatalf("Failed to connect sink to %s: %v", d.Name, err)
	}
	s := postgres.New(pool)
	t.Cleanup(func() { _ = s.Close() })

	if err := s.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	return s
}

// RowCount returns the number of rows in a table or view.
func (d *Database) RowCount(t *testing.T, table string) int {
	t.Helper()

	var n int
	query := "SELECT count(*) FROM " + pgx.Identifier{table}.Sanitize()
	if err := d.Pool.QueryRow(context.Background(), query).Scan(&n); err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return n
}

// withDatabase points a connection string at another database on the
// same server.
func withDatabase(connStr, name string) (string, error) {
	cfg, err := pgx.ParseConfig(connStr)
	if err != nil {
		return "", err
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port))),
		Path:   "/" + name,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	if cfg.TLSConfig == nil {
		u.RawQuery = "sslmode=disable"
	}
	return u.String(), nil
}

func dropDatabase(t *testing.T, admin, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, admin)
	if err != nil {
		t.Logf("Warning: cannot drop %s: %v", name, err)
		return
	}
	defer pool.Close()

	drop := fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pgx.Identifier{name}.Sanitize())
	if _, err := pool.Exec(ctx, drop); err != nil {
		t.Logf("Warning: failed to drop %s: %v", name, err)
	}
}
