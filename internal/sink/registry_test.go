//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package sink_test

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pgEdge/pgedge-normalize/internal/sink"
	// Import sink packages to trigger their init() functions which register the sinks
	_ "github.com/pgEdge/pgedge-normalize/internal/sink/csv"
	_ "github.com/pgEdge/pgedge-normalize/internal/sink/postgres"
	_ "github.com/pgEdge/pgedge-normalize/internal/sink/sqlite"
	"github.com/pgEdge/pgedge-normalize/internal/sink/sinktest"
)

func TestList(t *testing.T) {
	want := []string{"csv", "postgres", "sqlite"}
	if got := sink.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestDescribe(t *testing.T) {
	for _, name := range sink.List() {
		t.Run(name, func(t *testing.T) {
			desc, err := sink.Describe(name)
			if err != nil {
				t.Fatalf("Describe failed: %v", err)
			}
			if desc == "" {
				t.Error("description should not be empty")
			}
		})
	}
	if _, err := sink.Describe("nonexistent"); err == nil {
		t.Error("expected error for unknown sink")
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := sink.Open(context.Background(), "nonexistent", sink.Options{})
	if err == nil {
		t.Error("expected error for unknown sink, got nil")
	}
}

func TestOpenRequiresTarget(t *testing.T) {
	for _, name := range sink.List() {
		t.Run(name, func(t *testing.T) {
			_, err := sink.Open(context.Background(), name, sink.Options{})
			if err == nil {
				t.Errorf("%s should reject empty options", name)
			}
		})
	}
}

func TestOpenFileSinks(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"csv", "out"},
		{"sqlite", "out.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, err := sink.Open(ctx, tt.name, sink.Options{Path: filepath.Join(t.TempDir(), tt.path)})
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer s.Close()

			if s.Name() != tt.name {
				t.Errorf("Name() = %s, want %s", s.Name(), tt.name)
			}
			desc, _ := sink.Describe(tt.name)
			if s.Description() != desc {
				t.Errorf("Description() = %q, registry has %q", s.Description(), desc)
			}
			if err := s.CreateSchema(ctx); err != nil {
				t.Fatalf("CreateSchema failed: %v", err)
			}
			if err := s.Write(ctx, sinktest.Dataset(), sinktest.Run()); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		})
	}
}

func TestRunInfoMetadata(t *testing.T) {
	md := sinktest.Run().Metadata()
	if md["run_id"] != sinktest.RunID.String() {
		t.Errorf("run_id = %s", md["run_id"])
	}
	if md["started_at"] != "2010-12-01T08:26:00Z" {
		t.Errorf("started_at = %s", md["started_at"])
	}
	if md["invoice_lines"] != "4" || md["issues"] != "1" {
		t.Errorf("unexpected counts: %v", md)
	}
	if md["version"] == "" {
		t.Error("version should be recorded")
	}
}
