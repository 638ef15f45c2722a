// Package main is the entry point for pgedge-normalize.
package main

import (
	"fmt"
	"os"

	"github.com/pgEdge/pgedge-normalize/internal/cli"

	// Register sinks
	_ "github.com/pgEdge/pgedge-normalize/internal/sink/csv"
	_ "github.com/pgEdge/pgedge-normalize/internal/sink/postgres"
	_ "github.com/pgEdge/pgedge-normalize/internal/sink/sqlite"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
