package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-normalize/internal/config"
	"github.com/pgEdge/pgedge-normalize/internal/logging"
	"github.com/pgEdge/pgedge-normalize/internal/model"
	"github.com/pgEdge/pgedge-normalize/internal/normalize"
	"github.com/pgEdge/pgedge-normalize/internal/sink"
	"github.com/pgEdge/pgedge-normalize/internal/source"
)

// maxLoggedIssues caps the per-issue warnings; the rest are only counted.
const maxLoggedIssues = 20

var (
	normalizeInput         string
	normalizeEncoding      string
	normalizeDelimiter     string
	normalizeSkipMalformed bool
	normalizeDropExisting  bool
	normalizeStrict        bool
	normalizeDryRun        bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize a flat export and write the resolved tables",
	Long: `Read a flat transaction export, resolve customers, products, invoices
and invoice lines, and write them to the selected sink.

Rows without a customer identifier are assigned their country's sentinel.
Countries missing from the sentinel table and stock codes without any
description are reported as warnings; --strict turns both into errors.

Example:
  pgedge-normalize normalize --input online_retail.csv --sink postgres \
      --connection "postgres://user@localhost/retail"`,
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeInput, "input", "",
		"flat CSV export to normalize")
	normalizeCmd.Flags().StringVar(&normalizeEncoding, "encoding", "",
		"input character set: utf-8 or latin1")
	normalizeCmd.Flags().StringVar(&normalizeDelimiter, "delimiter", "",
		"input field delimiter (default: ,)")
	normalizeCmd.Flags().BoolVar(&normalizeSkipMalformed, "skip-malformed", false,
		"skip rows that fail to parse instead of aborting")
	normalizeCmd.Flags().BoolVar(&normalizeDropExisting, "drop-existing", false,
		"drop existing output before writing")
	normalizeCmd.Flags().BoolVar(&normalizeStrict, "strict", false,
		"fail on unmapped countries and missing descriptions")
	normalizeCmd.Flags().BoolVar(&normalizeDryRun, "dry-run", false,
		"resolve and report without writing output")
	addOutputFlags(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if normalizeInput != "" {
		cfg.Input.Path = normalizeInput
	}
	if normalizeEncoding != "" {
		cfg.Input.Encoding = normalizeEncoding
	}
	if normalizeDelimiter != "" {
		cfg.Input.Delimiter = normalizeDelimiter
	}
	if normalizeSkipMalformed {
		cfg.Input.SkipMalformed = true
	}
	if normalizeDropExisting {
		cfg.Output.DropExisting = true
	}
	if normalizeStrict {
		cfg.Policy.UnmappedCountry = string(normalize.ViolationFail)
		cfg.Policy.MissingDescription = string(normalize.ViolationFail)
	}
	applyOutputFlags()

	// Validate configuration
	if normalizeDryRun {
		if err := cfg.ValidateInput(); err != nil {
			return err
		}
	} else if err := cfg.ValidateNormalize(); err != nil {
		return err
	}

	policy, err := cfg.BuildPolicy()
	if err != nil {
		return err
	}
	opts, err := sourceOptions(cfg.Input)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	started := time.Now()
	logging.Info().
		Str("input", cfg.Input.Path).
		Str("sink", cfg.Output.Sink).
		Msg("Normalizing export")

	read, err := source.NewReader(opts).ReadFile(ctx, cfg.Input.Path)
	if err != nil {
		return err
	}
	reportIssues(read.Issues)

	pipeline, err := normalize.New(policy)
	if err != nil {
		return err
	}
	res, err := pipeline.Run(ctx, read.Transactions)
	if err != nil {
		return fmt.Errorf("normalization failed: %w", err)
	}
	reportIssues(res.Issues)

	logging.Info().
		Int("transactions", res.Stats.Transactions).
		Int("repaired", res.Stats.Repaired).
		Int("customers", res.Stats.Customers).
		Int("products", res.Stats.Products).
		Int("invoices", res.Stats.Invoices).
		Int("invoice_lines", res.Stats.InvoiceLines).
		Int("issues", len(res.Issues)).
		Msg("Export resolved")

	if normalizeDryRun {
		logging.Info().Msg("Dry run, nothing written")
		return nil
	}

	run := sink.NewRunInfo(cfg.Input.Path, started)
	run.Finish(res, time.Now())

	out, err := openSink(ctx)
	if err != nil {
		return err
	}
	defer out.Close()

	if cfg.Output.DropExisting {
		logging.Info().Str("sink", out.Name()).Msg("Dropping existing output")
		if err := out.DropSchema(ctx); err != nil {
			return err
		}
	}
	if err := out.CreateSchema(ctx); err != nil {
		return err
	}

	if err := out.Write(ctx, res.Dataset, run); err != nil {
		if errors.Is(err, sink.ErrOutputExists) {
			return fmt.Errorf("%w; use --drop-existing to replace it", err)
		}
		return fmt.Errorf("failed to write output: %w", err)
	}

	logging.Info().
		Str("run_id", run.ID.String()).
		Dur("elapsed", time.Since(started)).
		Msg("Normalization complete")

	return nil
}

// sourceOptions converts the input section into reader options.
func sourceOptions(in config.InputConfig) (source.Options, error) {
	loc, err := time.LoadLocation(in.Timezone)
	if err != nil {
		return source.Options{}, fmt.Errorf("invalid input timezone %q: %w", in.Timezone, err)
	}

	var comma rune
	for _, r := range in.Delimiter {
		comma = r
		break
	}

	return source.Options{
		Encoding:        in.Encoding,
		Comma:           comma,
		TimestampLayout: in.TimestampLayout,
		Location:        loc,
		SkipMalformed:   in.SkipMalformed,
	}, nil
}

// reportIssues logs the first issues individually and a count per kind.
func reportIssues(issues []model.Issue) {
	if len(issues) == 0 {
		return
	}

	counts := make(map[model.IssueKind]int)
	for i, issue := range issues {
		counts[issue.Kind]++
		if i < maxLoggedIssues {
			logging.Warn().
				Str("kind", string(issue.Kind)).
				Int("row", issue.Row).
				Str("key", issue.Key).
				Msg(issue.Message)
		}
	}

	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	for _, k := range kinds {
		logging.Warn().
			Str("kind", k).
			Int("count", counts[model.IssueKind(k)]).
			Msg("Issues reported")
	}
}
