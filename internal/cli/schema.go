package cli

import (
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-normalize/internal/logging"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or drop the output schema",
	Long: `Manage the output tables without running a normalization. For the
database sinks this is the customers, products, invoices and invoice_lines
tables, the invoice_details view and the normalize_metadata table; for the
csv sink it is the output directory and the files the sink owns.`,
}

var schemaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the output schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchema(cmd, true)
	},
}

var schemaDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the output schema and everything written to it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchema(cmd, false)
	},
}

func init() {
	addOutputFlags(schemaCreateCmd)
	addOutputFlags(schemaDropCmd)
	schemaCmd.AddCommand(schemaCreateCmd)
	schemaCmd.AddCommand(schemaDropCmd)
}

func runSchema(cmd *cobra.Command, create bool) error {
	applyOutputFlags()

	if err := cfg.ValidateOutput(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	out, err := openSink(ctx)
	if err != nil {
		return err
	}
	defer out.Close()

	if create {
		err = out.CreateSchema(ctx)
	} else {
		err = out.DropSchema(ctx)
	}
	if err != nil {
		return err
	}

	logging.Info().
		Str("sink", out.Name()).
		Bool("create", create).
		Msg("Schema command complete")
	return nil
}
