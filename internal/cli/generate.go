package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-normalize/internal/datagen"
	"github.com/pgEdge/pgedge-normalize/internal/logging"
)

var (
	generateOutput    string
	generateRows      int
	generateSeed      uint64
	generateCustomers int
	generateProducts  int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic flat export",
	Long: `Generate a flat transaction export with the defects the normalizer
repairs: missing customer identifiers, description variants, empty
descriptions and customers that move country. Rates are set in the
generate section of the config file.

Example:
  pgedge-normalize generate --output export.csv --rows 50000 --seed 42`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateOutput, "output", "",
		"CSV file to write")
	generateCmd.Flags().IntVar(&generateRows, "rows", 0,
		"number of transaction rows (default: 10000)")
	generateCmd.Flags().Uint64Var(&generateSeed, "seed", 0,
		"random seed for reproducible output")
	generateCmd.Flags().IntVar(&generateCustomers, "customers", 0,
		"number of distinct customers (default: 500)")
	generateCmd.Flags().IntVar(&generateProducts, "products", 0,
		"number of distinct stock codes (default: 300)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if generateOutput != "" {
		cfg.Generate.Output = generateOutput
	}
	if generateRows > 0 {
		cfg.Generate.Rows = generateRows
	}
	if generateSeed != 0 {
		cfg.Generate.Seed = generateSeed
	}
	if generateCustomers > 0 {
		cfg.Generate.Customers = generateCustomers
	}
	if generateProducts > 0 {
		cfg.Generate.Products = generateProducts
	}

	// Validate configuration
	if err := cfg.ValidateGenerate(); err != nil {
		return err
	}

	genCfg := datagen.DefaultConfig()
	genCfg.Rows = cfg.Generate.Rows
	genCfg.Customers = cfg.Generate.Customers
	genCfg.Products = cfg.Generate.Products
	genCfg.Seed = cfg.Generate.Seed
	genCfg.MissingCustomerRate = cfg.Generate.MissingCustomerRate
	genCfg.DescriptionVariantRate = cfg.Generate.DescriptionVariantRate
	genCfg.EmptyDescriptionRate = cfg.Generate.EmptyDescriptionRate
	genCfg.CountryChangeRate = cfg.Generate.CountryChangeRate
	genCfg.TimestampLayout = cfg.Input.TimestampLayout

	gen, err := datagen.NewGenerator(genCfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	logging.Info().
		Str("output", cfg.Generate.Output).
		Int("rows", genCfg.Rows).
		Msg("Generating export")

	if _, err := gen.WriteFile(ctx, cfg.Generate.Output); err != nil {
		return fmt.Errorf("failed to generate export: %w", err)
	}
	return nil
}
