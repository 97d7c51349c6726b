package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dilla-go/dilla/internal/config"
	"github.com/dilla-go/dilla/internal/discovery"
	"github.com/dilla-go/dilla/internal/typemap"
)

var (
	discoverDDL       string
	discoverOutput    string
	discoverNamespace string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Build a catalog from an existing database schema",
	Long: `Connect to the configured PostgreSQL store, or parse a DDL file with --ddl,
and write a catalog with one model per table. Join tables become
many-to-many relations and the namespace order follows foreign keys.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			if discoverDDL == "" {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg = config.Default()
		}

		var tables []discovery.Table
		if discoverDDL != "" {
			fmt.Printf("Parsing %s...\n", discoverDDL)
			tables, err = discovery.ParseDDLFile(discoverDDL)
			if err != nil {
				return fmt.Errorf("parsing DDL: %w", err)
			}
		} else {
			tables, err = discoverLive(cfg)
			if err != nil {
				return err
			}
		}

		tm := typemap.ForDatabase(cfg.Store.Type)
		if err := tm.ApplyOverrides(cfg.TypeOverrides); err != nil {
			return err
		}

		ns := discoverNamespace
		if ns == "" {
			ns = cfg.Store.Schema
		}
		if ns == "" {
			ns = "public"
		}
		catalog, warnings, err := discovery.BuildCatalog(ns, tables, tm)
		if err != nil {
			return fmt.Errorf("building catalog: %w", err)
		}
		for _, w := range warnings {
			fmt.Printf("Warning: %s\n", w)
		}

		fmt.Println(catalog.Summary())

		outputPath := discoverOutput
		if outputPath == "" {
			outputPath = cfg.Catalog
		}
		if err := catalog.WriteYAML(outputPath); err != nil {
			return fmt.Errorf("writing catalog: %w", err)
		}
		fmt.Printf("\nCatalog written to %s\n", outputPath)
		return nil
	},
}

func discoverLive(cfg *config.Config) ([]discovery.Table, error) {
	d, err := discovery.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("initializing discoverer: %w", err)
	}
	defer d.Close()

	ctx := context.Background()

	fmt.Printf("Connecting to %s...\n", storeLabel(cfg.Store))
	if err := d.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to store: %w", err)
	}

	fmt.Println("Discovering schema...")
	tables, err := d.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering schema: %w", err)
	}
	return tables, nil
}

func init() {
	discoverCmd.Flags().StringVar(&discoverDDL, "ddl", "", "parse a PostgreSQL DDL file instead of connecting")
	discoverCmd.Flags().StringVarP(&discoverOutput, "output", "o", "", "output path for the catalog (default: catalog from config)")
	discoverCmd.Flags().StringVar(&discoverNamespace, "namespace", "", "namespace name for discovered models (default: store schema)")
	rootCmd.AddCommand(discoverCmd)
}
