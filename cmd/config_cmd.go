package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dilla-go/dilla/internal/config"
	"github.com/dilla-go/dilla/internal/typemap"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and validate dilla configuration and type mappings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Store:\n")
		fmt.Printf("    Type:           %s\n", cfg.Store.Type)
		fmt.Printf("    URL:            %s\n", maskSecret(cfg.Store.URL))
		if cfg.Store.Database != "" {
			fmt.Printf("    Database:       %s\n", cfg.Store.Database)
		}
		if cfg.Store.Schema != "" {
			fmt.Printf("    Schema:         %s\n", cfg.Store.Schema)
		}
		fmt.Println()
		fmt.Printf("  Catalog:          %s\n", cfg.Catalog)
		fmt.Printf("  Iterations:       %d\n", cfg.Iterations)
		fmt.Printf("  Debug:            %t\n", cfg.Debug)
		fmt.Printf("  Use existing:     %t\n", cfg.UseExisting)
		if cfg.Seed != 0 {
			fmt.Printf("  Seed:             %d\n", cfg.Seed)
		}
		fmt.Printf("  Secret key:       %s\n", maskSecret(cfg.SecretKey))
		fmt.Println()
		fmt.Printf("  Images:\n")
		fmt.Printf("    Enabled:        %t\n", cfg.Images.Enabled)
		fmt.Printf("    Staging dir:    %s\n", cfg.Images.StagingDir)
		if cfg.Images.S3.Bucket != "" {
			fmt.Printf("    S3:             s3://%s/%s\n", cfg.Images.S3.Bucket, cfg.Images.S3.Prefix)
		}
		fmt.Println()
		fmt.Printf("  Logs:             %s (%s)\n", cfg.Logging.Directory, cfg.Logging.Level)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}

		var errors []string

		if cfg.Store.URL == "" && cfg.Store.Type != "memory" {
			errors = append(errors, "store.url is required")
		}
		if cfg.Store.Type == "mongodb" && cfg.Store.Database == "" {
			errors = append(errors, "store.database is required for mongodb")
		}
		if cfg.Catalog == "" {
			errors = append(errors, "catalog is required")
		}
		if cfg.Images.S3.Bucket != "" && !cfg.Images.Enabled {
			errors = append(errors, "images.s3.bucket is set but images.enabled is false")
		}
		if err := typemap.ForDatabase(cfg.Store.Type).ApplyOverrides(cfg.TypeOverrides); err != nil {
			errors = append(errors, err.Error())
		}

		if len(errors) > 0 {
			fmt.Println("Validation errors:")
			for _, e := range errors {
				fmt.Printf("  - %s\n", e)
			}
			return fmt.Errorf("%d validation error(s)", len(errors))
		}

		fmt.Println("Configuration is valid.")
		return nil
	},
}

var configTypeMappingCmd = &cobra.Command{
	Use:   "type-mapping",
	Short: "Show the SQL type to field kind mapping used by discover",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbType := "postgresql"
		var overrides map[string]string
		if cfg, err := config.Load(cfgFile); err == nil {
			dbType = cfg.Store.Type
			overrides = cfg.TypeOverrides
		}

		tm := typemap.ForDatabase(dbType)
		if err := tm.ApplyOverrides(overrides); err != nil {
			return err
		}

		types := make([]string, 0, len(tm.Mappings))
		for t := range tm.Mappings {
			types = append(types, t)
		}
		sort.Strings(types)

		fmt.Printf("Type mapping for %s:\n\n", dbType)
		for _, t := range types {
			marker := ""
			if tm.IsOverridden(t) {
				marker = "  (override)"
			}
			fmt.Printf("  %-28s %s%s\n", t, tm.Mappings[t], marker)
		}
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configTypeMappingCmd)
	rootCmd.AddCommand(configCmd)
}
