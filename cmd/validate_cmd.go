package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dilla-go/dilla/internal/config"
	"github.com/dilla-go/dilla/internal/generate"
	"github.com/dilla-go/dilla/internal/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate [catalog.yaml]",
	Short: "Check a catalog and its policies",
	Long: `Load a catalog, resolve references and compile policy expressions.
Unknown kinds, unknown named generators and invalid expressions are
errors; inverted ranges and references to missing fields are warnings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			path = cfg.Catalog
		}

		catalog, warnings, err := schema.LoadCatalog(path)
		if err == nil {
			err = generate.ValidateExpressions(catalog)
		}

		for _, w := range warnings {
			fmt.Printf("  [WARN] %s\n", w)
		}

		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			fmt.Println("Validation errors:")
			for _, p := range verr.Problems {
				fmt.Printf("  - %s\n", p)
			}
			return fmt.Errorf("%d validation error(s)", len(verr.Problems))
		}
		if err != nil {
			return err
		}

		fmt.Println(catalog.Summary())
		fmt.Println("Catalog is valid.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
