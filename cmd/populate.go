package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dilla-go/dilla/internal/config"
	"github.com/dilla-go/dilla/internal/confirm"
	"github.com/dilla-go/dilla/internal/engine"
	"github.com/dilla-go/dilla/internal/generate"
	"github.com/dilla-go/dilla/internal/images"
	"github.com/dilla-go/dilla/internal/lock"
	"github.com/dilla-go/dilla/internal/report"
	"github.com/dilla-go/dilla/internal/schema"
	"github.com/dilla-go/dilla/internal/store"
)

var (
	populateIterations int
	populateNoDoubt    bool
	populateNamespaces []string
	populateModels     []string
	populateSeed       uint64
	populateAutoOrder  bool
	populateDryRun     bool
	populateReport     string
	populateYes        bool
	populateCatalog    string
)

var populateCmd = &cobra.Command{
	Use:   "populate [namespace | namespace.Model]...",
	Short: "Fill the store with generated rows",
	Long: `Generate instances for the selected models, persist them and link their
many-to-many relations. With no selectors every namespace is populated.

A run asks for confirmation before writing unless debug mode is on or
--yes is given. A successful run prints nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger, logFile, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		defer logFile.Close()

		catalogPath := cfg.Catalog
		if populateCatalog != "" {
			catalogPath = populateCatalog
		}
		catalog, warnings, err := schema.LoadCatalog(catalogPath)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		for _, w := range warnings {
			logger.Warn(w)
		}
		if err := generate.ValidateExpressions(catalog); err != nil {
			return fmt.Errorf("validating catalog: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var st store.Store
		target := storeLabel(cfg.Store)
		if populateDryRun {
			st = store.NewMemory()
			target = "memory (dry run)"
		} else {
			st, err = store.Open(ctx, cfg.Store)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
		}
		defer st.Close(context.Background())

		e := engine.New(cfg, catalog, st, logger)
		e.Target = target

		// The lock and the S3 credential check wait for confirmation so a
		// declined run leaves nothing behind.
		locked := false
		defer func() {
			if locked {
				lock.Release(cfg.LockPath)
			}
		}()
		e.Prepare = func(ctx context.Context) error {
			if err := lock.Acquire(cfg.LockPath); err != nil {
				return err
			}
			locked = true
			if cfg.Images.Enabled {
				uploader, err := images.FromConfig(ctx, cfg.Images.S3)
				if err != nil {
					return fmt.Errorf("configuring image upload: %w", err)
				}
				e.Uploader = uploader
			}
			return nil
		}
		if populateYes {
			e.Confirmer = engine.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
		} else {
			e.Confirmer = &confirm.Prompt{}
		}

		req := engine.Request{
			Selectors:  args,
			Namespaces: populateNamespaces,
			Models:     populateModels,
			NoDoubt:    populateNoDoubt,
			AutoOrder:  populateAutoOrder,
			Seed:       populateSeed,
		}
		if cmd.Flags().Changed("iter") {
			req.Iterations = populateIterations
		}

		res, runErr := e.Run(ctx, req)
		if res == nil {
			return runErr
		}

		if res.State == engine.StateAborted {
			fmt.Println("Population cancelled, nothing was written.")
			return nil
		}

		rep := report.Generate(res, catalogPath)
		if err := report.WriteJSON(rep, config.ExpandHome(lastRunPath)); err != nil {
			logger.Warn("recording last run", "error", err)
		}
		if populateReport != "" {
			if err := report.Write(rep, populateReport); err != nil {
				logger.Error("writing report", "path", populateReport, "error", err)
			}
		}
		if cfg.Debug {
			fmt.Print(report.FormatText(rep))
		}

		return runErr
	},
}

// storeLabel names the store in prompts without exposing credentials.
func storeLabel(sc config.StoreConfig) string {
	switch {
	case sc.Database != "":
		return fmt.Sprintf("%s database %q", sc.Type, sc.Database)
	case sc.URL != "":
		if u, err := url.Parse(sc.URL); err == nil && u.Host != "" {
			return fmt.Sprintf("%s at %s%s", sc.Type, u.Host, u.Path)
		}
		return sc.Type
	default:
		return sc.Type
	}
}

func init() {
	populateCmd.Flags().IntVarP(&populateIterations, "iter", "i", config.DefaultIterations, "instances to create per model (default: config iterations)")
	populateCmd.Flags().BoolVarP(&populateNoDoubt, "no-doubt", "n", false, "always fill optional fields")
	populateCmd.Flags().StringArrayVarP(&populateNamespaces, "namespace", "a", nil, "namespace to populate (repeatable)")
	populateCmd.Flags().StringArrayVarP(&populateModels, "model", "m", nil, "model to populate as namespace.Model (repeatable)")
	populateCmd.Flags().Uint64Var(&populateSeed, "seed", 0, "random seed (default: config seed or random)")
	populateCmd.Flags().BoolVar(&populateAutoOrder, "auto-order", false, "order models by foreign key dependencies")
	populateCmd.Flags().BoolVar(&populateDryRun, "dry-run", false, "generate into an in-memory store")
	populateCmd.Flags().StringVar(&populateReport, "report", "", "write a run report (.json or .yaml)")
	populateCmd.Flags().BoolVarP(&populateYes, "yes", "y", false, "skip the confirmation prompt")
	populateCmd.Flags().StringVar(&populateCatalog, "catalog", "", "catalog file (default: catalog from config)")
	rootCmd.AddCommand(populateCmd)
}
