package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/dilla-go/dilla/internal/config"
	"github.com/dilla-go/dilla/internal/lock"
	"github.com/dilla-go/dilla/internal/report"
)

// lastRunPath holds the report of the most recent populate run.
const lastRunPath = "~/.dilla/last-run.json"

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a run is active and how the last run went",
	RunE: func(cmd *cobra.Command, args []string) error {
		lockPath := lock.DefaultPath
		if cfg, err := config.Load(cfgFile); err == nil {
			lockPath = cfg.LockPath
		}

		held, pid, err := lock.IsHeld(lockPath)
		if err != nil {
			return fmt.Errorf("checking lock: %w", err)
		}
		if held {
			fmt.Printf("A populate run is active (PID %d).\n", pid)
		} else {
			fmt.Println("No populate run is active.")
		}
		fmt.Println()

		rep, err := report.ReadJSON(config.ExpandHome(lastRunPath))
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Println("No previous run recorded.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading last run: %w", err)
		}
		fmt.Print(report.FormatText(rep))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
