package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/costscan/internal/config"
	"github.com/ppiankov/costscan/internal/history"
	"github.com/ppiankov/costscan/internal/scan"
)

func newLastCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "last",
		Short: "Show the most recent scan result",
		Long:  "Print the full result of the most recent scan without rescanning anything.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			result, err := lastResult(cfg)
			if errors.Is(err, history.ErrEmpty) {
				return fmt.Errorf("no recorded scans yet; run 'costscan scan' first")
			}
			if err != nil {
				return err
			}

			return writeResult(os.Stdout, format, result, isTerminal() && !cfg.NoColor)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, sarif")

	return cmd
}

// lastResult returns the in-process cached result when one exists,
// otherwise the most recent recorded run.
func lastResult(cfg *config.Settings) (*scan.Result, error) {
	if res, ok := scan.LastResult(); ok {
		return res, nil
	}
	store, err := history.Open(historyPath(cfg))
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()
	return store.Last()
}
