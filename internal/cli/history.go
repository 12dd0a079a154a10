package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/costscan/internal/config"
	"github.com/ppiankov/costscan/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent scan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := history.Open(historyPath(cfg))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.Recent(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no recorded scans")
				return nil
			}

			fmt.Printf("%-5s %-20s %-40s %7s %9s %5s %7s %5s\n",
				"ID", "STARTED", "ROOT", "FILES", "FINDINGS", "HIGH", "MEDIUM", "INFO")
			for _, r := range runs {
				fmt.Printf("%-5d %-20s %-40s %7d %9d %5d %7d %5d\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), truncatePath(r.Root, 40),
					r.FilesScanned, r.TotalFindings, r.High, r.Medium, r.Info)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to list")

	return cmd
}

func truncatePath(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
