package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/costscan/internal/config"
	"github.com/ppiankov/costscan/internal/scan"
)

func newEstimateCmd() *cobra.Command {
	var (
		format   string
		skipDirs []string
		maxFiles int
	)

	cmd := &cobra.Command{
		Use:   "estimate [path]",
		Short: "Estimate scan scope without reading file contents",
		Long:  "Walk the project tree and report how many files a scan would cover and their total size, without analyzing anything.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cmd.Flags().Changed("skip-dir") && len(cfg.SkipDirs) > 0 {
				skipDirs = cfg.SkipDirs
			}
			if !cmd.Flags().Changed("max-files") && cfg.MaxFiles > 0 {
				maxFiles = cfg.MaxFiles
			}

			result, err := scan.Scan(cmd.Context(), root, scan.Options{
				SkipDirs: skipDirs,
				MaxFiles: maxFiles,
				Estimate: true,
			})
			if err != nil {
				return err
			}

			if format == "json" {
				return scan.NewJSONFormatter().Format(os.Stdout, result)
			}
			return scan.NewTextFormatter(isTerminal() && !cfg.NoColor).Format(os.Stdout, result)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json")
	cmd.Flags().StringSliceVar(&skipDirs, "skip-dir", nil, "extra directory names to skip")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "stop discovery after this many files (0 = unlimited)")

	return cmd
}
