package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/costscan/internal/config"
	"github.com/ppiankov/costscan/internal/history"
	"github.com/ppiankov/costscan/internal/reporter"
	"github.com/ppiankov/costscan/internal/scan"
)

func newScanCmd() *cobra.Command {
	var (
		format    string
		severity  string
		skipDirs  []string
		maxFiles  int
		workers   int
		output    string
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a project tree for GenAI cost patterns",
		Long:  "Walk the project tree, analyze every supported source file, and report findings about model usage, prompt construction, lifecycle settings, and payload formats.",
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
			applyDefaults(cmd, cfg, &format, &skipDirs, &maxFiles, &workers)

			var minSev scan.Severity
			if severity != "" {
				minSev = scan.ParseSeverity(severity)
				if minSev == 0 {
					return fmt.Errorf("invalid severity %q (use high, medium, or info)", severity)
				}
			}

			started := time.Now()
			result, err := scan.Scan(cmd.Context(), root, scan.Options{
				SkipDirs: skipDirs,
				MaxFiles: maxFiles,
				Workers:  workers,
			})
			if err != nil {
				return err
			}

			if !noHistory {
				recordHistory(cfg, started, result)
			}

			if minSev != 0 {
				result = filterResult(result, minSev)
			}

			w := os.Stdout
			color := isTerminal() && !cfg.NoColor
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
				color = false
			}

			return writeResult(w, format, result, color)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, sarif")
	cmd.Flags().StringVar(&severity, "severity", "", "minimum severity: high, medium, info")
	cmd.Flags().StringSliceVar(&skipDirs, "skip-dir", nil, "extra directory names to skip")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "stop discovery after this many files (0 = unlimited)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent file analyzers (0 = default)")
	cmd.Flags().StringVar(&output, "output", "", "write output to file instead of stdout")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "skip recording this run in the history database")

	return cmd
}

// applyDefaults fills flag values from config where the flag was not set
// on the command line.
func applyDefaults(cmd *cobra.Command, cfg *config.Settings, format *string, skipDirs *[]string, maxFiles, workers *int) {
	if !cmd.Flags().Changed("format") && cfg.Format != "" {
		*format = cfg.Format
	}
	if !cmd.Flags().Changed("skip-dir") && len(cfg.SkipDirs) > 0 {
		*skipDirs = cfg.SkipDirs
	}
	if !cmd.Flags().Changed("max-files") && cfg.MaxFiles > 0 {
		*maxFiles = cfg.MaxFiles
	}
	if !cmd.Flags().Changed("workers") && cfg.Workers > 0 {
		*workers = cfg.Workers
	}
}

func historyPath(cfg *config.Settings) string {
	if cfg.HistoryDB != "" {
		return cfg.HistoryDB
	}
	return config.DefaultHistoryDB()
}

// recordHistory is best-effort: a broken history database never fails the
// scan itself.
func recordHistory(cfg *config.Settings, started time.Time, result *scan.Result) {
	store, err := history.Open(historyPath(cfg))
	if err != nil {
		slog.Warn("history unavailable", "error", err)
		return
	}
	defer func() { _ = store.Close() }()
	if _, err := store.Record(started, result); err != nil {
		slog.Warn("record history", "error", err)
	}
}

func filterResult(result *scan.Result, minSev scan.Severity) *scan.Result {
	var kept []scan.Finding
	for _, f := range result.Findings {
		if f.Severity <= minSev {
			kept = append(kept, f)
		}
	}
	filtered := *result
	filtered.Findings = kept
	filtered.TotalFindings = len(kept)
	byKind := make(map[string]int, len(kept))
	for _, f := range kept {
		byKind[f.Kind]++
	}
	filtered.FindingsByKind = byKind
	return &filtered
}

func writeResult(w io.Writer, format string, result *scan.Result, color bool) error {
	switch format {
	case "json":
		return scan.NewJSONFormatter().Format(w, result)
	case "sarif":
		return reporter.WriteSARIF(w, result)
	default:
		return scan.NewTextFormatter(color).Format(w, result)
	}
}
