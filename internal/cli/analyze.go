package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/costscan/internal/scan"
)

func newAnalyzeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a single source file",
		Long:  "Run the full detector set against one file and print its findings without walking a project tree.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := scan.AnalyzeFile(args[0])
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			if result.TotalFindings == 0 {
				fmt.Println("no findings")
				return nil
			}
			for _, f := range result.Findings {
				fmt.Printf("%-6s L%-5d %-35s %s\n", f.Severity, f.Line, f.Kind, f.Description)
				if f.CostConsideration != "" {
					fmt.Printf("       %s\n", f.CostConsideration)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json")

	return cmd
}
