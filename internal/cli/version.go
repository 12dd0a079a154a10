package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ppiankov/costscan/internal/catalog"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("costscan %s (commit: %s, built: %s, patterns: %s, go: %s)\n",
				Version, Commit, BuildDate, catalog.Version, runtime.Version())
		},
	}
}
