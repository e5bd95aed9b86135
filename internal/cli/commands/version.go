package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display tablex version and the supported databases.`,
		Run: func(cmd *cobra.Command, _ []string) {
			names := make([]string, 0, len(core.Dialects()))
			for _, d := range core.Dialects() {
				names = append(names, displayDialect(d))
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tablex v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Table browser for %s\n", strings.Join(names, ", "))
		},
	}
}
