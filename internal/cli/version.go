package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/binance-beast/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.Product, version.String())
			return err
		},
	}
}
