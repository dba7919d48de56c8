// Package cli assembles the net-sentinel command tree with
// github.com/spf13/cobra, in the shape the dotwoo-open-next-router
// admin CLI uses: one constructor per subcommand, each returning a
// *cobra.Command with its own flag set and a RunE closure.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// NewRootCmd builds the net-sentinel command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "netsentinel",
		Short: "Script-driven network probe runner",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newGenCmd())
	root.AddCommand(newTUICmd())
	root.AddCommand(newVersionCmd())

	return root
}
