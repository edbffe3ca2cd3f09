// Package cli wires the cobra command tree. Commands only parse flags and
// build the runtime context; the work happens in the land package.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd(version, commit, date string) *cobra.Command {
	var quiet bool

	rootCmd := &cobra.Command{
		Use:     "landit",
		Short:   "Landit lands reviewed changes onto their target branch safely",
		Long: `Landit lands a reviewed change: it figures out where the change should go,
syncs the target with its remote, squashes or merges the change onto it,
gates on review and build status, pushes, and cleans up the landed ref.
Every mutating step is compensated on failure.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational output")

	rootCmd.AddCommand(newLandCmd(&quiet))

	return rootCmd
}
