package cli

import (
	"github.com/spf13/cobra"

	"landit.dev/landit/internal/land"
	"landit.dev/landit/internal/runtime"
)

// newLandCmd creates the land command.
func newLandCmd(quiet *bool) *cobra.Command {
	var (
		onto         string
		remote       string
		revision     string
		merge        bool
		squash       bool
		keepBranch   bool
		deleteRemote bool
		hold         bool
		preview      bool
	)

	cmd := &cobra.Command{
		Use:   "land [ref]",
		Short: "Land a reviewed change onto its target branch",
		Long: `Land the named ref, or the current checkout when no ref is given.
The target branch and remote are resolved from flags, tracking
relationships and repository configuration, in that order. The change is
squashed by default; backends with immutable history merge instead unless
--squash is passed explicitly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rctx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer rctx.Close()
			rctx.Splog.SetQuiet(*quiet)

			return land.Action(rctx, land.Options{
				Args:         args,
				Onto:         onto,
				Remote:       remote,
				Revision:     revision,
				Merge:        merge,
				Squash:       squash,
				KeepBranch:   keepBranch,
				DeleteRemote: deleteRemote,
				Hold:         hold,
				Preview:      preview,
			})
		},
	}

	cmd.Flags().StringVar(&onto, "onto", "", "land onto this target ref instead of the resolved one")
	cmd.Flags().StringVar(&remote, "remote", "", "push to this remote instead of the resolved one")
	cmd.Flags().StringVar(&revision, "revision", "", "land this revision id instead of the one associated with the ref")
	cmd.Flags().BoolVar(&merge, "merge", false, "land with a merge changeset instead of squashing")
	cmd.Flags().BoolVar(&squash, "squash", false, "squash even when the backend prefers merging")
	cmd.Flags().BoolVar(&keepBranch, "keep-branch", false, "do not delete the landed ref")
	cmd.Flags().BoolVar(&deleteRemote, "delete-remote", false, "also delete the landed ref on the remote")
	cmd.Flags().BoolVar(&hold, "hold", false, "stop after the local commit without pushing")
	cmd.Flags().BoolVar(&preview, "preview", false, "show what would land and stop before changing anything")

	return cmd
}
