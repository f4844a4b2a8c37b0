package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollis-dev/loupe/internal/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <settings.cue>",
		Short: "Check a settings file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := settings.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: maxValueLength=%d childrenBatchSize=%d\n",
				settings.MaxValueLength, settings.ChildrenBatchSize)
			return nil
		},
	}
}
