package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hollis-dev/loupe/internal/schedule"
	"github.com/hollis-dev/loupe/internal/trace"
)

// NewTraceCommand creates the trace command group.
func NewTraceCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded command traces",
	}

	cmd.AddCommand(newTraceSessionsCommand(opts))
	cmd.AddCommand(newTraceShowCommand(opts))

	return cmd
}

func newTraceSessionsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions <trace.db>",
		Short: "List recorded sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := trace.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}
			for _, s := range sessions {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func newTraceShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trace.db> <session>",
		Short: "Dump the command log for one session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := trace.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			events, err := store.ReadSession(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return writeTraceEvents(cmd.OutOrStdout(), opts.Format, events)
		},
	}
}

func writeTraceEvents(out io.Writer, format string, events []schedule.CommandEvent) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}
	for _, ev := range events {
		line := fmt.Sprintf("%6d  %-10s  p%d  %s", ev.Seq, ev.Outcome, ev.Priority, ev.Kind)
		if ev.Error != "" {
			line += "  " + ev.Error
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
