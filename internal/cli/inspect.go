package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hollis-dev/loupe/internal/bridge"
	"github.com/hollis-dev/loupe/internal/config"
	"github.com/hollis-dev/loupe/internal/render"
	"github.com/hollis-dev/loupe/internal/schedule"
	"github.com/hollis-dev/loupe/internal/trace"
	"github.com/hollis-dev/loupe/internal/ui"
	"github.com/hollis-dev/loupe/internal/valuetree"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Settings string
	Trace    string
	Depth    int
	Timeout  time.Duration
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <snapshot.yaml>",
		Short: "Present a paused-process snapshot as a value tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Settings, "settings", "", "CUE settings file")
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "record command trace to this SQLite database")
	cmd.Flags().IntVar(&opts.Depth, "depth", 2, "expansion depth")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "per-value wait timeout")

	return cmd
}

func runInspect(opts *InspectOptions, snapshotPath string, out io.Writer) error {
	settings := config.Default()
	if opts.Settings != "" {
		var err error
		settings, err = config.Load(opts.Settings)
		if err != nil {
			return err
		}
	}

	snap, err := bridge.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}

	managerOpts := []schedule.Option{}
	tracePath := opts.Trace
	if tracePath == "" {
		tracePath = settings.TracePath
	}
	if tracePath != "" {
		store, err := trace.Open(tracePath)
		if err != nil {
			return err
		}
		defer store.Close()
		managerOpts = append(managerOpts, schedule.WithRecorder(store))
	}

	mgr := schedule.NewManager(managerOpts...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	managerDone := make(chan error, 1)
	go func() {
		managerDone <- mgr.Run(ctx)
	}()

	ec := mgr.NewSuspendContext()
	reg := render.NewRegistry(render.WithChildrenBatch(settings.ChildrenBatchSize))
	tree := valuetree.NewTree(mgr, snap, reg,
		valuetree.WithMaxValueLength(settings.MaxValueLength),
	)

	roots := snap.Roots()
	reports := make([]*ValueReport, len(roots))

	// Each root is collected concurrently; the manager serializes the
	// actual debuggee work underneath.
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range roots {
		g.Go(func() error {
			report, err := collectValue(gctx, tree.NewRootNode(d, ec), opts.Depth, opts.Timeout)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", d.Name, err)
			}
			reports[i] = report
			return nil
		})
	}
	collectErr := g.Wait()

	mgr.Stop()
	<-managerDone

	if collectErr != nil {
		return collectErr
	}

	return writeReports(out, opts.Format, reports)
}

// collectValue runs the real presentation and children computations for
// one node, draining the recording sink into a report.
func collectValue(ctx context.Context, node *valuetree.Node, depth int, timeout time.Duration) (*ValueReport, error) {
	sink := ui.NewRecordingSink()
	node.ComputePresentation(sink)

	events, err := awaitEvents(ctx, sink, timeout, presentationDone)
	if err != nil {
		return nil, err
	}

	report := &ValueReport{Name: node.Name()}
	expandable := false
	for _, ev := range events {
		switch ev.Kind {
		case ui.EventPresentationReady:
			report.Text = ev.Presentation.Text
			report.Type = ev.Presentation.TypeHint
			report.Icon = string(ev.Presentation.Icon)
			if ev.Presentation.Kind == ui.KindError {
				report.Error = ev.Presentation.Text
			}
			expandable = ev.Expandable
		case ui.EventFullValueEval:
			report.HasFullValue = true
		case ui.EventError:
			report.Error = ev.Text
		}
	}

	if !expandable || depth <= 0 {
		return report, nil
	}

	csink := ui.NewRecordingSink()
	node.ComputeChildren(csink)

	events, err = awaitEvents(ctx, csink, timeout, childrenDone)
	if err != nil {
		return nil, err
	}

	for _, ev := range events {
		switch ev.Kind {
		case ui.EventChildrenBatch:
			for _, row := range ev.Rows {
				if row.Message != nil {
					report.Children = append(report.Children, &ValueReport{
						Name: row.Name,
						Text: row.Message.Text,
						Icon: string(row.Message.Icon),
					})
					continue
				}
				child, ok := row.Value.(*valuetree.Node)
				if !ok {
					continue
				}
				childReport, err := collectValue(ctx, child, depth-1, timeout)
				if err != nil {
					return nil, err
				}
				report.Children = append(report.Children, childReport)
			}
		case ui.EventTooMany:
			report.MoreChildren = ev.Remaining
		case ui.EventMessage:
			report.Children = append(report.Children, &ValueReport{
				Name: "",
				Text: ev.Text,
				Icon: string(ev.Icon),
			})
		case ui.EventError:
			report.Error = ev.Text
		}
	}

	return report, nil
}

func presentationDone(events []ui.Event) bool {
	for _, ev := range events {
		if ev.Kind == ui.EventPresentationReady || ev.Kind == ui.EventError {
			return true
		}
	}
	return false
}

func childrenDone(events []ui.Event) bool {
	batches := 0
	tooMany := false
	for _, ev := range events {
		switch ev.Kind {
		case ui.EventChildrenBatch:
			if ev.Last {
				return true
			}
			batches++
		case ui.EventTooMany:
			tooMany = true
		case ui.EventError:
			return true
		}
	}
	return tooMany && batches > 0
}

// awaitEvents waits until the recorded events satisfy done.
func awaitEvents(ctx context.Context, sink *ui.RecordingSink, timeout time.Duration, done func([]ui.Event) bool) ([]ui.Event, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		events := sink.Events()
		if done(events) {
			return events, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("timed out after %v waiting for results", timeout)
		case <-sink.Wait():
		}
	}
}
