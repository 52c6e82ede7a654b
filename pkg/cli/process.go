package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/service/metrics"
	"github.com/urfave/cli/v3"
)

func cmdProcess() *cli.Command {
	var cfg pipelineConfig

	return &cli.Command{
		Name:    "process",
		Aliases: []string{"p"},
		Usage:   "Run one pipeline tick and print a summary",
		Flags:   cfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := cfg.build(ctx, metrics.Nop{})
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := rt.uc.Pipeline.RunTick(ctx)
			if err != nil {
				return goerr.Wrap(err, "pipeline tick failed")
			}

			printTickSummary(os.Stdout, result)
			return nil
		},
	}
}

func printTickSummary(w io.Writer, r *model.TickResult) {
	label := color.New(color.FgHiWhite, color.Bold)
	ok := color.New(color.FgGreen)
	ng := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)

	_, _ = label.Fprintf(w, "Pipeline tick")
	_, _ = dim.Fprintf(w, " (%s)\n", r.CorrelationID)

	if r.Fetched == 0 {
		_, _ = dim.Fprintln(w, "  no unprocessed documents")
		return
	}

	fmt.Fprintf(w, "  fetched:   %d\n", r.Fetched)
	_, _ = ok.Fprintf(w, "  processed: %d\n", r.Processed)
	if r.Failed > 0 {
		_, _ = ng.Fprintf(w, "  failed:    %d\n", r.Failed)
	} else {
		fmt.Fprintf(w, "  failed:    %d\n", r.Failed)
	}
	fmt.Fprintf(w, "  augmented: %d\n", r.Augmented)
	fmt.Fprintf(w, "  notified:  %d\n", r.Notified)
}
