package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/latoulicious/wavbot/pkg/delivery"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// consoleNotifier prints job progress to a terminal
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Update(_ context.Context, status string) error {
	_, err := fmt.Fprintln(n.out, status)
	return err
}

func (n consoleNotifier) Finish(_ context.Context, summary string) error {
	_, err := fmt.Fprintln(n.out, summary)
	return err
}

func (n consoleNotifier) Dismiss(context.Context) error {
	return nil
}

// fileAttacher saves attachments into a directory instead of posting them
type fileAttacher struct {
	dir string
	out io.Writer
}

func (a fileAttacher) Attach(_ context.Context, attachment pipeline.Attachment) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(a.dir, attachment.Filename)
	if err := os.WriteFile(path, attachment.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(a.out, attachment.Caption)
	fmt.Fprintf(a.out, "💾 Saved to %s (%s)\n", path, humanize.IBytes(uint64(len(attachment.Data))))
	return nil
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "convert <url>",
		Short: "Convert one video from the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(false); err != nil {
				return err
			}
			logger := ctx.ensureLogger()

			st, err := newStack(cfg, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			notifier := consoleNotifier{out: out}
			fmt.Fprintln(out, st.orchestrator.Labels().QueuedMessage())

			job := st.orchestrator.Run(runCtx, pipeline.Request{
				SourceURL: args[0],
				Notifier:  notifier,
				Agents: pipeline.Agents{
					Direct: delivery.NewDirectAttach(fileAttacher{dir: outDir, out: out}, logger),
					Remote: st.remote,
				},
			})
			if job == nil {
				return fmt.Errorf("conversion failed: %s", pipeline.KindUnexpected)
			}
			if job.Stage == pipeline.StageFailed {
				return fmt.Errorf("conversion failed: %s", pipeline.KindOf(job.Err))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for converted files small enough to attach")
	return cmd
}
