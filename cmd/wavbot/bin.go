package main

import (
	"fmt"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/latoulicious/wavbot/pkg/filebin"
)

func newBinCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "bin <id>",
		Short: "Show the files in a Filebin bin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := filebin.NewClient(filebin.WithBaseURL(cfg.Filebin.BaseURL))
			info, err := client.BinInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if info == nil {
				fmt.Fprintf(out, "Bin %s not found or expired\n", args[0])
				return nil
			}

			fmt.Fprintf(out, "Bin %s: %d file(s), %s", info.Bin.ID, info.Bin.Files, humanize.IBytes(uint64(info.Bin.Bytes)))
			if !info.Bin.ExpiredAt.IsZero() {
				fmt.Fprintf(out, ", expires %s", humanize.Time(info.Bin.ExpiredAt))
			}
			fmt.Fprintln(out)

			if len(info.Files) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(info.Files))
			for _, f := range info.Files {
				rows = append(rows, []string{
					f.Filename,
					humanize.IBytes(uint64(f.Bytes)),
					f.ContentType,
					fmt.Sprintf("%s/%s/%s", client.BaseURL(), info.Bin.ID, url.PathEscape(f.Filename)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Size", "Type", "URL"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
