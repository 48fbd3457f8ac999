package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/latoulicious/wavbot/internal/config"
	"github.com/latoulicious/wavbot/pkg/cron"
	"github.com/latoulicious/wavbot/pkg/fetch"
	"github.com/latoulicious/wavbot/pkg/transcode"
)

type doctorCheck struct {
	name   string
	ok     bool
	detail string
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the external tools and directories a conversion needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			checkCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			checks := runDoctorChecks(checkCtx, cfg)

			failed := 0
			rows := make([][]string, 0, len(checks))
			for _, c := range checks {
				status := "✅"
				if !c.ok {
					status = "❌"
					failed++
				}
				rows = append(rows, []string{status, c.name, c.detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"", "Check", "Detail"}, rows, nil))

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func runDoctorChecks(ctx context.Context, cfg *config.Config) []doctorCheck {
	var checks []doctorCheck

	if err := cfg.Validate(false); err != nil {
		checks = append(checks, doctorCheck{name: "config", detail: err.Error()})
	} else {
		checks = append(checks, doctorCheck{name: "config", ok: true, detail: fmt.Sprintf("ceiling %gMB", cfg.Limits.MaxFileSizeMB)})
	}

	ffmpeg := transcode.New(transcode.WithFFmpegPath(cfg.FFmpeg.Path))
	if version, err := ffmpeg.Version(ctx); err != nil {
		checks = append(checks, doctorCheck{name: "ffmpeg", detail: err.Error()})
	} else {
		checks = append(checks, doctorCheck{name: "ffmpeg", ok: true, detail: version})
	}

	switch cfg.YouTube.Backend {
	case config.BackendNative:
		checks = append(checks, doctorCheck{name: "extractor", ok: true, detail: "in-process (kkdai/youtube)"})
	default:
		ytdlp := fetch.NewYtDlp(cfg.FetchOptions(""), fetch.WithYtDlpPath(cfg.YouTube.YtDlpPath))
		if version, err := ytdlp.Version(ctx); err != nil {
			checks = append(checks, doctorCheck{name: "yt-dlp", detail: err.Error()})
		} else {
			checks = append(checks, doctorCheck{name: "yt-dlp", ok: true, detail: version})
		}
	}

	lock, err := cron.AcquireRootLock(cfg.Workspace.Root)
	switch {
	case errors.Is(err, cron.ErrRootLocked):
		checks = append(checks, doctorCheck{name: "workspace", ok: true, detail: cfg.Workspace.Root + " (in use by a running bot)"})
	case err != nil:
		checks = append(checks, doctorCheck{name: "workspace", detail: err.Error()})
	default:
		_ = lock.Release()
		checks = append(checks, doctorCheck{name: "workspace", ok: true, detail: cfg.Workspace.Root})
	}

	switch {
	case cfg.YouTube.Cookies != "":
		checks = append(checks, doctorCheck{name: "cookies", ok: true, detail: "inline YOUTUBE_COOKIES"})
	case cfg.YouTube.CookiesFile != "":
		if _, _, err := fetch.LoadCookieJar(cfg.YouTube.CookiesFile); err != nil {
			checks = append(checks, doctorCheck{name: "cookies", detail: err.Error()})
		} else {
			checks = append(checks, doctorCheck{name: "cookies", ok: true, detail: cfg.YouTube.CookiesFile})
		}
	default:
		checks = append(checks, doctorCheck{name: "cookies", ok: true, detail: "none"})
	}

	return checks
}
