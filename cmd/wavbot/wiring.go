package main

import (
	"fmt"

	"github.com/latoulicious/wavbot/internal/config"
	"github.com/latoulicious/wavbot/pkg/delivery"
	"github.com/latoulicious/wavbot/pkg/diagnostics"
	"github.com/latoulicious/wavbot/pkg/fetch"
	"github.com/latoulicious/wavbot/pkg/filebin"
	"github.com/latoulicious/wavbot/pkg/pipeline"
	"github.com/latoulicious/wavbot/pkg/transcode"
)

// stack is everything a conversion needs apart from the requester side.
type stack struct {
	orchestrator *pipeline.Orchestrator
	transcoder   *transcode.FFmpeg
	filebin      *filebin.Client
	remote       *delivery.RemoteHost
}

func newExtractor(cfg *config.Config, logger pipeline.Logger) (fetch.Extractor, error) {
	cookieFile, err := cfg.PrepareCookies()
	if err != nil {
		return nil, err
	}
	if cookieFile != "" {
		logger.Info("Using YouTube cookies", pipeline.String("path", cookieFile))
	}

	options := cfg.FetchOptions(cookieFile)
	switch cfg.YouTube.Backend {
	case config.BackendNative:
		return fetch.NewNative(options, logger)
	default:
		return fetch.NewYtDlp(options,
			fetch.WithYtDlpPath(cfg.YouTube.YtDlpPath),
			fetch.WithYtDlpLogger(logger),
		), nil
	}
}

func newStack(cfg *config.Config, logger pipeline.Logger) (*stack, error) {
	extractor, err := newExtractor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create extractor: %w", err)
	}

	transcoder := transcode.New(
		transcode.WithFFmpegPath(cfg.FFmpeg.Path),
		transcode.WithLogger(logger.With(pipeline.String("component", "ffmpeg"))),
	)

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.Diagnostics {
		opts = append(opts, pipeline.WithInspector(diagnostics.WAVInspector{}))
	}

	orchestrator, err := pipeline.NewOrchestrator(cfg.Pipeline(), fetch.NewFetcher(extractor, logger), transcoder, opts...)
	if err != nil {
		return nil, err
	}

	client := filebin.NewClient(
		filebin.WithBaseURL(cfg.Filebin.BaseURL),
		filebin.WithGrace(cfg.FilebinGrace()),
		filebin.WithLogger(logger.With(pipeline.String("component", "filebin"))),
	)

	return &stack{
		orchestrator: orchestrator,
		transcoder:   transcoder,
		filebin:      client,
		remote:       delivery.NewRemoteHost(client, cfg.FilebinExpiry(), logger),
	}, nil
}
