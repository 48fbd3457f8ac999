// Package pipeline turns a video URL into a delivered 16-bit 44.1kHz mono WAV.
//
// # Core Components
//
//   - Orchestrator: runs one job through Fetching, Transcoding, SizeChecked
//     and Delivering to Delivered or Failed
//   - SizeRouter: picks inline attachment or hosted link from the artifact size
//   - Workspace: the temporary directory a job owns, removed on every exit path
//   - Notifier: the progress channel; failures to notify are logged, never fatal
//   - Structured Logging: JSON/text logging with configurable levels and fields
//
// # Usage Example
//
//	orch, err := pipeline.NewOrchestrator(cfg, fetcher, transcoder,
//		pipeline.WithLogger(logger),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	job := orch.Run(ctx, pipeline.Request{
//		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
//		Notifier:  notifier,
//		Agents: pipeline.Agents{
//			Direct: delivery.NewDirectAttach(attacher, logger),
//			Remote: delivery.NewRemoteHost(filebinClient, filebin.DefaultExpiry, logger),
//		},
//	})
//	if job.Stage == pipeline.StageFailed {
//		logger.Warn("conversion failed", pipeline.Error(job.Err))
//	}
//
// # Error Handling
//
// Stage failures are classified as InvalidSource, FetchFailed,
// TranscodeFailed, DeliveryFailed or UnexpectedFailure. They end the job,
// never propagate past Run, and are rendered as one terminal message.
//
// # Concurrency
//
// Run keeps all job state on its own stack and workspace. Callers run one
// goroutine per request; jobs share only the read-only Config.
package pipeline
