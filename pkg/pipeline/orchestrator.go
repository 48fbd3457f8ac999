package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Request is one inbound conversion request
type Request struct {
	SourceURL string
	Notifier  Notifier
	Agents    Agents
}

// Orchestrator sequences fetch, transcode, size routing and delivery for one
// job at a time per call. It holds no per-job state, so Run may be called
// concurrently from many goroutines.
type Orchestrator struct {
	config     Config
	fetcher    Fetcher
	transcoder Transcoder
	router     *SizeRouter
	inspector  Inspector
	logger     Logger
	newID      func() string

	// active maps the workspace paths of running jobs to their job IDs.
	active sync.Map
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the orchestrator's logger
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithInspector enables post-transcode format diagnostics
func WithInspector(inspector Inspector) Option {
	return func(o *Orchestrator) {
		o.inspector = inspector
	}
}

// WithIDGenerator replaces the job ID generator (for testing)
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// NewOrchestrator creates an orchestrator over the given collaborators
func NewOrchestrator(config Config, fetcher Fetcher, transcoder Transcoder, opts ...Option) (*Orchestrator, error) {
	if fetcher == nil || transcoder == nil {
		return nil, errors.New("orchestrator requires a fetcher and a transcoder")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if config.Labels == (Labels{}) {
		config.Labels = DefaultLabels()
	}

	o := &Orchestrator{
		config:     config,
		fetcher:    fetcher,
		transcoder: transcoder,
		router:     NewSizeRouter(config.MaxAttachmentBytes),
		logger:     DefaultLogger(),
		newID:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(String("component", "orchestrator"))
	return o, nil
}

// Router returns the size router used for route selection
func (o *Orchestrator) Router() *SizeRouter {
	return o.router
}

// OwnsWorkspace reports whether path is the workspace of a job that is still running.
func (o *Orchestrator) OwnsWorkspace(path string) bool {
	_, ok := o.active.Load(filepath.Clean(path))
	return ok
}

// Labels returns the message labels jobs report with
func (o *Orchestrator) Labels() Labels {
	return o.config.Labels
}

// Run executes one job to a terminal stage and returns it. The job's
// workspace no longer exists when Run returns.
func (o *Orchestrator) Run(ctx context.Context, req Request) (job *Job) {
	job = &Job{
		ID:        o.newID(),
		SourceURL: strings.TrimSpace(req.SourceURL),
		Stage:     StageIdle,
		StartedAt: time.Now(),
	}
	logger := o.logger.With(String("job_id", job.ID), String("url", job.SourceURL))
	notify := tryNotifier{notifier: req.Notifier, logger: logger}

	ws, err := NewWorkspace(o.config.WorkspaceRoot, job.ID)
	if err != nil {
		o.fail(ctx, job, classify(err, StageIdle, KindUnexpected), notify, logger)
		o.finish(job, nil, logger)
		return job
	}
	job.Workspace = ws.Path
	o.active.Store(filepath.Clean(ws.Path), job.ID)
	logger.Debug("Created workspace", String("workspace", ws.Path))

	defer o.finish(job, ws, logger)
	defer func() {
		if r := recover(); r != nil {
			pe := NewPipelineError(KindUnexpected, fmt.Errorf("internal error: %v", r))
			pe.Stage = job.Stage
			o.fail(ctx, job, pe, notify, logger)
		}
	}()

	if err := o.execute(ctx, job, req, ws, notify, logger); err != nil {
		o.fail(ctx, job, err, notify, logger)
	}
	return job
}

func (o *Orchestrator) execute(ctx context.Context, job *Job, req Request, ws *Workspace, notify tryNotifier, logger Logger) *PipelineError {
	labels := o.config.Labels

	o.transition(job, StageFetching, "job started", logger)
	notify.update(ctx, labels.fetchingMessage())

	title, rawPath, err := o.fetch(ctx, job.SourceURL, ws.Path)
	if err != nil {
		return classify(err, StageFetching, KindFetchFailed)
	}
	job.Title = title
	logger.Info("Fetched audio", String("title", title), String("raw_path", rawPath))

	o.transition(job, StageTranscoding, "fetch complete", logger)
	notify.update(ctx, labels.transcodingMessage())

	outPath := transcodeTarget(rawPath)
	if err := o.transcode(ctx, rawPath, outPath); err != nil {
		return classify(err, StageTranscoding, KindTranscodeFailed)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return classify(TranscodeFailed(fmt.Errorf("%w: %s", ErrOutputMissing, filepath.Base(outPath)), ""), StageTranscoding, KindTranscodeFailed)
	}
	job.Artifact = &MediaArtifact{
		Path:   outPath,
		Size:   info.Size(),
		Format: TargetFormat,
	}
	o.diagnose(job.Artifact, logger)

	job.Route = o.router.Route(job.Artifact.Size)
	o.transition(job, StageSizeChecked, "transcode complete", logger)
	logger.Info("Selected delivery route",
		String("route", job.Route.String()),
		Bytes("size", job.Artifact.Size),
		Bytes("ceiling", o.router.Ceiling()),
	)

	agent := req.Agents.For(job.Route)
	if agent == nil {
		return classify(fmt.Errorf("%w: %s", ErrNoAgent, job.Route), StageSizeChecked, KindUnexpected)
	}

	o.transition(job, StageDelivering, "route selected: "+job.Route.String(), logger)
	notify.update(ctx, labels.deliveringMessage(job.Route))

	result, err := o.deliver(ctx, agent, *job.Artifact, title)
	if err != nil {
		return classify(err, StageDelivering, KindDeliveryFailed)
	}
	if result == nil {
		return classify(errors.New("delivery agent returned no result"), StageDelivering, KindDeliveryFailed)
	}
	result.Route = job.Route
	job.Result = result

	o.transition(job, StageDelivered, "delivery complete", logger)
	if result.Attachment != nil {
		notify.dismiss(ctx)
	} else {
		notify.finish(ctx, labels.HostedSummary(title, job.Artifact.Size, result))
	}

	logger.Info("Delivered artifact",
		String("title", title),
		String("route", job.Route.String()),
		Bytes("size", job.Artifact.Size),
		String("url", result.URL),
	)
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context, sourceURL, dir string) (string, string, error) {
	stageCtx, cancel := o.stageContext(ctx)
	defer cancel()
	return o.fetcher.Fetch(stageCtx, sourceURL, dir)
}

func (o *Orchestrator) transcode(ctx context.Context, in, out string) error {
	stageCtx, cancel := o.stageContext(ctx)
	defer cancel()
	return o.transcoder.Transcode(stageCtx, in, out)
}

func (o *Orchestrator) deliver(ctx context.Context, agent DeliveryAgent, artifact MediaArtifact, title string) (*DeliveryResult, error) {
	stageCtx, cancel := o.stageContext(ctx)
	defer cancel()
	return agent.Deliver(stageCtx, artifact, title)
}

func (o *Orchestrator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.config.StageTimeout > 0 {
		return context.WithTimeout(ctx, o.config.StageTimeout)
	}
	return context.WithCancel(ctx)
}

// diagnose compares the artifact's real header with its declared format.
// Mismatches are logged only.
func (o *Orchestrator) diagnose(artifact *MediaArtifact, logger Logger) {
	if o.inspector == nil {
		return
	}
	actual, err := o.inspector.Inspect(artifact.Path)
	if err != nil {
		logger.Warn("Could not inspect artifact", String("path", artifact.Path), Error(err))
		return
	}
	if actual != artifact.Format {
		logger.Warn("Artifact format differs from declared format",
			String("declared", artifact.Format.String()),
			String("actual", actual.String()),
		)
		return
	}
	logger.Debug("Artifact format verified", String("format", actual.String()))
}

func (o *Orchestrator) fail(ctx context.Context, job *Job, err *PipelineError, notify tryNotifier, logger Logger) {
	if job.Stage.Terminal() {
		return
	}
	job.Err = err
	o.transition(job, StageFailed, err.Kind.String(), logger)
	logger.Error("Job failed",
		String("kind", err.Kind.String()),
		String("stage", err.Stage.String()),
		Error(err),
	)
	notify.finish(ctx, o.config.Labels.FailureMessage(job))
}

func (o *Orchestrator) finish(job *Job, ws *Workspace, logger Logger) {
	if err := ws.Cleanup(); err != nil {
		logger.Error("Failed to remove workspace", Error(err))
	}
	if ws != nil {
		o.active.Delete(filepath.Clean(ws.Path))
	}
	job.EndedAt = time.Now()
	logger.Info("Job finished",
		String("stage", job.Stage.String()),
		Duration("elapsed", job.EndedAt.Sub(job.StartedAt)),
	)
}

// transition changes the job stage and logs it
func (o *Orchestrator) transition(job *Job, next Stage, reason string, logger Logger) {
	change := StageChange{
		From:      job.Stage,
		To:        next,
		Timestamp: time.Now(),
		Reason:    reason,
	}
	job.Stage = next

	logger.Debug("Job stage changed",
		String("from", change.From.String()),
		String("to", change.To.String()),
		String("reason", change.Reason),
	)
}

// transcodeTarget names the WAV output next to the raw download.
func transcodeTarget(rawPath string) string {
	dir := filepath.Dir(rawPath)
	base := strings.TrimSuffix(filepath.Base(rawPath), filepath.Ext(rawPath))
	out := filepath.Join(dir, base+".wav")
	if out == rawPath {
		out = filepath.Join(dir, base+".pcm.wav")
	}
	return out
}
