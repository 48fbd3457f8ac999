package pipeline

import (
	"context"
	"time"
)

// Stage represents the current state of a conversion job
type Stage int

const (
	StageIdle Stage = iota
	StageFetching
	StageTranscoding
	StageSizeChecked
	StageDelivering
	StageDelivered
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageFetching:
		return "fetching"
	case StageTranscoding:
		return "transcoding"
	case StageSizeChecked:
		return "size_checked"
	case StageDelivering:
		return "delivering"
	case StageDelivered:
		return "delivered"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen from s.
func (s Stage) Terminal() bool {
	return s == StageDelivered || s == StageFailed
}

// RouteChoice selects which delivery agent handles the final artifact
type RouteChoice int

const (
	RouteDirectAttach RouteChoice = iota
	RouteRemoteHost
)

func (r RouteChoice) String() string {
	switch r {
	case RouteDirectAttach:
		return "direct_attach"
	case RouteRemoteHost:
		return "remote_host"
	default:
		return "unknown"
	}
}

// AudioFormat is the declared codec/bit-depth/sample-rate/channel tuple of an artifact.
type AudioFormat struct {
	Codec      string
	BitDepth   int
	SampleRate int
	Channels   int
}

// TargetFormat is the format every transcoded artifact must carry.
var TargetFormat = AudioFormat{
	Codec:      "pcm_s16le",
	BitDepth:   16,
	SampleRate: 44100,
	Channels:   1,
}

func (f AudioFormat) String() string {
	if f.Codec == "" {
		return "unknown"
	}
	return formatLabel(f)
}

// MediaArtifact is a materialized file inside a job workspace
type MediaArtifact struct {
	Path   string
	Size   int64
	Format AudioFormat
}

// Attachment is a file handed inline to the chat platform
type Attachment struct {
	Filename string
	Caption  string
	Data     []byte
}

// DeliveryResult is the outcome of a delivery agent. Exactly one of
// Attachment or URL is set.
type DeliveryResult struct {
	Route      RouteChoice
	Attachment *Attachment
	URL        string
	// Expiry is nil when the delivered content does not expire.
	Expiry *time.Duration
}

// DeliveryAgent hands the final artifact to the requester
type DeliveryAgent interface {
	Deliver(ctx context.Context, artifact MediaArtifact, title string) (*DeliveryResult, error)
}

// Fetcher resolves a source URL into a raw audio file inside workspaceDir
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, workspaceDir string) (title string, rawPath string, err error)
}

// Transcoder converts inputPath into the target format at outputPath
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// Inspector reads the actual format of a produced artifact. It is only used
// for diagnostics and never changes a job's outcome.
type Inspector interface {
	Inspect(path string) (AudioFormat, error)
}

// Agents holds one delivery agent per route
type Agents struct {
	Direct DeliveryAgent
	Remote DeliveryAgent
}

// For returns the agent registered for route
func (a Agents) For(route RouteChoice) DeliveryAgent {
	if route == RouteRemoteHost {
		return a.Remote
	}
	return a.Direct
}

// Job is one end-to-end conversion run. It is mutated only by the orchestrator.
type Job struct {
	ID        string
	SourceURL string
	Workspace string
	Title     string
	Stage     Stage
	Route     RouteChoice
	Artifact  *MediaArtifact
	Result    *DeliveryResult
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

// StageChange represents a job state transition
type StageChange struct {
	From      Stage
	To        Stage
	Timestamp time.Time
	Reason    string
}
