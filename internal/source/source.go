// Package source defines the Source contract (spec §4.1): a capture-side
// producer of raw frames, owned and lifecycle-managed by the pipeline.
// Concrete capture devices (camera, microphone, screen capture) are out
// of scope per spec §1 — only the interface and its lifecycle state
// machine live here, plus a synthetic in-memory source used by
// cmd/streampackd and by this package's own tests.
package source

import (
	"context"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/reactive"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

// Kind distinguishes the two Source variants (spec §9 "Tagged variants").
type Kind int

const (
	KindFrame Kind = iota
	KindSurface
)

// Source is the capability every capture device implements: configure,
// start/stop, release, and an observable streaming/error state. FrameSource
// and SurfaceSource add the media-type-specific read/write operations.
type Source interface {
	Kind() Kind

	// Configure binds the source to a capture-side config. Idempotent;
	// fails with InvalidState if called while streaming.
	Configure(cfg media.AudioSourceConfig, vcfg media.VideoSourceConfig) error

	StartStream(ctx context.Context) error
	StopStream(ctx context.Context) error

	// Release is terminal; frees any OS handles. Configure and
	// StartStream fail with InvalidState afterward.
	Release(ctx context.Context) error

	// IsStreaming is true while the source is actively producing frames.
	IsStreaming() *reactive.State[bool]

	// Throwable carries the last asynchronous error, if any (e.g.
	// permission revoked mid-capture). A source that dies asynchronously
	// must flip IsStreaming to false and set this before returning
	// (spec §4.1 "Failure model").
	Throwable() *reactive.State[error]
}

// FrameSource produces raw samples into a caller-supplied buffer. Audio is
// always a FrameSource; video may be either this or SurfaceSource.
type FrameSource interface {
	Source

	// ReadFrame blocks until a sample is available, writing into buf and
	// returning a Frame describing it. Fails with NotConfigured if not
	// started.
	ReadFrame(ctx context.Context, buf []byte) (media.Frame, error)
}

// CompositingTarget is the video-frame sink a SurfaceSource renders into;
// its concrete implementation is the pipeline's compositor (internal/
// pipeline), kept abstract here to avoid a dependency cycle.
type CompositingTarget interface {
	Render(f media.Frame) error
}

// SurfaceSource writes video frames directly into a caller-supplied
// compositing target rather than handing back buffers (spec §4.1).
type SurfaceSource interface {
	Source

	SetOutput(target CompositingTarget)
	ResetOutput()
}

// Factory creates Source instances and can tell whether two factories
// describe the same logical device, which the pipeline uses to decide
// whether set_*_source is a no-op or a hot-swap (spec §4.8).
type Factory interface {
	New() (Source, error)
	// Describes reports whether other would construct an equivalent
	// source (e.g. same camera facing, same device path).
	Describes(other Factory) bool
}

// baseState is embedded by concrete sources to implement the observable
// half of the Source contract; it does not implement Configure/StartStream
// itself since those are device-specific.
type baseState struct {
	streaming *reactive.State[bool]
	throwable *reactive.State[error]
}

func newBaseState() baseState {
	return baseState{
		streaming: reactive.New(false),
		throwable: reactive.New[error](nil),
	}
}

func (b *baseState) IsStreaming() *reactive.State[bool] { return b.streaming }
func (b *baseState) Throwable() *reactive.State[error]  { return b.throwable }

// errNotConfigured is the canonical error for reads while not streaming.
var errNotConfigured = streamerrors.New(streamerrors.KindNotConfigured, "source", "", nil)
