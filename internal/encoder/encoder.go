package encoder

import (
	"context"
	"sync"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/reactive"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

// Listener receives compressed frames from an Encoder. It is invoked on
// the encoder's listener executor, never the codec executor, so a slow
// listener cannot stall compression (spec §4.2, §5).
type Listener func(media.Frame)

// PullFunc is invoked by the encoder's codec executor whenever it has an
// input slot free, for encoders configured with a pull-style input
// (spec §4.2 "a pull callback invoked when the encoder has an input slot
// free").
type PullFunc func(ctx context.Context) (media.Frame, error)

const queueDepth = 16

// Encoder drives one Codec through the lifecycle in state.go, dispatching
// codec work and listener callbacks on separate executors (goroutines
// plus channels, per spec §5 "Encoder threads").
type Encoder struct {
	codec   Codec
	isVideo bool

	mu    sync.Mutex
	state State

	listener Listener
	pull     PullFunc

	codecQueue    chan media.Frame
	listenerQueue chan media.Frame
	stopCodec     chan struct{}
	wg            sync.WaitGroup

	configEmitted bool

	throwable *reactive.State[error]
}

// NewAudioEncoder returns an Idle encoder wrapping codec for audio.
func NewAudioEncoder(codec Codec) *Encoder {
	return &Encoder{codec: codec, throwable: reactive.New[error](nil)}
}

// NewVideoEncoder returns an Idle encoder wrapping codec for video.
func NewVideoEncoder(codec Codec) *Encoder {
	return &Encoder{codec: codec, isVideo: true, throwable: reactive.New[error](nil)}
}

func (e *Encoder) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Encoder) Throwable() *reactive.State[error] { return e.throwable }

func (e *Encoder) transition(to State) error {
	if !canTransition(e.state, to) {
		return streamerrors.New(streamerrors.KindInvalidState, "encoder.Encoder", "transition", nil)
	}
	e.state = to
	return nil
}

// ConfigureAudio binds cfg and allocates codec resources.
func (e *Encoder) ConfigureAudio(cfg media.AudioCodecConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle && e.state != StateStopped && e.state != StateError {
		return streamerrors.New(streamerrors.KindInvalidState, "encoder.Encoder", "ConfigureAudio", nil)
	}
	if err := e.codec.ConfigureAudio(cfg); err != nil {
		return streamerrors.New(streamerrors.KindCodecError, "encoder.Encoder", "ConfigureAudio", err)
	}
	e.configEmitted = false
	return e.transition(StateConfigured)
}

// ConfigureVideo binds cfg and allocates codec resources. Per spec §4.2,
// the caller is responsible for rotating the declared resolution to the
// natural sensor orientation before calling this (the rotation workaround
// applies at configure time, not here — this method only binds the
// already-rotated config).
func (e *Encoder) ConfigureVideo(cfg media.VideoCodecConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle && e.state != StateStopped && e.state != StateError {
		return streamerrors.New(streamerrors.KindInvalidState, "encoder.Encoder", "ConfigureVideo", nil)
	}
	if err := e.codec.ConfigureVideo(cfg); err != nil {
		return streamerrors.New(streamerrors.KindCodecError, "encoder.Encoder", "ConfigureVideo", err)
	}
	e.configEmitted = false
	return e.transition(StateConfigured)
}

// Start begins producing compressed frames, delivered to listener. If
// pull is non-nil the codec executor drives input by calling it whenever
// it has a free slot (PullFunc); otherwise the caller is expected to push
// raw frames in via Push (the SurfaceInput model, e.g. a compositor
// rendering directly into this encoder).
func (e *Encoder) Start(ctx context.Context, listener Listener, pull PullFunc) error {
	e.mu.Lock()
	if err := e.transition(StatePendingStart); err != nil {
		e.mu.Unlock()
		return err
	}
	e.listener = listener
	e.pull = pull
	e.codecQueue = make(chan media.Frame, queueDepth)
	e.listenerQueue = make(chan media.Frame, queueDepth)
	e.stopCodec = make(chan struct{})
	_ = e.transition(StateStarted)
	e.mu.Unlock()

	e.wg.Add(2)
	go e.runListenerExecutor()
	go e.runCodecExecutor(ctx)
	return nil
}

// Push feeds one raw frame to the codec executor; used by SurfaceInput
// producers instead of a PullFunc. Non-blocking up to queueDepth; beyond
// that it blocks, which is the back-pressure point spec §5 describes
// propagating up to the source.
func (e *Encoder) Push(ctx context.Context, frame media.Frame) error {
	e.mu.Lock()
	q := e.codecQueue
	running := e.state == StateStarted
	e.mu.Unlock()
	if !running || q == nil {
		return streamerrors.New(streamerrors.KindInvalidState, "encoder.Encoder", "Push", nil)
	}
	select {
	case q <- frame:
		return nil
	case <-ctx.Done():
		return streamerrors.New(streamerrors.KindCancelled, "encoder.Encoder", "Push", ctx.Err())
	}
}

func (e *Encoder) runCodecExecutor(ctx context.Context) {
	defer e.wg.Done()
	for {
		var frame media.Frame
		if e.pull != nil {
			f, err := e.pull(ctx)
			if err != nil {
				e.fail(err)
				return
			}
			frame = f
		} else {
			select {
			case frame = <-e.codecQueue:
			case <-e.stopCodec:
				return
			case <-ctx.Done():
				return
			}
		}

		encoded, err := e.codec.Encode(frame)
		if err != nil {
			e.fail(streamerrors.New(streamerrors.KindCodecError, "encoder.Encoder", "Encode", err))
			return
		}

		e.mu.Lock()
		needConfig := !e.configEmitted
		e.mu.Unlock()
		if needConfig {
			if cfgFrame, ready := e.codec.ConfigFrame(); ready {
				e.mu.Lock()
				e.configEmitted = true
				e.mu.Unlock()
				e.enqueueListener(cfgFrame)
			}
		}

		for _, ef := range encoded {
			e.enqueueListener(ef)
		}

		select {
		case <-e.stopCodec:
			return
		default:
		}
	}
}

func (e *Encoder) enqueueListener(f media.Frame) {
	select {
	case e.listenerQueue <- f:
	case <-e.stopCodec:
	}
}

func (e *Encoder) runListenerExecutor() {
	defer e.wg.Done()
	for {
		select {
		case f, ok := <-e.listenerQueue:
			if !ok {
				return
			}
			if e.listener != nil {
				e.listener(f)
			}
		case <-e.stopCodec:
			// Drain remaining buffered frames before exiting so a
			// stop_stream flush (spec §4.3 "flush trailers at stop")
			// sees every already-encoded frame.
			for {
				select {
				case f := <-e.listenerQueue:
					if e.listener != nil {
						e.listener(f)
					}
				default:
					return
				}
			}
		}
	}
}

func (e *Encoder) fail(err error) {
	e.mu.Lock()
	wasConfigured := e.state == StateConfigured
	e.state = StateError
	e.mu.Unlock()

	if wasConfigured {
		e.throwable.Set(err)
		// Recoverable: self-reset (spec §4.2 "attempts a self-reset if
		// the error occurred in Configured").
		_ = e.codec.Reset()
		e.mu.Lock()
		e.state = StateConfigured
		e.mu.Unlock()
		return
	}
	// Non-recoverable from a running state: stop before the caller
	// observes the error (spec §4.2 "otherwise stops the stream before
	// notifying").
	close(e.stopCodec)
	e.throwable.Set(err)
}

// RequestKeyFrame hints the codec to emit an IDR at the next opportunity.
func (e *Encoder) RequestKeyFrame() {
	e.codec.RequestKeyFrame()
}

// SetBitrate applies a live bitrate change. Video only.
func (e *Encoder) SetBitrate(bps int) error {
	if !e.isVideo {
		return streamerrors.New(streamerrors.KindInvalidState, "encoder.Encoder", "SetBitrate", errAudioBitrateImmutable)
	}
	if err := e.codec.SetBitrate(bps); err != nil {
		return streamerrors.New(streamerrors.KindCodecError, "encoder.Encoder", "SetBitrate", err)
	}
	return nil
}

// Stop halts production and joins both executors.
func (e *Encoder) Stop(_ context.Context) error {
	e.mu.Lock()
	if e.state != StateStarted && e.state != StatePaused {
		e.mu.Unlock()
		return streamerrors.New(streamerrors.KindInvalidState, "encoder.Encoder", "Stop", nil)
	}
	_ = e.transition(StatePendingStop)
	e.mu.Unlock()

	close(e.stopCodec)
	e.wg.Wait()

	e.mu.Lock()
	_ = e.transition(StateStopped)
	e.mu.Unlock()
	return nil
}

// Reset moves back to Configured, preserving the bound config.
func (e *Encoder) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.codec.Reset(); err != nil {
		return streamerrors.New(streamerrors.KindCodecError, "encoder.Encoder", "Reset", err)
	}
	e.configEmitted = false
	return e.transition(StateConfigured)
}

// Release is terminal.
func (e *Encoder) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.transition(StatePendingRelease); err != nil {
		return err
	}
	if err := e.codec.Release(); err != nil {
		return streamerrors.New(streamerrors.KindCodecError, "encoder.Encoder", "Release", err)
	}
	return e.transition(StateReleased)
}
