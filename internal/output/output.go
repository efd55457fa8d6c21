// Package output implements Output (spec §4.7): one destination end to
// end — zero-or-one audio encoder, zero-or-one video encoder and the
// endpoint.Endpoint they feed, wired together with the same
// is_open/is_streaming/throwable reactive triad internal/source and
// internal/sink already use.
package output

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ThibaultBee/streampack/internal/encoder"
	"github.com/ThibaultBee/streampack/internal/endpoint"
	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/reactive"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

// AudioCodecFactory builds the Codec collaborator an audio Encoder drives.
// Defaults to encoder.NewPassthroughAudioCodec; a real deployment injects
// one that wraps an actual compressor.
type AudioCodecFactory func(media.AudioCodecConfig) encoder.Codec

// VideoCodecFactory is the video analogue of AudioCodecFactory.
type VideoCodecFactory func(media.VideoCodecConfig) encoder.Codec

// Output binds zero-or-one audio encoder and zero-or-one video encoder to
// an endpoint.Endpoint (spec §4.7). It holds no reference back to its
// owning pipeline: set_*_codec_config's "compatible with the pipeline's
// current source config" requirement is checked against a reference config
// the caller (the pipeline) supplies explicitly, since only the pipeline
// knows the union config across every sibling output.
type Output struct {
	// ID identifies this output across its lifetime, following the
	// teacher's RelaySession.ID convention (internal/relay/session.go).
	ID uuid.UUID

	mu sync.Mutex

	endpoint endpoint.Endpoint

	audioCodecFactory AudioCodecFactory
	videoCodecFactory VideoCodecFactory

	audioEncoder  *encoder.Encoder
	videoEncoder  *encoder.Encoder
	audioCfg      *media.AudioCodecConfig
	videoCfg      *media.VideoCodecConfig
	audioPullFunc encoder.PullFunc

	streamsAdded  bool
	audioStreamID media.StreamID
	videoStreamID media.StreamID

	isOpen      *reactive.State[bool]
	isStreaming *reactive.State[bool]
	throwable   *reactive.State[error]
}

// New returns an unconfigured, closed Output driving ep, with passthrough
// codec factories. Use WithAudioCodecFactory/WithVideoCodecFactory before
// the first SetAudioCodecConfig/SetVideoCodecConfig call to inject a real
// compressor.
func New(ep endpoint.Endpoint) *Output {
	return &Output{
		ID:                uuid.New(),
		endpoint:          ep,
		audioCodecFactory: func(media.AudioCodecConfig) encoder.Codec { return encoder.NewPassthroughAudioCodec() },
		videoCodecFactory: func(media.VideoCodecConfig) encoder.Codec { return encoder.NewPassthroughVideoCodec() },
		isOpen:            reactive.New(false),
		isStreaming:       reactive.New(false),
		throwable:         reactive.New[error](nil),
	}
}

// WithAudioPullFunc installs a PullFunc the audio encoder's codec executor
// drives instead of waiting on PushAudioFrame (spec §4.8 "in PULL mode it
// is driven by encoder input-buffer callbacks"). internal/pipeline does not
// call it and always pushes audio through PushAudioFrame; left nil,
// StartStream runs the audio encoder in push mode.
func (o *Output) WithAudioPullFunc(f encoder.PullFunc) *Output {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.audioPullFunc = f
	return o
}

// WithAudioCodecFactory overrides the audio Codec collaborator used by
// subsequent SetAudioCodecConfig calls.
func (o *Output) WithAudioCodecFactory(f AudioCodecFactory) *Output {
	o.audioCodecFactory = f
	return o
}

// WithVideoCodecFactory overrides the video Codec collaborator used by
// subsequent SetVideoCodecConfig calls.
func (o *Output) WithVideoCodecFactory(f VideoCodecFactory) *Output {
	o.videoCodecFactory = f
	return o
}

func (o *Output) IsOpen() *reactive.State[bool]     { return o.isOpen }
func (o *Output) IsStreaming() *reactive.State[bool] { return o.isStreaming }
func (o *Output) Throwable() *reactive.State[error] { return o.throwable }

// AudioStreamID reports the stream id endpoint.AddStreams assigned to the
// audio track and whether one has been assigned yet (only true once
// StartStream has run at least once with an audio encoder configured).
func (o *Output) AudioStreamID() (media.StreamID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.audioStreamID, o.streamsAdded && o.audioCfg != nil
}

// VideoStreamID is the video analogue of AudioStreamID.
func (o *Output) VideoStreamID() (media.StreamID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.videoStreamID, o.streamsAdded && o.videoCfg != nil
}

// AudioCodecConfig reports the currently pinned audio config, if any. A
// pipeline fanning out to several outputs uses this to build the reference
// config it passes to a sibling's SetAudioCodecConfig.
func (o *Output) AudioCodecConfig() (media.AudioCodecConfig, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.audioCfg == nil {
		return media.AudioCodecConfig{}, false
	}
	return *o.audioCfg, true
}

// VideoCodecConfig is the video analogue of AudioCodecConfig.
func (o *Output) VideoCodecConfig() (media.VideoCodecConfig, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.videoCfg == nil {
		return media.VideoCodecConfig{}, false
	}
	return *o.videoCfg, true
}

// SetAudioCodecConfig rebuilds the audio encoder around cfg (spec §4.7).
// It fails with InvalidState while streaming. If reference is non-nil, cfg
// must be able to share a capture source with it (media.AudioCodecConfig.
// CompatibleSource) or the call fails with IncompatibleConfig; pass nil for
// the first output configured on a pipeline, since there is nothing to
// reconcile against yet.
func (o *Output) SetAudioCodecConfig(cfg media.AudioCodecConfig, reference *media.AudioCodecConfig) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.isStreaming.Get() {
		return streamerrors.New(streamerrors.KindInvalidState, "output.Output", "SetAudioCodecConfig", nil)
	}
	if reference != nil && !cfg.CompatibleSource(*reference) {
		return streamerrors.New(streamerrors.KindIncompatibleConfig, "output.Output", "SetAudioCodecConfig", nil)
	}

	enc := encoder.NewAudioEncoder(o.audioCodecFactory(cfg))
	if err := enc.ConfigureAudio(cfg); err != nil {
		return err
	}
	o.audioEncoder = enc
	o.audioCfg = &cfg
	o.streamsAdded = false
	return nil
}

// SetVideoCodecConfig is the video analogue of SetAudioCodecConfig.
func (o *Output) SetVideoCodecConfig(cfg media.VideoCodecConfig, reference *media.VideoCodecConfig) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.isStreaming.Get() {
		return streamerrors.New(streamerrors.KindInvalidState, "output.Output", "SetVideoCodecConfig", nil)
	}
	if reference != nil && !cfg.CompatibleSource(*reference) {
		return streamerrors.New(streamerrors.KindIncompatibleConfig, "output.Output", "SetVideoCodecConfig", nil)
	}

	enc := encoder.NewVideoEncoder(o.videoCodecFactory(cfg))
	if err := enc.ConfigureVideo(cfg); err != nil {
		return err
	}
	o.videoEncoder = enc
	o.videoCfg = &cfg
	o.streamsAdded = false
	return nil
}

// Open forwards to the endpoint and flips is_open on success (spec §4.7
// "forwards to endpoint").
func (o *Output) Open(ctx context.Context, descriptor media.MediaDescriptor) error {
	if err := o.endpoint.Open(ctx, descriptor); err != nil {
		return err
	}
	o.isOpen.Set(true)
	return nil
}

// Close forwards to the endpoint and flips is_open regardless of the
// result, since close is always a best-effort teardown.
func (o *Output) Close(ctx context.Context) error {
	err := o.endpoint.Close(ctx)
	o.isOpen.Set(false)
	return err
}

// StartStream requires at least one configured encoder, assigns stream ids
// on the first call via endpoint.AddStreams, starts the endpoint, then
// starts each configured encoder (spec §4.7 "starts endpoint then
// encoders"). It is the synchronous-start path: a pipeline calling this
// after starting its sources gets deterministic ordering; a caller driving
// asynchronous start (e.g. a preview UI) can call it directly, and the
// owning pipeline is expected to observe IsStreaming() to start sources in
// response (spec §4.7 "asynchronous start").
func (o *Output) StartStream(ctx context.Context) error {
	o.mu.Lock()
	if o.audioEncoder == nil && o.videoEncoder == nil {
		o.mu.Unlock()
		return streamerrors.New(streamerrors.KindNotConfigured, "output.Output", "StartStream", nil)
	}

	if !o.streamsAdded {
		var cfgs []media.CodecConfig
		if o.videoCfg != nil {
			cfgs = append(cfgs, *o.videoCfg)
		}
		if o.audioCfg != nil {
			cfgs = append(cfgs, *o.audioCfg)
		}
		ids, err := o.endpoint.AddStreams(cfgs)
		if err != nil {
			o.mu.Unlock()
			return err
		}
		idx := 0
		if o.videoCfg != nil {
			o.videoStreamID = ids[idx]
			idx++
		}
		if o.audioCfg != nil {
			o.audioStreamID = ids[idx]
		}
		o.streamsAdded = true
	}

	audioEncoder, videoEncoder := o.audioEncoder, o.videoEncoder
	audioPull := o.audioPullFunc
	o.mu.Unlock()

	if err := o.endpoint.StartStream(); err != nil {
		return err
	}

	if videoEncoder != nil {
		if err := videoEncoder.Start(ctx, o.videoListener(), nil); err != nil {
			return err
		}
	}
	if audioEncoder != nil {
		if err := audioEncoder.Start(ctx, o.audioListener(), audioPull); err != nil {
			return err
		}
	}

	o.isStreaming.Set(true)
	return nil
}

// PushAudioFrame feeds one raw audio frame to the audio encoder (the
// pipeline's audio pump drives this in PUSH mode, spec §4.8).
func (o *Output) PushAudioFrame(ctx context.Context, frame media.Frame) error {
	o.mu.Lock()
	enc := o.audioEncoder
	o.mu.Unlock()
	if enc == nil {
		return streamerrors.New(streamerrors.KindNotConfigured, "output.Output", "PushAudioFrame", nil)
	}
	return enc.Push(ctx, frame)
}

// PushVideoFrame feeds one raw video frame to the video encoder (the
// pipeline's compositor drives this, spec §4.8).
func (o *Output) PushVideoFrame(ctx context.Context, frame media.Frame) error {
	o.mu.Lock()
	enc := o.videoEncoder
	o.mu.Unlock()
	if enc == nil {
		return streamerrors.New(streamerrors.KindNotConfigured, "output.Output", "PushVideoFrame", nil)
	}
	return enc.Push(ctx, frame)
}

// StopStream stops the encoders, then signals the muxer trailer via
// endpoint.StopStream (spec §4.7). Idempotent: calling it while already
// stopped is a no-op.
func (o *Output) StopStream(ctx context.Context) error {
	o.mu.Lock()
	if !o.isStreaming.Get() {
		o.mu.Unlock()
		return nil
	}
	audioEncoder, videoEncoder := o.audioEncoder, o.videoEncoder
	o.mu.Unlock()

	if audioEncoder != nil {
		_ = audioEncoder.Stop(ctx)
	}
	if videoEncoder != nil {
		_ = videoEncoder.Stop(ctx)
	}

	err := o.endpoint.StopStream()
	o.isStreaming.Set(false)
	return err
}

// Release tears the output down permanently: stops the stream if running,
// releases both encoders and the endpoint.
func (o *Output) Release() error {
	_ = o.StopStream(context.Background())

	o.mu.Lock()
	audioEncoder, videoEncoder := o.audioEncoder, o.videoEncoder
	o.mu.Unlock()

	if audioEncoder != nil {
		_ = audioEncoder.Release()
	}
	if videoEncoder != nil {
		_ = videoEncoder.Release()
	}
	return o.endpoint.Release()
}

func (o *Output) audioListener() encoder.Listener {
	return func(frame media.Frame) {
		o.mu.Lock()
		id := o.audioStreamID
		o.mu.Unlock()
		if err := o.endpoint.Write(frame, id); err != nil {
			o.throwable.Set(err)
		}
	}
}

func (o *Output) videoListener() encoder.Listener {
	return func(frame media.Frame) {
		o.mu.Lock()
		id := o.videoStreamID
		o.mu.Unlock()
		if err := o.endpoint.Write(frame, id); err != nil {
			o.throwable.Set(err)
		}
	}
}
