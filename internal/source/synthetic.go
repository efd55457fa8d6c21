package source

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

type lifecycle int

const (
	lifecycleIdle lifecycle = iota
	lifecycleConfigured
	lifecycleStreaming
	lifecycleReleased
)

// SyntheticAudioSource is a FrameSource that generates a sine-wave tone.
// It stands in for a real microphone capture device (out of scope per
// spec §1) so cmd/streampackd and this package's tests can exercise the
// pipeline end to end without OS-level audio APIs.
type SyntheticAudioSource struct {
	baseState

	mu        sync.Mutex
	state     lifecycle
	cfg       media.AudioSourceConfig
	startedAt time.Time
	samples   int64
	toneHz    float64
}

// NewSyntheticAudioSource returns an idle synthetic audio source producing
// a toneHz sine wave once configured and started.
func NewSyntheticAudioSource(toneHz float64) *SyntheticAudioSource {
	return &SyntheticAudioSource{baseState: newBaseState(), toneHz: toneHz}
}

func (s *SyntheticAudioSource) Kind() Kind { return KindFrame }

func (s *SyntheticAudioSource) Configure(cfg media.AudioSourceConfig, _ media.VideoSourceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == lifecycleStreaming {
		return streamerrors.New(streamerrors.KindInvalidState, "source.SyntheticAudioSource", "Configure", nil)
	}
	if s.state == lifecycleReleased {
		return streamerrors.New(streamerrors.KindInvalidState, "source.SyntheticAudioSource", "Configure", nil)
	}
	s.cfg = cfg
	s.state = lifecycleConfigured
	return nil
}

func (s *SyntheticAudioSource) StartStream(_ context.Context) error {
	s.mu.Lock()
	if s.state != lifecycleConfigured {
		s.mu.Unlock()
		return streamerrors.New(streamerrors.KindInvalidState, "source.SyntheticAudioSource", "StartStream", nil)
	}
	s.state = lifecycleStreaming
	s.startedAt = time.Now()
	s.samples = 0
	s.mu.Unlock()
	s.streaming.Set(true)
	return nil
}

func (s *SyntheticAudioSource) StopStream(_ context.Context) error {
	s.mu.Lock()
	if s.state == lifecycleStreaming {
		s.state = lifecycleConfigured
	}
	s.mu.Unlock()
	s.streaming.Set(false)
	return nil
}

func (s *SyntheticAudioSource) Release(_ context.Context) error {
	s.mu.Lock()
	s.state = lifecycleReleased
	s.mu.Unlock()
	s.streaming.Set(false)
	return nil
}

// ReadFrame blocks for the duration of one sample buffer's worth of audio
// at the configured sample rate, then fills buf with a sine wave.
func (s *SyntheticAudioSource) ReadFrame(ctx context.Context, buf []byte) (media.Frame, error) {
	s.mu.Lock()
	if s.state != lifecycleStreaming {
		s.mu.Unlock()
		return media.Frame{}, errNotConfigured
	}
	cfg := s.cfg
	sampleIdx := s.samples
	bytesPerSample := 2 * cfg.Channels.ChannelCount()
	frameSamples := len(buf) / bytesPerSample
	s.samples += int64(frameSamples)
	s.mu.Unlock()

	sampleDuration := time.Second / time.Duration(cfg.SampleRate)
	wait := sampleDuration * time.Duration(frameSamples)
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return media.Frame{}, streamerrors.New(streamerrors.KindCancelled, "source.SyntheticAudioSource", "ReadFrame", ctx.Err())
	}

	writeSineWave(buf, sampleIdx, cfg.SampleRate, cfg.Channels.ChannelCount(), s.toneHz)

	pts := sampleIdx * 1_000_000 / int64(cfg.SampleRate)
	return media.Frame{
		Payload: buf,
		PTS:     pts,
		Format: &media.FormatDescriptor{
			MimeType:   "audio/pcm",
			SampleRate: cfg.SampleRate,
			Channels:   cfg.Channels,
		},
	}, nil
}

func writeSineWave(buf []byte, startSample int64, sampleRate, channels int, toneHz float64) {
	frameSamples := len(buf) / (2 * channels)
	for i := 0; i < frameSamples; i++ {
		t := float64(startSample+int64(i)) / float64(sampleRate)
		v := int16(math.Sin(2*math.Pi*toneHz*t) * 0.2 * float64(math.MaxInt16))
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 2
			buf[off] = byte(v)
			buf[off+1] = byte(v >> 8)
		}
	}
}

// SyntheticVideoSource is a FrameSource that generates solid-color raw
// video frames at a fixed cadence, standing in for a camera/screen-capture
// device the same way SyntheticAudioSource stands in for a microphone.
type SyntheticVideoSource struct {
	baseState

	mu      sync.Mutex
	state   lifecycle
	cfg     media.VideoSourceConfig
	frameNo int64
	color   byte
}

// NewSyntheticVideoSource returns an idle synthetic video source; color
// is the luma value (Y plane) every generated frame is filled with.
func NewSyntheticVideoSource(color byte) *SyntheticVideoSource {
	return &SyntheticVideoSource{baseState: newBaseState(), color: color}
}

func (s *SyntheticVideoSource) Kind() Kind { return KindFrame }

func (s *SyntheticVideoSource) Configure(_ media.AudioSourceConfig, vcfg media.VideoSourceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == lifecycleStreaming || s.state == lifecycleReleased {
		return streamerrors.New(streamerrors.KindInvalidState, "source.SyntheticVideoSource", "Configure", nil)
	}
	s.cfg = vcfg
	s.state = lifecycleConfigured
	return nil
}

func (s *SyntheticVideoSource) StartStream(_ context.Context) error {
	s.mu.Lock()
	if s.state != lifecycleConfigured {
		s.mu.Unlock()
		return streamerrors.New(streamerrors.KindInvalidState, "source.SyntheticVideoSource", "StartStream", nil)
	}
	s.state = lifecycleStreaming
	s.frameNo = 0
	s.mu.Unlock()
	s.streaming.Set(true)
	return nil
}

func (s *SyntheticVideoSource) StopStream(_ context.Context) error {
	s.mu.Lock()
	if s.state == lifecycleStreaming {
		s.state = lifecycleConfigured
	}
	s.mu.Unlock()
	s.streaming.Set(false)
	return nil
}

func (s *SyntheticVideoSource) Release(_ context.Context) error {
	s.mu.Lock()
	s.state = lifecycleReleased
	s.mu.Unlock()
	s.streaming.Set(false)
	return nil
}

func (s *SyntheticVideoSource) ReadFrame(ctx context.Context, buf []byte) (media.Frame, error) {
	s.mu.Lock()
	if s.state != lifecycleStreaming {
		s.mu.Unlock()
		return media.Frame{}, errNotConfigured
	}
	cfg := s.cfg
	n := s.frameNo
	s.frameNo++
	s.mu.Unlock()

	frameDuration := time.Second / time.Duration(cfg.FPS)
	select {
	case <-time.After(frameDuration):
	case <-ctx.Done():
		return media.Frame{}, streamerrors.New(streamerrors.KindCancelled, "source.SyntheticVideoSource", "ReadFrame", ctx.Err())
	}

	ySize := cfg.Width * cfg.Height
	for i := 0; i < ySize && i < len(buf); i++ {
		buf[i] = s.color
	}

	return media.Frame{
		Payload:  buf,
		PTS:      n * 1_000_000 / int64(cfg.FPS),
		KeyFrame: n%int64(cfg.FPS*2) == 0, // one keyframe every 2 seconds
		Format: &media.FormatDescriptor{
			MimeType: "video/raw",
			Width:    cfg.Width,
			Height:   cfg.Height,
		},
	}, nil
}
