package media

import "time"

// AudioCodecConfig is an immutable set of encoder parameters for one audio
// stream session (spec §3).
type AudioCodecConfig struct {
	Codec         AudioCodec
	StartBitrate  int // bps
	SampleRate    int // Hz
	Channels      ChannelLayout
	Format        SampleFormat
	Profile       string
}

// CompatibleSource reports whether two audio codec configs can share one
// capture source: sample-rate, channel layout and byte-format must match.
// Bitrate, codec and profile may differ per output.
func (c AudioCodecConfig) CompatibleSource(o AudioCodecConfig) bool {
	return c.SampleRate == o.SampleRate && c.Channels == o.Channels && c.Format == o.Format
}

// SourceConfig derives the capture-side constraint implied by this config.
func (c AudioCodecConfig) SourceConfig() AudioSourceConfig {
	return AudioSourceConfig{SampleRate: c.SampleRate, Channels: c.Channels, Format: c.Format}
}

// VideoCodecConfig is an immutable set of encoder parameters for one video
// stream session (spec §3).
type VideoCodecConfig struct {
	Codec        VideoCodec
	StartBitrate int // bps
	Width        int
	Height       int
	FPS          int
	Profile      string
	Level        string
	GOPDuration  time.Duration
	DynamicRange DynamicRange
}

// CompatibleSource reports whether two video codec configs can share one
// capture source: fps and dynamic range must match. Resolution does not
// need to match — the pipeline takes the max and each output downscales.
func (c VideoCodecConfig) CompatibleSource(o VideoCodecConfig) bool {
	return c.FPS == o.FPS && c.DynamicRange == o.DynamicRange
}

// SourceConfig derives the capture-side constraint implied by this config.
func (c VideoCodecConfig) SourceConfig() VideoSourceConfig {
	return VideoSourceConfig{Width: c.Width, Height: c.Height, FPS: c.FPS, DynamicRange: c.DynamicRange}
}

// DefaultVideoCodecConfig returns the documented default: 1280x720 30fps
// 2Mbps AVC (spec §9 "Builder patterns").
func DefaultVideoCodecConfig() VideoCodecConfig {
	return VideoCodecConfig{
		Codec:        VideoAVC,
		StartBitrate: 2_000_000,
		Width:        1280,
		Height:       720,
		FPS:          30,
		GOPDuration:  2 * time.Second,
		DynamicRange: RangeSDR,
	}
}

// DefaultAudioCodecConfig returns a sensible AAC stereo default.
func DefaultAudioCodecConfig() AudioCodecConfig {
	return AudioCodecConfig{
		Codec:        AudioAAC,
		StartBitrate: 128_000,
		SampleRate:   44100,
		Channels:     ChannelStereo,
		Format:       SampleFormatS16,
	}
}

// AudioSourceConfig is the capture-side subset of an AudioCodecConfig
// (spec §3 "SourceConfig").
type AudioSourceConfig struct {
	SampleRate int
	Channels   ChannelLayout
	Format     SampleFormat
}

// VideoSourceConfig is the capture-side subset of a VideoCodecConfig.
type VideoSourceConfig struct {
	Width        int
	Height       int
	FPS          int
	DynamicRange DynamicRange
}

// UnionVideoSourceConfig folds the per-output video configs required by a
// pipeline into the single source config that must feed all of them:
// resolution is the max over both dimensions, fps and dynamic-range must
// already agree (caller has verified compatibility before calling this).
func UnionVideoSourceConfig(configs []VideoCodecConfig) VideoSourceConfig {
	var u VideoSourceConfig
	for i, c := range configs {
		if i == 0 {
			u = c.SourceConfig()
			continue
		}
		if c.Width > u.Width {
			u.Width = c.Width
		}
		if c.Height > u.Height {
			u.Height = c.Height
		}
	}
	return u
}
