// Package config provides configuration management for streampackd using
// Viper. It supports configuration from files, environment variables, and
// defaults. Only cmd/streampackd depends on this package — the core
// pipeline/output/encoder/source packages all take explicit struct
// arguments instead, so they stay usable as a library independent of any
// file format.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/mux/mpegts"
)

// Default configuration values.
const (
	defaultAudioBitrate  = 128_000
	defaultAudioSampleHz = 44100
	defaultVideoBitrate  = 2_000_000
	defaultVideoWidth    = 1280
	defaultVideoHeight   = 720
	defaultVideoFPS      = 30
	defaultGOPDuration   = 2 * time.Second
	defaultTSRetransmit  = 100 * time.Millisecond
)

// Config holds all configuration for streampackd.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Muxer    MuxerConfig    `mapstructure:"muxer"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// PipelineConfig holds the streaming pipeline's configuration (spec
// §4.8's `{with_audio, with_video, audio_output_mode}`), plus the default
// codec parameters a newly configured output starts from.
type PipelineConfig struct {
	WithAudio       bool             `mapstructure:"with_audio"`
	WithVideo       bool             `mapstructure:"with_video"`
	AudioOutputMode string           `mapstructure:"audio_output_mode"` // push, pull
	AudioCodec      AudioCodecConfig `mapstructure:"audio_codec"`
	VideoCodec      VideoCodecConfig `mapstructure:"video_codec"`
}

// AudioCodecConfig mirrors media.AudioCodecConfig's fields in a
// mapstructure-friendly, Viper-loadable shape.
type AudioCodecConfig struct {
	Codec        string `mapstructure:"codec"` // aac, opus
	StartBitrate int    `mapstructure:"start_bitrate"`
	SampleRate   int    `mapstructure:"sample_rate"`
	Channels     string `mapstructure:"channels"` // mono, stereo
	Format       string `mapstructure:"format"`   // u8, s16, float32
}

// ToMedia converts to the core media.AudioCodecConfig type.
func (c AudioCodecConfig) ToMedia() media.AudioCodecConfig {
	return media.AudioCodecConfig{
		Codec:        media.AudioCodec(c.Codec),
		StartBitrate: c.StartBitrate,
		SampleRate:   c.SampleRate,
		Channels:     media.ChannelLayout(c.Channels),
		Format:       media.SampleFormat(c.Format),
	}
}

// VideoCodecConfig mirrors media.VideoCodecConfig's fields.
type VideoCodecConfig struct {
	Codec        string        `mapstructure:"codec"` // avc, hevc, vp9, av1
	StartBitrate int           `mapstructure:"start_bitrate"`
	Width        int           `mapstructure:"width"`
	Height       int           `mapstructure:"height"`
	FPS          int           `mapstructure:"fps"`
	Profile      string        `mapstructure:"profile"`
	Level        string        `mapstructure:"level"`
	GOPDuration  time.Duration `mapstructure:"gop_duration"`
	DynamicRange string        `mapstructure:"dynamic_range"` // sdr, hlg, hdr10
}

// ToMedia converts to the core media.VideoCodecConfig type.
func (c VideoCodecConfig) ToMedia() media.VideoCodecConfig {
	dr := media.DynamicRange(c.DynamicRange)
	if dr == "" {
		dr = media.RangeSDR
	}
	return media.VideoCodecConfig{
		Codec:        media.VideoCodec(c.Codec),
		StartBitrate: c.StartBitrate,
		Width:        c.Width,
		Height:       c.Height,
		FPS:          c.FPS,
		Profile:      c.Profile,
		Level:        c.Level,
		GOPDuration:  c.GOPDuration,
		DynamicRange: dr,
	}
}

// MuxerConfig holds MPEG-TS muxer parameters (spec §4.3.2).
type MuxerConfig struct {
	RetransmitPeriod time.Duration `mapstructure:"retransmit_period"` // PAT/PMT/SDT re-emit interval
	ServiceName      string        `mapstructure:"service_name"`
	ProviderName     string        `mapstructure:"provider_name"`
}

// ToMPEGTS converts to internal/mux/mpegts.Config.
func (c MuxerConfig) ToMPEGTS() mpegts.Config {
	return mpegts.Config{
		RetransmitPeriodUS: c.RetransmitPeriod.Microseconds(),
		Service: media.TSServiceDescriptor{
			TransportStreamID: 1,
			OriginalNetworkID: 1,
			ServiceID:         1,
			ServiceName:       c.ServiceName,
			ProviderName:      c.ProviderName,
		},
	}
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration and are
// prefixed with STREAMPACKD_, using underscores for nesting (e.g.
// STREAMPACKD_PIPELINE_WITH_AUDIO=true).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/streampackd")
		v.AddConfigPath("$HOME/.streampackd")
	}

	v.SetEnvPrefix("STREAMPACKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// Must be called before reading the config file so file/env values can
// override them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("pipeline.with_audio", true)
	v.SetDefault("pipeline.with_video", true)
	v.SetDefault("pipeline.audio_output_mode", "push")
	v.SetDefault("pipeline.audio_codec.codec", string(media.AudioAAC))
	v.SetDefault("pipeline.audio_codec.start_bitrate", defaultAudioBitrate)
	v.SetDefault("pipeline.audio_codec.sample_rate", defaultAudioSampleHz)
	v.SetDefault("pipeline.audio_codec.channels", string(media.ChannelStereo))
	v.SetDefault("pipeline.audio_codec.format", string(media.SampleFormatS16))
	v.SetDefault("pipeline.video_codec.codec", string(media.VideoAVC))
	v.SetDefault("pipeline.video_codec.start_bitrate", defaultVideoBitrate)
	v.SetDefault("pipeline.video_codec.width", defaultVideoWidth)
	v.SetDefault("pipeline.video_codec.height", defaultVideoHeight)
	v.SetDefault("pipeline.video_codec.fps", defaultVideoFPS)
	v.SetDefault("pipeline.video_codec.gop_duration", defaultGOPDuration)
	v.SetDefault("pipeline.video_codec.dynamic_range", string(media.RangeSDR))

	v.SetDefault("muxer.retransmit_period", defaultTSRetransmit)
	v.SetDefault("muxer.service_name", "streampack")
	v.SetDefault("muxer.provider_name", "streampack")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	validModes := map[string]bool{"push": true, "pull": true}
	if !validModes[c.Pipeline.AudioOutputMode] {
		return fmt.Errorf("pipeline.audio_output_mode must be one of: push, pull")
	}
	if !c.Pipeline.WithAudio && !c.Pipeline.WithVideo {
		return fmt.Errorf("pipeline.with_audio and pipeline.with_video cannot both be false")
	}

	return nil
}
