package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThibaultBee/streampack/internal/media"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.True(t, cfg.Pipeline.WithAudio)
	assert.True(t, cfg.Pipeline.WithVideo)
	assert.Equal(t, "push", cfg.Pipeline.AudioOutputMode)

	assert.Equal(t, string(media.AudioAAC), cfg.Pipeline.AudioCodec.Codec)
	assert.Equal(t, defaultAudioSampleHz, cfg.Pipeline.AudioCodec.SampleRate)

	assert.Equal(t, string(media.VideoAVC), cfg.Pipeline.VideoCodec.Codec)
	assert.Equal(t, defaultVideoWidth, cfg.Pipeline.VideoCodec.Width)
	assert.Equal(t, defaultVideoHeight, cfg.Pipeline.VideoCodec.Height)

	assert.Equal(t, "streampack", cfg.Muxer.ServiceName)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
pipeline:
  with_audio: true
  with_video: false
  audio_codec:
    sample_rate: 48000
    channels: mono

muxer:
  service_name: "my-stream"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.True(t, cfg.Pipeline.WithAudio)
	assert.False(t, cfg.Pipeline.WithVideo)
	assert.Equal(t, 48000, cfg.Pipeline.AudioCodec.SampleRate)
	assert.Equal(t, "mono", cfg.Pipeline.AudioCodec.Channels)
	assert.Equal(t, "my-stream", cfg.Muxer.ServiceName)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STREAMPACKD_LOGGING_LEVEL", "warn")
	t.Setenv("STREAMPACKD_PIPELINE_WITH_VIDEO", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Pipeline.WithVideo)
}

func TestValidateRejectsBothSourcesDisabled(t *testing.T) {
	cfg := &Config{
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Pipeline: PipelineConfig{WithAudio: false, WithVideo: false, AudioOutputMode: "push"},
	}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsUnknownAudioOutputMode(t *testing.T) {
	cfg := &Config{
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Pipeline: PipelineConfig{WithAudio: true, AudioOutputMode: "sideways"},
	}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "audio_output_mode")
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := &Config{
		Logging:  LoggingConfig{Level: "verbose", Format: "json"},
		Pipeline: PipelineConfig{WithAudio: true, AudioOutputMode: "push"},
	}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := &Config{
		Logging:  LoggingConfig{Level: "info", Format: "xml"},
		Pipeline: PipelineConfig{WithAudio: true, AudioOutputMode: "push"},
	}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestLoadInvalidConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidContent := `
pipeline:
  with_audio: "not a bool"
  invalid yaml structure
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidContent), 0o600))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestAudioCodecConfigToMedia(t *testing.T) {
	c := AudioCodecConfig{
		Codec:        "opus",
		StartBitrate: 96_000,
		SampleRate:   48000,
		Channels:     "stereo",
		Format:       "float32",
	}
	m := c.ToMedia()
	assert.Equal(t, media.AudioOpus, m.Codec)
	assert.Equal(t, 48000, m.SampleRate)
	assert.Equal(t, media.ChannelStereo, m.Channels)
	assert.Equal(t, media.SampleFormatFloat32, m.Format)
}

func TestVideoCodecConfigToMedia(t *testing.T) {
	c := VideoCodecConfig{
		Codec:  "hevc",
		Width:  1920,
		Height: 1080,
		FPS:    60,
	}
	m := c.ToMedia()
	assert.Equal(t, media.VideoHEVC, m.Codec)
	assert.Equal(t, 1920, m.Width)
	assert.Equal(t, media.RangeSDR, m.DynamicRange, "empty dynamic range defaults to SDR")
}

func TestMuxerConfigToMPEGTS(t *testing.T) {
	c := MuxerConfig{
		RetransmitPeriod: 250 * time.Millisecond,
		ServiceName:      "test-service",
		ProviderName:     "test-provider",
	}
	mpegtsCfg := c.ToMPEGTS()
	assert.Equal(t, int64(250_000), mpegtsCfg.RetransmitPeriodUS)
	assert.Equal(t, "test-service", mpegtsCfg.Service.ServiceName)
	assert.Equal(t, "test-provider", mpegtsCfg.Service.ProviderName)
}
