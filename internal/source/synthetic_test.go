package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThibaultBee/streampack/internal/media"
)

func TestSyntheticAudioSourceLifecycle(t *testing.T) {
	s := NewSyntheticAudioSource(440)
	ctx := context.Background()

	_, err := s.ReadFrame(ctx, make([]byte, 64))
	assert.Error(t, err, "read before configure must fail")

	require.NoError(t, s.Configure(media.AudioSourceConfig{SampleRate: 48000, Channels: media.ChannelStereo, Format: media.SampleFormatS16}, media.VideoSourceConfig{}))
	assert.False(t, s.IsStreaming().Get())

	require.NoError(t, s.StartStream(ctx))
	assert.True(t, s.IsStreaming().Get())

	buf := make([]byte, 48000/100*2*2) // 10ms of stereo s16
	start := time.Now()
	frame, err := s.ReadFrame(ctx, buf)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 8*time.Millisecond)
	assert.Equal(t, int64(0), frame.PTS)
	assert.False(t, frame.KeyFrame)

	frame2, err := s.ReadFrame(ctx, buf)
	require.NoError(t, err)
	assert.Greater(t, frame2.PTS, frame.PTS)

	require.NoError(t, s.StopStream(ctx))
	assert.False(t, s.IsStreaming().Get())

	require.NoError(t, s.Release(ctx))
	assert.Error(t, s.Configure(media.AudioSourceConfig{}, media.VideoSourceConfig{}), "configure after release must fail")
}

func TestSyntheticVideoSourceKeyframeCadence(t *testing.T) {
	s := NewSyntheticVideoSource(0x80)
	ctx := context.Background()

	require.NoError(t, s.Configure(media.AudioSourceConfig{}, media.VideoSourceConfig{Width: 16, Height: 16, FPS: 1000}))
	require.NoError(t, s.StartStream(ctx))

	buf := make([]byte, 16*16)
	first, err := s.ReadFrame(ctx, buf)
	require.NoError(t, err)
	assert.True(t, first.KeyFrame, "frame 0 must be a keyframe")
	assert.Equal(t, byte(0x80), first.Payload[0])

	second, err := s.ReadFrame(ctx, buf)
	require.NoError(t, err)
	assert.False(t, second.KeyFrame)
}

func TestSyntheticAudioFactoryDescribes(t *testing.T) {
	a := SyntheticAudioFactory{ToneHz: 440}
	b := SyntheticAudioFactory{ToneHz: 440}
	c := SyntheticAudioFactory{ToneHz: 880}

	assert.True(t, a.Describes(b))
	assert.False(t, a.Describes(c))
}
