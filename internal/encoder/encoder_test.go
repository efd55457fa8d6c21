package encoder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThibaultBee/streampack/internal/media"
)

func TestEncoderEmitsConfigFrameOnceThenSamples(t *testing.T) {
	e := NewVideoEncoder(NewPassthroughVideoCodec())
	require.NoError(t, e.ConfigureVideo(media.DefaultVideoCodecConfig()))

	var got []media.Frame
	done := make(chan struct{})
	listener := func(f media.Frame) {
		got = append(got, f)
		if len(got) == 4 {
			close(done)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, e.Start(ctx, listener, nil))
	for i := 0; i < 3; i++ {
		require.NoError(t, e.Push(ctx, media.Frame{PTS: int64(i), KeyFrame: i == 0}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frames")
	}

	require.NoError(t, e.Stop(context.Background()))

	require.Len(t, got, 4)
	assert.True(t, got[0].CodecConfig, "first frame must be the codec-config frame")
	assert.False(t, got[1].CodecConfig)
	assert.False(t, got[2].CodecConfig)

	configCount := 0
	for _, f := range got {
		if f.CodecConfig {
			configCount++
		}
	}
	assert.Equal(t, 1, configCount, "codec-config frame must appear exactly once per session")
}

func TestEncoderInvalidStateTransitions(t *testing.T) {
	e := NewAudioEncoder(NewPassthroughAudioCodec())

	err := e.Start(context.Background(), func(media.Frame) {}, nil)
	assert.Error(t, err, "Start before Configure must fail")

	require.NoError(t, e.ConfigureAudio(media.DefaultAudioCodecConfig()))
	assert.Equal(t, StateConfigured, e.State())

	err = e.Stop(context.Background())
	assert.Error(t, err, "Stop before Start must fail")
}

func TestEncoderAudioBitrateImmutable(t *testing.T) {
	e := NewAudioEncoder(NewPassthroughAudioCodec())
	require.NoError(t, e.ConfigureAudio(media.DefaultAudioCodecConfig()))
	assert.Error(t, e.SetBitrate(64000))
}

func TestEncoderVideoBitrateLive(t *testing.T) {
	e := NewVideoEncoder(NewPassthroughVideoCodec())
	require.NoError(t, e.ConfigureVideo(media.DefaultVideoCodecConfig()))
	assert.NoError(t, e.SetBitrate(4_000_000))
}
