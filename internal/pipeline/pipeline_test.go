package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThibaultBee/streampack/internal/endpoint"
	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/source"
)

func newFileEndpoint(t *testing.T) (endpoint.Endpoint, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.flv")
	return endpoint.NewDynamicEndpoint(nil), path
}

func openOutput(t *testing.T, ctx context.Context, out interface {
	Open(context.Context, media.MediaDescriptor) error
}, path string) {
	t.Helper()
	require.NoError(t, out.Open(ctx, media.MediaDescriptor{URI: path, Container: media.ContainerFLV, Sink: media.SinkFile}))
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}

// TestStartStreamFailsWithNoOutput covers scenario S5: starting a
// pipeline with no registered output fails with NoOutput, and no source
// is started.
func TestStartStreamFailsWithNoOutput(t *testing.T) {
	p := New(Config{WithAudio: true, WithVideo: true})
	require.NoError(t, p.SetAudioSource(context.Background(), source.SyntheticAudioFactory{ToneHz: 440}))

	err := p.StartStream(context.Background())
	assert.Error(t, err)
	assert.False(t, p.IsStreaming().Get())
}

// TestPipelineIsStreamingReflectsAnyOutput covers invariant 2:
// pipeline.is_streaming is true iff at least one output is streaming.
func TestPipelineIsStreamingReflectsAnyOutput(t *testing.T) {
	ctx := context.Background()
	p := New(Config{WithAudio: true, WithVideo: true})

	ep1, path1 := newFileEndpoint(t)
	out1 := p.AddOutput(ctx, ep1)
	require.NoError(t, p.SetOutputAudioCodecConfig(ctx, out1, media.DefaultAudioCodecConfig()))
	require.NoError(t, p.SetOutputVideoCodecConfig(ctx, out1, media.DefaultVideoCodecConfig()))
	openOutput(t, ctx, out1, path1)

	ep2, path2 := newFileEndpoint(t)
	out2 := p.AddOutput(ctx, ep2)
	require.NoError(t, p.SetOutputAudioCodecConfig(ctx, out2, media.DefaultAudioCodecConfig()))
	require.NoError(t, p.SetOutputVideoCodecConfig(ctx, out2, media.DefaultVideoCodecConfig()))
	openOutput(t, ctx, out2, path2)

	require.NoError(t, p.SetAudioSource(ctx, source.SyntheticAudioFactory{ToneHz: 440}))
	require.NoError(t, p.SetVideoSource(ctx, source.SyntheticVideoFactory{Color: 10}))

	assert.False(t, p.IsStreaming().Get())

	require.NoError(t, out1.StartStream(ctx))
	eventually(t, time.Second, p.IsStreaming().Get)

	require.NoError(t, out1.StopStream(ctx))
	eventually(t, time.Second, func() bool { return !p.IsStreaming().Get() })
}

// TestRemovingOnlyStreamingOutputStopsPipeline covers invariant 13.
func TestRemovingOnlyStreamingOutputStopsPipeline(t *testing.T) {
	ctx := context.Background()
	p := New(Config{WithAudio: true})

	ep, path := newFileEndpoint(t)
	out := p.AddOutput(ctx, ep)
	require.NoError(t, p.SetOutputAudioCodecConfig(ctx, out, media.DefaultAudioCodecConfig()))
	openOutput(t, ctx, out, path)
	require.NoError(t, p.SetAudioSource(ctx, source.SyntheticAudioFactory{ToneHz: 440}))

	require.NoError(t, p.StartStream(ctx))
	eventually(t, time.Second, p.IsStreaming().Get)

	require.NoError(t, p.RemoveOutput(ctx, out))
	eventually(t, time.Second, func() bool { return !p.IsStreaming().Get() })
}

// TestSetOutputAudioCodecConfigRejectsIncompatibleAcrossOutputs covers
// invariant 8 and scenario S3 (dual-output audio compatibility): pinning
// an incompatible audio config against an existing sibling fails with
// IncompatibleConfig, and the rejected output is left unconfigured.
func TestSetOutputAudioCodecConfigRejectsIncompatibleAcrossOutputs(t *testing.T) {
	ctx := context.Background()
	p := New(Config{WithAudio: true})

	ep1, _ := newFileEndpoint(t)
	out1 := p.AddOutput(ctx, ep1)
	require.NoError(t, p.SetOutputAudioCodecConfig(ctx, out1, media.DefaultAudioCodecConfig()))

	ep2, _ := newFileEndpoint(t)
	out2 := p.AddOutput(ctx, ep2)

	incompatible := media.DefaultAudioCodecConfig()
	incompatible.SampleRate = 48000
	err := p.SetOutputAudioCodecConfig(ctx, out2, incompatible)
	assert.Error(t, err)

	_, ok := out2.AudioCodecConfig()
	assert.False(t, ok, "rejected config must leave the output unconfigured")

	compatible := media.DefaultAudioCodecConfig()
	compatible.StartBitrate = 96_000
	require.NoError(t, p.SetOutputAudioCodecConfig(ctx, out2, compatible))
}

// TestOutputAsyncStartDrivesPipelineSources covers scenario S6: an output
// started directly (not via Pipeline.StartStream) still drives the
// pipeline to observe is_streaming and start its sources, within a short
// bound.
func TestOutputAsyncStartDrivesPipelineSources(t *testing.T) {
	ctx := context.Background()
	p := New(Config{WithAudio: true})

	ep, path := newFileEndpoint(t)
	out := p.AddOutput(ctx, ep)
	require.NoError(t, p.SetOutputAudioCodecConfig(ctx, out, media.DefaultAudioCodecConfig()))
	openOutput(t, ctx, out, path)
	require.NoError(t, p.SetAudioSource(ctx, source.SyntheticAudioFactory{ToneHz: 440}))

	require.NoError(t, out.StartStream(ctx))

	eventually(t, 50*time.Millisecond, p.IsStreaming().Get)

	info, err := os.Stat(path)
	require.NoError(t, err)
	eventually(t, time.Second, func() bool {
		i, err := os.Stat(path)
		return err == nil && i.Size() > info.Size()
	})

	require.NoError(t, out.StopStream(ctx))
}

// TestHotSwapVideoSourceWhileStreaming covers scenario S4: swapping the
// video source mid-stream succeeds without tearing the stream down, and
// the old source is released.
func TestHotSwapVideoSourceWhileStreaming(t *testing.T) {
	ctx := context.Background()
	p := New(Config{WithVideo: true})

	ep, path := newFileEndpoint(t)
	out := p.AddOutput(ctx, ep)
	require.NoError(t, p.SetOutputVideoCodecConfig(ctx, out, media.DefaultVideoCodecConfig()))
	openOutput(t, ctx, out, path)
	require.NoError(t, p.SetVideoSource(ctx, source.SyntheticVideoFactory{Color: 1}))

	require.NoError(t, p.StartStream(ctx))
	eventually(t, time.Second, p.IsStreaming().Get)

	require.NoError(t, p.SetVideoSource(ctx, source.SyntheticVideoFactory{Color: 2}))
	assert.True(t, p.IsStreaming().Get(), "hot-swap must not drop the stream")

	// Swapping to an equivalent factory is a no-op (idempotency rule).
	require.NoError(t, p.SetVideoSource(ctx, source.SyntheticVideoFactory{Color: 2}))

	p.StopStream(ctx)
}
