package endpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThibaultBee/streampack/internal/media"
)

func TestCompositeEndpointWiresMuxerOutputToSink(t *testing.T) {
	dir := t.TempDir()
	ep := NewDynamicEndpoint(nil)

	d := media.MediaDescriptor{URI: filepath.Join(dir, "out.flv"), Container: media.ContainerFLV, Sink: media.SinkFile}
	require.NoError(t, ep.Open(context.Background(), d))

	_, err := ep.AddStream(media.VideoCodecConfig{Codec: media.VideoAVC, Width: 640, Height: 480, FPS: 30})
	require.NoError(t, err)
	require.NoError(t, ep.StartStream())
	require.NoError(t, ep.StopStream())
	require.NoError(t, ep.Close(context.Background()))
}

func TestDynamicEndpointOpenIsIdempotentWhileOpen(t *testing.T) {
	dir := t.TempDir()
	ep := NewDynamicEndpoint(nil)
	d := media.MediaDescriptor{URI: filepath.Join(dir, "a.flv"), Container: media.ContainerFLV, Sink: media.SinkFile}

	require.NoError(t, ep.Open(context.Background(), d))
	require.NoError(t, ep.Open(context.Background(), d), "second Open while already open must be a no-op, not an error")
	require.NoError(t, ep.Close(context.Background()))
}

func TestDynamicEndpointPlatformMuxedContainerIsUnsupportedStub(t *testing.T) {
	ep := NewDynamicEndpoint(nil)
	d := media.MediaDescriptor{URI: "/tmp/out.mp4", Container: media.ContainerMP4, Sink: media.SinkFile}
	err := ep.Open(context.Background(), d)
	assert.Error(t, err)
}

func TestDynamicEndpointWriteBeforeOpenFails(t *testing.T) {
	ep := NewDynamicEndpoint(nil)
	err := ep.Write(media.Frame{}, 0)
	assert.Error(t, err)
}

func TestDynamicEndpointReusesBuiltEndpointForSameKey(t *testing.T) {
	dir := t.TempDir()
	ep := NewDynamicEndpoint(nil)
	d1 := media.MediaDescriptor{URI: filepath.Join(dir, "a.ts"), Container: media.ContainerTS, Sink: media.SinkFile}

	require.NoError(t, ep.Open(context.Background(), d1))
	require.NoError(t, ep.Close(context.Background()))
	assert.Len(t, ep.endpoints, 1)

	d2 := media.MediaDescriptor{URI: filepath.Join(dir, "b.ts"), Container: media.ContainerTS, Sink: media.SinkFile}
	require.NoError(t, ep.Open(context.Background(), d2))
	assert.Len(t, ep.endpoints, 1, "same {sink-kind,container} key reuses the built endpoint")
}
