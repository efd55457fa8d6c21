package output

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
)

// waitForFileGrowth polls path until its size exceeds floor or the
// timeout elapses, to synchronize with frames written asynchronously by
// the encoder's listener executor (mirrors internal/encoder's own
// done-channel pattern, adapted since Output does not expose its
// listeners to tests).
func waitForFileGrowth(t *testing.T, path string, floor int64, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		info, err := os.Stat(path)
		if err == nil && info.Size() > floor {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s to grow past %d bytes", path, floor)
}

func newFileOutput(t *testing.T, container media.Container) (*Output, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "out."+container.String())
	ep := endpoint.NewDynamicEndpoint(nil)
	return New(ep), path
}

func TestStartStreamFailsWithoutAnyConfiguredEncoder(t *testing.T) {
	o, path := newFileOutput(t, media.ContainerFLV)
	require.NoError(t, o.Open(context.Background(), media.MediaDescriptor{URI: path, Container: media.ContainerFLV, Sink: media.SinkFile}))
	err := o.StartStream(context.Background())
	assert.Error(t, err)
}

func TestSetAudioCodecConfigFailsWhileStreaming(t *testing.T) {
	o, path := newFileOutput(t, media.ContainerFLV)
	cfg := media.DefaultAudioCodecConfig()
	require.NoError(t, o.SetAudioCodecConfig(cfg, nil))
	require.NoError(t, o.Open(context.Background(), media.MediaDescriptor{URI: path, Container: media.ContainerFLV, Sink: media.SinkFile}))
	require.NoError(t, o.StartStream(context.Background()))
	defer o.StopStream(context.Background())

	err := o.SetAudioCodecConfig(cfg, nil)
	assert.Error(t, err)
}

func TestSetAudioCodecConfigRejectsIncompatibleReference(t *testing.T) {
	o, _ := newFileOutput(t, media.ContainerFLV)
	reference := media.DefaultAudioCodecConfig()
	incompatible := reference
	incompatible.SampleRate = 48000

	err := o.SetAudioCodecConfig(incompatible, &reference)
	assert.Error(t, err)
}

func TestStartStreamAssignsStreamIDsAndWritesFrames(t *testing.T) {
	o, path := newFileOutput(t, media.ContainerFLV)
	audioCfg := media.DefaultAudioCodecConfig()
	videoCfg := media.DefaultVideoCodecConfig()
	require.NoError(t, o.SetAudioCodecConfig(audioCfg, nil))
	require.NoError(t, o.SetVideoCodecConfig(videoCfg, nil))

	require.NoError(t, o.Open(context.Background(), media.MediaDescriptor{URI: path, Container: media.ContainerFLV, Sink: media.SinkFile}))
	require.NoError(t, o.StartStream(context.Background()))
	assert.True(t, o.IsStreaming().Get())

	_, hasAudio := o.AudioStreamID()
	_, hasVideo := o.VideoStreamID()
	assert.True(t, hasAudio)
	assert.True(t, hasVideo)

	preWriteInfo, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, o.PushVideoFrame(context.Background(), media.Frame{Payload: []byte{0, 0, 0, 1, 0x65, 1, 2, 3}, KeyFrame: true}))
	require.NoError(t, o.PushAudioFrame(context.Background(), media.Frame{Payload: []byte{1, 2, 3, 4}}))
	waitForFileGrowth(t, path, preWriteInfo.Size(), time.Second)

	require.NoError(t, o.StopStream(context.Background()))
	assert.False(t, o.IsStreaming().Get())
	require.NoError(t, o.Close(context.Background()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestStopStreamIsIdempotent(t *testing.T) {
	o, path := newFileOutput(t, media.ContainerFLV)
	require.NoError(t, o.SetAudioCodecConfig(media.DefaultAudioCodecConfig(), nil))
	require.NoError(t, o.Open(context.Background(), media.MediaDescriptor{URI: path, Container: media.ContainerFLV, Sink: media.SinkFile}))

	require.NoError(t, o.StopStream(context.Background()))
	require.NoError(t, o.StartStream(context.Background()))
	require.NoError(t, o.StopStream(context.Background()))
	require.NoError(t, o.StopStream(context.Background()))
}
