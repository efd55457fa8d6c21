package flv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThibaultBee/streampack/internal/media"
)

func TestFileHeaderBitExact(t *testing.T) {
	h := fileHeader(true, true)
	assert.Equal(t, []byte{'F', 'L', 'V', 0x01, 0x05, 0x00, 0x00, 0x00, 0x09, 0x00, 0x00, 0x00, 0x00}, h)
}

func TestStartStreamEmitsHeaderThenMetadata(t *testing.T) {
	m := NewMuxer(ModeFile)
	var packets [][]byte
	m.SetListener(func(p media.Packet) { packets = append(packets, p.Payload) })

	_, err := m.AddStream(media.VideoCodecConfig{Codec: media.VideoAVC, Width: 1280, Height: 720, FPS: 30})
	require.NoError(t, err)
	_, err = m.AddStream(media.AudioCodecConfig{Codec: media.AudioAAC, SampleRate: 44100, Channels: media.ChannelStereo})
	require.NoError(t, err)

	require.NoError(t, m.StartStream())
	require.Len(t, packets, 1, "file header and onMetaData are emitted as one packet before any media tag")

	p := packets[0]
	assert.Equal(t, []byte{'F', 'L', 'V', 0x01}, p[:4], "testable property 3: file starts with 46 4C 56 01")
	assert.Equal(t, byte(18), p[13], "script tag type is 18")
}

func TestVideoKeyframeGateDropsEarlyFrames(t *testing.T) {
	m := NewMuxer(ModeStream)
	var packets []media.Packet
	m.SetListener(func(p media.Packet) { packets = append(packets, p) })

	vid, err := m.AddStream(media.VideoCodecConfig{Codec: media.VideoAVC})
	require.NoError(t, err)
	aud, err := m.AddStream(media.AudioCodecConfig{Codec: media.AudioAAC, SampleRate: 44100})
	require.NoError(t, err)
	require.NoError(t, m.StartStream())
	packets = nil // drop the onMetaData packet from this assertion

	require.NoError(t, m.Write(media.Frame{PTS: 0, CodecConfig: true}, vid))
	require.NoError(t, m.Write(media.Frame{PTS: 100, CodecConfig: true}, aud))
	packets = nil // drop codec headers

	require.NoError(t, m.Write(media.Frame{PTS: 1000, KeyFrame: false}, vid))
	assert.Empty(t, packets, "non-key video frame before the first keyframe must be dropped")

	require.NoError(t, m.Write(media.Frame{PTS: 1500, KeyFrame: false}, aud))
	assert.Empty(t, packets, "audio arriving before the first video keyframe must be dropped")

	require.NoError(t, m.Write(media.Frame{PTS: 2000, KeyFrame: true}, vid))
	require.Len(t, packets, 1, "the first video keyframe starts the session")
	assert.Equal(t, tagTypeVideo, packets[0].Payload[0])
}

func TestAudioOnlyStartsOnFirstAudioFrame(t *testing.T) {
	m := NewMuxer(ModeStream)
	var packets []media.Packet
	m.SetListener(func(p media.Packet) { packets = append(packets, p) })

	aud, err := m.AddStream(media.AudioCodecConfig{Codec: media.AudioAAC, SampleRate: 44100})
	require.NoError(t, err)
	require.NoError(t, m.StartStream())
	packets = nil

	require.NoError(t, m.Write(media.Frame{PTS: 500, CodecConfig: true}, aud))
	packets = nil

	require.NoError(t, m.Write(media.Frame{PTS: 5000}, aud))
	require.Len(t, packets, 1)
	// timestamp rebased to 0 since this is the first accepted frame
	ts := uint32(packets[0].Payload[4])<<16 | uint32(packets[0].Payload[5])<<8 | uint32(packets[0].Payload[6])
	assert.Equal(t, uint32(0), ts)
}

func TestCodecHeaderEmittedOnlyOncePerStream(t *testing.T) {
	m := NewMuxer(ModeStream)
	var packets []media.Packet
	m.SetListener(func(p media.Packet) { packets = append(packets, p) })

	vid, err := m.AddStream(media.VideoCodecConfig{Codec: media.VideoAVC})
	require.NoError(t, err)
	require.NoError(t, m.StartStream())
	packets = nil

	require.NoError(t, m.Write(media.Frame{CodecConfig: true, Payload: []byte{1, 2, 3}}, vid))
	require.NoError(t, m.Write(media.Frame{PTS: 0, KeyFrame: true}, vid))
	require.NoError(t, m.Write(media.Frame{CodecConfig: true, Payload: []byte{1, 2, 3}}, vid))

	count := 0
	for _, p := range packets {
		if len(p.Payload) > 12 && p.Payload[12] == packetTypeSequenceStart {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAddStreamRejectsSecondVideoStream(t *testing.T) {
	m := NewMuxer(ModeStream)
	_, err := m.AddStream(media.VideoCodecConfig{Codec: media.VideoAVC})
	require.NoError(t, err)
	_, err = m.AddStream(media.VideoCodecConfig{Codec: media.VideoHEVC})
	assert.Error(t, err)
}
