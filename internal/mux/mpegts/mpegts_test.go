package mpegts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThibaultBee/streampack/internal/media"
)

func pidOf(pkt []byte) uint16 {
	return uint16(pkt[1]&0x1F)<<8 | uint16(pkt[2])
}

func TestEveryPacketStartsWithSyncByte(t *testing.T) {
	m := NewMuxer(Config{})
	var packets [][]byte
	m.SetListener(func(p media.Packet) { packets = append(packets, p.Payload) })

	vid, err := m.AddStream(media.VideoCodecConfig{Codec: media.VideoHEVC, Width: 1920, Height: 1080, FPS: 30})
	require.NoError(t, err)
	_, err = m.AddStream(media.AudioCodecConfig{Codec: media.AudioOpus, SampleRate: 48000, Channels: media.ChannelMono})
	require.NoError(t, err)
	require.NoError(t, m.StartStream())

	require.NoError(t, m.Write(media.Frame{PTS: 0, KeyFrame: true, Payload: []byte{0, 0, 0, 1, 0x26, 1, 2, 3}}, vid))

	require.NotEmpty(t, packets)
	for _, p := range packets {
		require.Len(t, p, tsPacketSize)
		assert.Equal(t, byte(0x47), p[0], "testable property 5: every packet starts with 0x47")
	}
}

func TestPATPMTSDTWithinFirst1KiB(t *testing.T) {
	m := NewMuxer(Config{})
	var total int
	m.SetListener(func(p media.Packet) { total += len(p.Payload) })

	_, err := m.AddStream(media.VideoCodecConfig{Codec: media.VideoAVC})
	require.NoError(t, err)
	require.NoError(t, m.StartStream())

	assert.LessOrEqual(t, total, 1024, "PAT/PMT/SDT must appear in the first 1 KiB of output")
}

func TestSDTContinuityCounterWrapsMod16(t *testing.T) {
	m := NewMuxer(Config{RetransmitPeriodUS: 1000})
	var sdtPackets [][]byte
	m.SetListener(func(p media.Packet) {
		if pidOf(p.Payload) == sdtPID {
			sdtPackets = append(sdtPackets, p.Payload)
		}
	})

	vid, err := m.AddStream(media.VideoCodecConfig{Codec: media.VideoAVC})
	require.NoError(t, err)
	require.NoError(t, m.StartStream())
	require.Len(t, sdtPackets, 1, "SDT emitted once at StartStream")

	for i := int64(1); i <= 17; i++ {
		require.NoError(t, m.Write(media.Frame{PTS: i * 1000, KeyFrame: true, Payload: []byte{0, 0, 0, 1, 0x65, 1, 2, 3}}, vid))
	}

	require.Len(t, sdtPackets, 18, "one retransmission per elapsed cadence window")
	for i, p := range sdtPackets {
		assert.Equal(t, byte(i%16), p[3]&0x0F, "continuity counter increments mod 16 (property 6)")
	}
}

func TestSDTSectionIsCRCValid(t *testing.T) {
	section := buildSDTSection(media.TSServiceDescriptor{
		TransportStreamID: 1, OriginalNetworkID: 1, ServiceID: 7,
		ServiceName: "svc", ProviderName: "prov",
	})
	require.True(t, len(section) > 4)
	assert.Equal(t, sdtTableID, section[0])

	body := section[:len(section)-4]
	want := crc32MPEG2(body)
	got := uint32(section[len(section)-4])<<24 | uint32(section[len(section)-3])<<16 |
		uint32(section[len(section)-2])<<8 | uint32(section[len(section)-1])
	assert.Equal(t, want, got)
}

func TestPIDAllocationStartsAt0x0100(t *testing.T) {
	m := NewMuxer(Config{})
	vid, err := m.AddStream(media.VideoCodecConfig{Codec: media.VideoAVC})
	require.NoError(t, err)
	aud, err := m.AddStream(media.AudioCodecConfig{Codec: media.AudioAAC, SampleRate: 44100})
	require.NoError(t, err)

	assert.Equal(t, uint16(0x0100), m.entries[vid].pid)
	assert.Equal(t, uint16(0x0101), m.entries[aud].pid)
}

func TestWriteBeforeStartStreamIsInvalidState(t *testing.T) {
	m := NewMuxer(Config{})
	vid, err := m.AddStream(media.VideoCodecConfig{Codec: media.VideoAVC})
	require.NoError(t, err)
	err = m.Write(media.Frame{}, vid)
	assert.Error(t, err)
}
