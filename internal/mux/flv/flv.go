// Package flv implements the bit-exact FLV muxer (spec §4.3.1), grounded
// on the ausocean-av VideoTag/AudioTag tag-emission pattern (tag.go) with
// AMF0 onMetaData encoding (amf.go) layered on top.
package flv

import (
	"sync"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/mux"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

// FileMode controls whether StartStream emits the 13-byte FLV file
// header. Streaming sinks (RTMP) never see a file header; file/content
// sinks always do (spec §4.3.1 "at start_stream when in file mode").
type FileMode bool

const (
	ModeFile   FileMode = true
	ModeStream FileMode = false
)

// Muxer implements mux.Muxer for FLV.
type Muxer struct {
	mode     FileMode
	listener mux.PacketListener

	mu sync.Mutex

	streams   *media.StreamTable
	audioID   media.StreamID
	videoID   media.StreamID
	hasAudio  bool
	hasVideo  bool
	audioCfg  media.AudioCodecConfig
	videoCfg  media.VideoCodecConfig

	started        bool
	haveStartup    bool
	startupPTS     int64
	sawFirstKey    bool
	sentAudioHdr   bool
	sentVideoHdr   bool
}

// NewMuxer returns an FLV muxer in the given file/stream mode.
func NewMuxer(mode FileMode) *Muxer {
	return &Muxer{mode: mode, streams: media.NewStreamTable()}
}

func (m *Muxer) SetListener(l mux.PacketListener) { m.listener = l }

// AddStream binds cfg to a new stream id. At most one audio and one video
// stream per session (spec §4.3.1 "Rules").
func (m *Muxer) AddStream(cfg media.CodecConfig) (media.StreamID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch c := cfg.(type) {
	case media.AudioCodecConfig:
		if m.hasAudio {
			return 0, streamerrors.New(streamerrors.KindInvalidState, "flv.Muxer", "AddStream", nil)
		}
		id := m.streams.Add(cfg)
		m.audioID, m.hasAudio, m.audioCfg = id, true, c
		return id, nil
	case media.VideoCodecConfig:
		if m.hasVideo {
			return 0, streamerrors.New(streamerrors.KindInvalidState, "flv.Muxer", "AddStream", nil)
		}
		if c.Codec != media.VideoAVC && c.Codec != media.VideoHEVC {
			return 0, streamerrors.New(streamerrors.KindUnsupportedCodec, "flv.Muxer", "AddStream", nil)
		}
		id := m.streams.Add(cfg)
		m.videoID, m.hasVideo, m.videoCfg = id, true, c
		return id, nil
	default:
		return 0, streamerrors.New(streamerrors.KindUnsupportedCodec, "flv.Muxer", "AddStream", nil)
	}
}

func (m *Muxer) AddStreams(cfgs []media.CodecConfig) ([]media.StreamID, error) {
	ids := make([]media.StreamID, 0, len(cfgs))
	for _, c := range cfgs {
		id, err := m.AddStream(c)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// StartStream emits the optional file header followed by the onMetaData
// script tag (spec §4.3.1).
func (m *Muxer) StartStream() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = true
	m.haveStartup = false
	m.sawFirstKey = false
	m.sentAudioHdr = false
	m.sentVideoHdr = false

	var out []byte
	if m.mode == ModeFile {
		out = append(out, fileHeader(m.hasAudio, m.hasVideo)...)
	}
	out = writeScriptTag(out, m.metadataEntries())
	m.emit(out)
	return nil
}

// fileHeader builds the 9-byte FLV header plus the first PreviousTagSize0
// (spec testable property 3: "46 4C 56 01 ...").
func fileHeader(hasAudio, hasVideo bool) []byte {
	var flags byte
	if hasAudio {
		flags |= 0x04
	}
	if hasVideo {
		flags |= 0x01
	}
	h := []byte{'F', 'L', 'V', 0x01, flags, 0, 0, 0, 9, 0, 0, 0, 0}
	return h
}

func (m *Muxer) metadataEntries() []EcmaArrayEntry {
	var entries []EcmaArrayEntry
	entries = append(entries, EcmaArrayEntry{"duration", float64(0)})
	if m.hasVideo {
		codecID := 7
		if m.videoCfg.Codec == media.VideoHEVC {
			codecID = 12
		}
		entries = append(entries,
			EcmaArrayEntry{"videocodecid", float64(codecID)},
			EcmaArrayEntry{"width", float64(m.videoCfg.Width)},
			EcmaArrayEntry{"height", float64(m.videoCfg.Height)},
			EcmaArrayEntry{"framerate", float64(m.videoCfg.FPS)},
			EcmaArrayEntry{"videodatarate", float64(m.videoCfg.StartBitrate / 1000)},
		)
	}
	if m.hasAudio {
		entries = append(entries,
			EcmaArrayEntry{"audiocodecid", float64(10)},
			EcmaArrayEntry{"audiosamplerate", float64(m.audioCfg.SampleRate)},
			EcmaArrayEntry{"audiosamplesize", float64(16)},
			EcmaArrayEntry{"stereo", m.audioCfg.Channels == media.ChannelStereo},
			EcmaArrayEntry{"audiodatarate", float64(m.audioCfg.StartBitrate / 1000)},
		)
	}
	return entries
}

// Write consumes one frame for the given stream, applying the startup-time
// rebase and video-keyframe-gate rules (spec §4.3.1).
func (m *Muxer) Write(frame media.Frame, id media.StreamID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return streamerrors.New(streamerrors.KindInvalidState, "flv.Muxer", "Write", nil)
	}

	isVideo := m.hasVideo && id == m.videoID
	isAudio := m.hasAudio && id == m.audioID
	if !isVideo && !isAudio {
		return streamerrors.New(streamerrors.KindInvalidState, "flv.Muxer", "Write", nil)
	}

	if frame.CodecConfig {
		return m.writeCodecHeader(isVideo, frame)
	}

	if !m.haveStartup {
		if m.hasVideo {
			if !isVideo || !frame.KeyFrame {
				// Audio before the first video keyframe, or a non-key
				// video frame before it: both dropped (spec: "audio
				// frames arriving before that are dropped").
				return nil
			}
			m.haveStartup, m.startupPTS, m.sawFirstKey = true, frame.PTS, true
		} else {
			// audio-only: first audio frame starts the clock
			m.haveStartup, m.startupPTS = true, frame.PTS
		}
	}

	rebased := frame.PTS - m.startupPTS
	if rebased < 0 {
		return nil
	}
	ts := uint32(rebased / 1000)

	var out []byte
	if isVideo {
		out = writeVideoTag(out, flvVideoCodec(m.videoCfg.Codec), frame.KeyFrame, false, ts, frame.Payload)
	} else {
		out = writeAudioTag(out, m.audioCfg.SampleRate, m.audioCfg.Channels == media.ChannelStereo, false, ts, frame.Payload)
	}
	m.emit(out)
	return nil
}

func (m *Muxer) writeCodecHeader(isVideo bool, frame media.Frame) error {
	var out []byte
	if isVideo {
		if m.sentVideoHdr {
			return nil
		}
		m.sentVideoHdr = true
		out = writeVideoTag(out, flvVideoCodec(m.videoCfg.Codec), true, true, 0, frame.Payload)
	} else {
		if m.sentAudioHdr {
			return nil
		}
		m.sentAudioHdr = true
		out = writeAudioTag(out, m.audioCfg.SampleRate, m.audioCfg.Channels == media.ChannelStereo, true, 0, frame.Payload)
	}
	m.emit(out)
	return nil
}

func flvVideoCodec(c media.VideoCodec) videoCodec {
	if c == media.VideoHEVC {
		return videoCodecHEVC
	}
	return videoCodecAVC
}

func (m *Muxer) StopStream() error {
	m.mu.Lock()
	m.started = false
	m.mu.Unlock()
	return nil
}

func (m *Muxer) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams.Reset()
	m.hasAudio, m.hasVideo = false, false
	return nil
}

func (m *Muxer) emit(payload []byte) {
	if m.listener == nil || len(payload) == 0 {
		return
	}
	m.listener(media.Packet{Payload: payload})
}
