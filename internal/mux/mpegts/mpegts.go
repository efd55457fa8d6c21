// Package mpegts implements the bit-exact MPEG-TS muxer (spec §4.3.2): PAT/
// PMT/PES packetization delegated to bluenviron/mediacommon's mpegts.Writer
// (exactly as the teacher's ts_muxer.go drives it), with a hand-rolled SDT
// table and the periodic PAT/PMT/SDT retransmission cadence mediacommon
// does not provide on its own.
package mpegts

import (
	"sync"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/mux"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

const (
	firstElementaryPID uint16 = 0x0100
	sdtPID             uint16 = 0x0011

	// defaultRetransmitPeriodUS is spec §4.3.2's stated default ("every
	// ~100 ms of stream time"); open question #1 asks for this to be
	// confirmed against golden captures, so it is exposed via Config
	// rather than hardcoded.
	defaultRetransmitPeriodUS int64 = 100_000

	tsClockHz = 90000
)

// Config configures table retransmission cadence and the SDT service
// identity (spec §4.3.2, §4.6 "dynamic endpoint custom TS services").
type Config struct {
	// RetransmitPeriodUS is the stream-time interval, in microseconds, at
	// which PAT/PMT/SDT are re-emitted. Zero selects the spec default.
	RetransmitPeriodUS int64
	Service            media.TSServiceDescriptor
}

func (c Config) withDefaults() Config {
	if c.RetransmitPeriodUS <= 0 {
		c.RetransmitPeriodUS = defaultRetransmitPeriodUS
	}
	if c.Service.ServiceID == 0 {
		c.Service = media.TSServiceDescriptor{
			TransportStreamID: 1,
			OriginalNetworkID: 1,
			ServiceID:         1,
			ServiceName:       "streampack",
			ProviderName:      "streampack",
		}
	}
	return c
}

type streamEntry struct {
	pid     uint16
	track   *mpegts.Track
	isVideo bool
	isH265  bool
}

// Muxer implements mux.Muxer for MPEG-TS.
type Muxer struct {
	cfg      Config
	listener mux.PacketListener

	mu      sync.Mutex
	streams *media.StreamTable
	entries map[media.StreamID]*streamEntry
	order   []media.StreamID // insertion order, video-first once StartStream builds tracks
	nextPID uint16

	writer *mpegts.Writer
	params *media.VideoParamHelper

	started          bool
	lastTableEmitPTS int64
	sdtCC            byte
}

// NewMuxer returns an MPEG-TS muxer with the given retransmission/service
// configuration.
func NewMuxer(cfg Config) *Muxer {
	cfg = cfg.withDefaults()
	return &Muxer{
		cfg:     cfg,
		streams: media.NewStreamTable(),
		entries: make(map[media.StreamID]*streamEntry),
		nextPID: firstElementaryPID,
		params:  media.NewVideoParamHelper(),
	}
}

func (m *Muxer) SetListener(l mux.PacketListener) { m.listener = l }

// AddStream assigns cfg the next PID from the monotonic pool starting at
// 0x0100 (spec §4.3.2 "Each elementary stream has a unique PID ...").
func (m *Muxer) AddStream(cfg media.CodecConfig) (media.StreamID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &streamEntry{pid: m.nextPID}

	switch c := cfg.(type) {
	case media.VideoCodecConfig:
		entry.isVideo = true
		switch c.Codec {
		case media.VideoHEVC:
			entry.isH265 = true
			entry.track = &mpegts.Track{PID: entry.pid, Codec: &mpegts.CodecH265{}}
		case media.VideoAVC:
			entry.track = &mpegts.Track{PID: entry.pid, Codec: &mpegts.CodecH264{}}
		default:
			return 0, streamerrors.New(streamerrors.KindUnsupportedCodec, "mpegts.Muxer", "AddStream", nil)
		}
	case media.AudioCodecConfig:
		switch c.Codec {
		case media.AudioOpus:
			entry.track = &mpegts.Track{PID: entry.pid, Codec: &mpegts.CodecOpus{ChannelCount: c.Channels.ChannelCount()}}
		case media.AudioAAC:
			entry.track = &mpegts.Track{PID: entry.pid, Codec: &mpegts.CodecMPEG4Audio{Config: mpeg4audio.AudioSpecificConfig{
				Type:         mpeg4audio.ObjectTypeAACLC,
				SampleRate:   c.SampleRate,
				ChannelCount: c.Channels.ChannelCount(),
			}}}
		default:
			return 0, streamerrors.New(streamerrors.KindUnsupportedCodec, "mpegts.Muxer", "AddStream", nil)
		}
	default:
		return 0, streamerrors.New(streamerrors.KindUnsupportedCodec, "mpegts.Muxer", "AddStream", nil)
	}

	id := m.streams.Add(cfg)
	m.entries[id] = entry
	m.nextPID++

	if entry.isVideo {
		m.order = append([]media.StreamID{id}, m.order...)
	} else {
		m.order = append(m.order, id)
	}
	return id, nil
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

// StartStream (re)builds the mediacommon writer over the already-registered
// tracks, video-first so it is chosen as the PCR-bearing stream (spec
// §4.3.2 "PCR is carried on a designated stream"), then emits PAT/PMT
// followed by the hand-rolled SDT (testable property 5: "PAT and PMT
// appear in the first 1 KiB of output").
func (m *Muxer) StartStream() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tracks := make([]*mpegts.Track, 0, len(m.order))
	for _, id := range m.order {
		tracks = append(tracks, m.entries[id].track)
	}

	m.writer = &mpegts.Writer{W: &packetWriter{emit: m.emit}, Tracks: tracks}
	if err := m.writer.Initialize(); err != nil {
		return streamerrors.New(streamerrors.KindIOError, "mpegts.Muxer", "StartStream", err)
	}

	m.started = true
	m.lastTableEmitPTS = 0
	m.sdtCC = 0

	if _, err := m.writer.WriteTables(); err != nil {
		return streamerrors.New(streamerrors.KindIOError, "mpegts.Muxer", "StartStream", err)
	}
	m.emitSDT()
	return nil
}

// Write consumes one frame, applying the retransmission cadence and, for
// video, the parameter-set-on-keyframe policy shared with internal/media's
// VideoParamHelper.
func (m *Muxer) Write(frame media.Frame, id media.StreamID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return streamerrors.New(streamerrors.KindInvalidState, "mpegts.Muxer", "Write", nil)
	}
	entry, ok := m.entries[id]
	if !ok {
		return streamerrors.New(streamerrors.KindInvalidState, "mpegts.Muxer", "Write", nil)
	}

	if frame.CodecConfig {
		if entry.isVideo {
			m.params.ExtractFromNALUs(media.ParseAnnexB(frame.Payload), entry.isH265)
		}
		return nil
	}

	if err := m.maybeRetransmitTables(frame.PTS); err != nil {
		return err
	}

	pts := ptsToTicks(frame.PTS)
	dts := pts
	if frame.HasDTS {
		dts = ptsToTicks(frame.DTS)
	}

	if entry.isVideo {
		au := media.ParseAnnexB(frame.Payload)
		if len(au) == 0 {
			au = [][]byte{frame.Payload}
		}
		m.params.ExtractFromNALUs(au, entry.isH265)
		if frame.KeyFrame {
			au = prependParamSets(au, entry.isH265, m.params)
		}

		var err error
		if entry.isH265 {
			err = m.writer.WriteH265(entry.track, pts, dts, au)
		} else {
			err = m.writer.WriteH264(entry.track, pts, dts, au)
		}
		if err != nil {
			return streamerrors.New(streamerrors.KindIOError, "mpegts.Muxer", "Write", err)
		}
		return nil
	}

	var err error
	switch entry.track.Codec.(type) {
	case *mpegts.CodecOpus:
		err = m.writer.WriteOpus(entry.track, pts, [][]byte{frame.Payload})
	default:
		err = m.writer.WriteMPEG4Audio(entry.track, pts, [][]byte{frame.Payload})
	}
	if err != nil {
		return streamerrors.New(streamerrors.KindIOError, "mpegts.Muxer", "Write", err)
	}
	return nil
}

// maybeRetransmitTables re-emits PAT/PMT/SDT once RetransmitPeriodUS of
// stream time has elapsed since the last emission (spec §4.3.2).
func (m *Muxer) maybeRetransmitTables(ptsUS int64) error {
	if ptsUS-m.lastTableEmitPTS < m.cfg.RetransmitPeriodUS {
		return nil
	}
	m.lastTableEmitPTS = ptsUS
	if _, err := m.writer.WriteTables(); err != nil {
		return streamerrors.New(streamerrors.KindIOError, "mpegts.Muxer", "Write", err)
	}
	m.emitSDT()
	return nil
}

func (m *Muxer) emitSDT() {
	section := buildSDTSection(m.cfg.Service)
	for _, pkt := range packetizeSection(sdtPID, section, &m.sdtCC) {
		m.emit(pkt)
	}
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
	m.entries = make(map[media.StreamID]*streamEntry)
	m.order = nil
	m.nextPID = firstElementaryPID
	m.params = media.NewVideoParamHelper()
	m.writer = nil
	return nil
}

func (m *Muxer) emit(payload []byte) {
	if m.listener == nil || len(payload) == 0 {
		return
	}
	m.listener(media.Packet{Payload: payload})
}

// ptsToTicks converts a media.Frame's microsecond timestamp to the 90 kHz
// clock MPEG-TS PES headers carry.
func ptsToTicks(us int64) int64 {
	return us * tsClockHz / 1_000_000
}

// prependParamSets prepends cached VPS/SPS/PPS (H.265) or SPS/PPS (H.264)
// to a keyframe access unit that does not already carry its own, mirroring
// the teacher's PrependParamsToKeyframeNALUs policy so a decoder attaching
// mid-stream (or after a PAT/PMT cadence boundary) can always decode the
// next IDR.
func prependParamSets(au [][]byte, isH265 bool, params *media.VideoParamHelper) [][]byte {
	if isH265 {
		vps, sps, pps := params.H265Params()
		if vps == nil && sps == nil && pps == nil {
			return au
		}
		out := make([][]byte, 0, len(au)+3)
		for _, p := range [][]byte{vps, sps, pps} {
			if p != nil {
				out = append(out, p)
			}
		}
		return append(out, au...)
	}

	sps, pps := params.H264Params()
	if sps == nil && pps == nil {
		return au
	}
	out := make([][]byte, 0, len(au)+2)
	for _, p := range [][]byte{sps, pps} {
		if p != nil {
			out = append(out, p)
		}
	}
	return append(out, au...)
}

// packetWriter adapts mediacommon's io.Writer-based mpegts.Writer to this
// muxer's PacketListener emission model, splitting its output into
// individual 188-byte packets so every one is forwarded separately
// (testable property 5: "every emitted 188-byte packet starts with 0x47").
type packetWriter struct {
	emit func([]byte)
}

func (w *packetWriter) Write(p []byte) (int, error) {
	for off := 0; off+tsPacketSize <= len(p); off += tsPacketSize {
		pkt := make([]byte, tsPacketSize)
		copy(pkt, p[off:off+tsPacketSize])
		w.emit(pkt)
	}
	return len(p), nil
}
