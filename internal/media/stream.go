package media

import (
	"sync"

	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

// StreamID is a muxer-assigned small integer stream id bound to a codec
// config for the lifetime of a muxer session (spec §3 "Stream").
type StreamID int

// CodecConfig is either an AudioCodecConfig or a VideoCodecConfig; muxers
// only need to know the mime/codec and the bits required to build their
// container-specific headers, so callers pass whichever concrete config
// they hold and the muxer type-switches.
type CodecConfig interface {
	isCodecConfig()
}

func (AudioCodecConfig) isCodecConfig() {}
func (VideoCodecConfig) isCodecConfig() {}

// StreamTable assigns and looks up StreamIDs for a muxer session. It
// implements the invariant that once add_stream returns, the id is stable
// for the session's lifetime (spec §3). Safe for concurrent use: the
// general muxer contract allows concurrent write() on distinct stream ids.
type StreamTable struct {
	mu      sync.RWMutex
	next    StreamID
	configs map[StreamID]CodecConfig
}

// NewStreamTable returns an empty table.
func NewStreamTable() *StreamTable {
	return &StreamTable{configs: make(map[StreamID]CodecConfig)}
}

// Add assigns a new stable StreamID to cfg.
func (t *StreamTable) Add(cfg CodecConfig) StreamID {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.configs[id] = cfg
	return id
}

// AddAll assigns ids to every config in order, matching the general muxer
// contract's add_streams([cfg]) -> map<cfg, stream_id>.
func (t *StreamTable) AddAll(cfgs []CodecConfig) []StreamID {
	ids := make([]StreamID, len(cfgs))
	for i, c := range cfgs {
		ids[i] = t.Add(c)
	}
	return ids
}

// Config returns the config bound to id.
func (t *StreamTable) Config(id StreamID) (CodecConfig, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cfg, ok := t.configs[id]
	if !ok {
		return nil, streamerrors.New(streamerrors.KindInvalidState, "media.StreamTable", "Config", nil)
	}
	return cfg, nil
}

// Len returns the number of registered streams.
func (t *StreamTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.configs)
}

// Reset clears the table and restarts stream numbering at 0. The FLV and
// MPEG-TS muxers call it from Release; a stop/start cycle keeps the table.
func (t *StreamTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next = 0
	t.configs = make(map[StreamID]CodecConfig)
}
