package media

// Packet is a muxer output unit: a self-framed byte buffer plus a
// timestamp (spec §3). Muxers emit Packets to a listener callback; sinks
// write them verbatim — neither interprets the other's framing.
type Packet struct {
	Payload []byte

	// PTS is the presentation timestamp in microseconds. The FLV and
	// MPEG-TS muxers leave it zero: their timestamps are carried inside
	// Payload's own framing.
	PTS int64

	// StreamID identifies which Stream (see stream.go) this packet
	// belongs to. The FLV and MPEG-TS muxers leave it zero: an FLV tag
	// is self-describing (audio/video/script) and a TS packet carries its
	// PID inside Payload.
	StreamID StreamID
}
