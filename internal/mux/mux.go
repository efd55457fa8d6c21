// Package mux defines the general Muxer contract (spec §4.3) shared by
// the FLV (internal/mux/flv) and MPEG-TS (internal/mux/mpegts) bit-exact
// implementations.
package mux

import "github.com/ThibaultBee/streampack/internal/media"

// PacketListener receives packets emitted by a Muxer. The muxer never
// performs I/O itself; a CompositeEndpoint wires this straight into a
// Sink's Write.
type PacketListener func(media.Packet)

// Muxer is the general contract every container implementation satisfies.
type Muxer interface {
	// AddStreams assigns stable stream ids to cfgs, in order. Must be
	// called after the endpoint is open and before the first Write.
	AddStreams(cfgs []media.CodecConfig) ([]media.StreamID, error)
	AddStream(cfg media.CodecConfig) (media.StreamID, error)

	// Write consumes frame exactly once; safe to call concurrently for
	// distinct stream ids.
	Write(frame media.Frame, id media.StreamID) error

	// StartStream emits any container header; StopStream flushes trailers.
	StartStream() error
	StopStream() error

	// Release is terminal.
	Release() error

	SetListener(PacketListener)
}
