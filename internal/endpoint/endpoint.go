// Package endpoint implements CompositeEndpoint and DynamicEndpoint (spec
// §4.5, §4.6): the glue between a Muxer and a Sink, and the lazily-created
// registry of concrete endpoints an Output selects by {sink-kind,
// container}.
package endpoint

import (
	"context"
	"sync"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/mux"
	"github.com/ThibaultBee/streampack/internal/sink"
)

// Endpoint is what an Output drives: add streams, write frames as
// packaged packets, and move through the open/start/stop/close/release
// lifecycle (spec §4.5, §4.6 "Contract").
type Endpoint interface {
	AddStreams(cfgs []media.CodecConfig) ([]media.StreamID, error)
	AddStream(cfg media.CodecConfig) (media.StreamID, error)
	Write(frame media.Frame, id media.StreamID) error

	Open(ctx context.Context, descriptor media.MediaDescriptor) error
	Close(ctx context.Context) error
	StartStream() error
	StopStream() error
	Release() error
}

// CompositeEndpoint binds a Muxer to a Sink (spec §4.5): open/close
// forward to the sink, start_stream/stop_stream forward to the muxer only
// (a Sink has no start/stop of its own), release releases the muxer then
// the sink, and the muxer's packet listener feeds the sink's Write
// directly, with no intermediate buffering.
type CompositeEndpoint struct {
	mu    sync.Mutex
	muxer mux.Muxer
	sink  sink.Sink
}

// NewCompositeEndpoint binds m to s, wiring m's packet output straight
// into s.Write.
func NewCompositeEndpoint(m mux.Muxer, s sink.Sink) *CompositeEndpoint {
	e := &CompositeEndpoint{muxer: m, sink: s}
	m.SetListener(func(p media.Packet) { _ = s.Write(p) })
	return e
}

func (e *CompositeEndpoint) AddStreams(cfgs []media.CodecConfig) ([]media.StreamID, error) {
	return e.muxer.AddStreams(cfgs)
}

func (e *CompositeEndpoint) AddStream(cfg media.CodecConfig) (media.StreamID, error) {
	return e.muxer.AddStream(cfg)
}

func (e *CompositeEndpoint) Write(frame media.Frame, id media.StreamID) error {
	return e.muxer.Write(frame, id)
}

// Open forwards to the sink only; the muxer has no I/O to open (spec
// §4.5 "Forwards open/close to the sink").
func (e *CompositeEndpoint) Open(ctx context.Context, descriptor media.MediaDescriptor) error {
	return e.sink.Open(ctx, descriptor)
}

func (e *CompositeEndpoint) Close(ctx context.Context) error {
	return e.sink.Close(ctx)
}

// StartStream starts the muxer; the sink is not touched, since it already
// accepts writes from Open onwards.
func (e *CompositeEndpoint) StartStream() error {
	return e.muxer.StartStream()
}

func (e *CompositeEndpoint) StopStream() error {
	return e.muxer.StopStream()
}

func (e *CompositeEndpoint) Release() error {
	if err := e.muxer.Release(); err != nil {
		return err
	}
	return e.sink.Release()
}
