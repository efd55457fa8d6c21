// Package sink implements the Sink contract (spec §4.4): pure packet I/O
// behind file, content-URI, RTMP and SRT destinations. A Sink never
// inspects packet contents — that is the muxer's job — it only moves
// bytes, and its open/close lifecycle is observable the way every other
// component's lifecycle is (internal/reactive).
package sink

import (
	"context"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/reactive"
)

// Sink is pure I/O: a file descriptor, a content-URI output stream, an
// RTMP connection, or an SRT socket. All blocking I/O happens here; sinks
// must be safe to call from the endpoint's I/O executor (spec §4.4).
type Sink interface {
	// Open prepares the destination named by descriptor for writing.
	Open(ctx context.Context, descriptor media.MediaDescriptor) error
	// Write sends one muxed packet. Safe to call only between Open and Close.
	Write(packet media.Packet) error
	// Close tears the destination down; Open may be called again afterward.
	Close(ctx context.Context) error
	// Release is terminal; the sink is unusable afterward.
	Release() error

	// IsOpen reports the sink's open/closed state as an observable.
	IsOpen() *reactive.State[bool]
}

// baseState is embedded by every concrete sink so IsOpen shares one
// implementation, mirroring internal/source's baseState helper.
type baseState struct {
	isOpen *reactive.State[bool]
}

func newBaseState() baseState {
	return baseState{isOpen: reactive.New(false)}
}

func (b *baseState) IsOpen() *reactive.State[bool] { return b.isOpen }
