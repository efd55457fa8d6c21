package endpoint

import (
	"context"
	"sync"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/mux/flv"
	"github.com/ThibaultBee/streampack/internal/mux/mpegts"
	"github.com/ThibaultBee/streampack/internal/sink"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

type endpointKey struct {
	sinkKind  media.SinkKind
	container media.Container
}

// DynamicEndpoint owns a lazily-created set of concrete endpoints keyed by
// {sink-kind, container} (spec §4.6). open is serialized via a mutex and
// is a no-op while already open, whatever descriptor it is given; the
// active endpoint is built once per key and reused across sessions.
type DynamicEndpoint struct {
	mu sync.Mutex

	contentOpener sink.ContentOpener

	endpoints map[endpointKey]Endpoint
	active    Endpoint
	isOpen    bool
}

// NewDynamicEndpoint returns a DynamicEndpoint. contentOpener resolves
// content: descriptors for the CONTENT row of the selection table; it may
// be nil if content: sinks are never used.
func NewDynamicEndpoint(contentOpener sink.ContentOpener) *DynamicEndpoint {
	return &DynamicEndpoint{
		contentOpener: contentOpener,
		endpoints:     make(map[endpointKey]Endpoint),
	}
}

// Open selects (building if necessary) the endpoint for descriptor's
// {sink-kind, container}, installs TS services from descriptor.custom_data
// when present, and opens it. Calling Open again while already open is a
// no-op, even for a descriptor with a different key (spec §4.6
// "idempotent while open").
func (d *DynamicEndpoint) Open(ctx context.Context, descriptor media.MediaDescriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isOpen {
		return nil
	}

	key := endpointKey{descriptor.Sink, descriptor.Container}
	ep, ok := d.endpoints[key]
	if !ok {
		var err error
		ep, err = d.build(key, descriptor)
		if err != nil {
			return err
		}
		d.endpoints[key] = ep
	}

	if err := ep.Open(ctx, descriptor); err != nil {
		return err
	}
	d.active = ep
	d.isOpen = true
	return nil
}

func (d *DynamicEndpoint) build(key endpointKey, descriptor media.MediaDescriptor) (Endpoint, error) {
	if key.container.IsPlatformMuxed() {
		return newPlatformMuxerStub(key.container), nil
	}

	switch key.sinkKind {
	case media.SinkFile:
		if key.container == media.ContainerTS {
			return NewCompositeEndpoint(mpegts.NewMuxer(tsConfigFromDescriptor(descriptor)), sink.NewFileSink()), nil
		}
		return NewCompositeEndpoint(flv.NewMuxer(flv.ModeFile), sink.NewFileSink()), nil
	case media.SinkContent:
		if key.container == media.ContainerTS {
			return NewCompositeEndpoint(mpegts.NewMuxer(tsConfigFromDescriptor(descriptor)), sink.NewContentSink(d.contentOpener)), nil
		}
		return NewCompositeEndpoint(flv.NewMuxer(flv.ModeFile), sink.NewContentSink(d.contentOpener)), nil
	case media.SinkSRT:
		return NewCompositeEndpoint(mpegts.NewMuxer(tsConfigFromDescriptor(descriptor)), sink.NewSRTSink()), nil
	case media.SinkRTMP:
		return NewCompositeEndpoint(flv.NewMuxer(flv.ModeStream), sink.NewRTMPSink()), nil
	default:
		return nil, streamerrors.New(streamerrors.KindUnsupportedContainer, "endpoint.DynamicEndpoint", "Open", nil)
	}
}

// tsConfigFromDescriptor seeds a default MPEG-TS service from
// descriptor.custom_data's "services" entry, if present (spec §4.6
// "TS services installed from descriptor.custom_data if present").
func tsConfigFromDescriptor(descriptor media.MediaDescriptor) mpegts.Config {
	services := descriptor.Services()
	if len(services) == 0 {
		return mpegts.Config{}
	}
	return mpegts.Config{Service: services[0]}
}

func (d *DynamicEndpoint) AddStreams(cfgs []media.CodecConfig) ([]media.StreamID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isOpen {
		return nil, streamerrors.New(streamerrors.KindNotConfigured, "endpoint.DynamicEndpoint", "AddStreams", nil)
	}
	return d.active.AddStreams(cfgs)
}

func (d *DynamicEndpoint) AddStream(cfg media.CodecConfig) (media.StreamID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isOpen {
		return 0, streamerrors.New(streamerrors.KindNotConfigured, "endpoint.DynamicEndpoint", "AddStream", nil)
	}
	return d.active.AddStream(cfg)
}

func (d *DynamicEndpoint) Write(frame media.Frame, id media.StreamID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isOpen {
		return streamerrors.New(streamerrors.KindNotConfigured, "endpoint.DynamicEndpoint", "Write", nil)
	}
	return d.active.Write(frame, id)
}

func (d *DynamicEndpoint) StartStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isOpen {
		return streamerrors.New(streamerrors.KindNotConfigured, "endpoint.DynamicEndpoint", "StartStream", nil)
	}
	return d.active.StartStream()
}

func (d *DynamicEndpoint) StopStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isOpen {
		return nil
	}
	return d.active.StopStream()
}

func (d *DynamicEndpoint) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isOpen {
		return nil
	}
	err := d.active.Close(ctx)
	d.isOpen = false
	d.active = nil
	return err
}

func (d *DynamicEndpoint) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ep := range d.endpoints {
		_ = ep.Release()
	}
	d.endpoints = make(map[endpointKey]Endpoint)
	d.active = nil
	d.isOpen = false
	return nil
}

// platformMuxerStub documents the deliberately unimplemented platform-
// muxer row of the selection table (spec §4.6, SPEC_FULL §5 Non-goals):
// MP4/WebM/3GP/Ogg require an OS-specific encoder/muxer API, an
// out-of-scope collaborator, so Open, AddStream(s), Write and StartStream
// fail with UnsupportedContainer; Close, StopStream and Release return nil.
type platformMuxerStub struct {
	container media.Container
}

func newPlatformMuxerStub(c media.Container) *platformMuxerStub {
	return &platformMuxerStub{container: c}
}

func (p *platformMuxerStub) err(op string) error {
	return streamerrors.New(streamerrors.KindUnsupportedContainer, "endpoint.platformMuxerStub", op, nil)
}

func (p *platformMuxerStub) AddStreams([]media.CodecConfig) ([]media.StreamID, error) {
	return nil, p.err("AddStreams")
}
func (p *platformMuxerStub) AddStream(media.CodecConfig) (media.StreamID, error) {
	return 0, p.err("AddStream")
}
func (p *platformMuxerStub) Write(media.Frame, media.StreamID) error { return p.err("Write") }
func (p *platformMuxerStub) Open(context.Context, media.MediaDescriptor) error {
	return p.err("Open")
}
func (p *platformMuxerStub) Close(context.Context) error { return nil }
func (p *platformMuxerStub) StartStream() error          { return p.err("StartStream") }
func (p *platformMuxerStub) StopStream() error            { return nil }
func (p *platformMuxerStub) Release() error                { return nil }
