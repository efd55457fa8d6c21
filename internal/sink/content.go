package sink

import (
	"context"
	"io"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

// ContentOpener resolves a content: descriptor to a writable stream. There
// is no Go equivalent of Android's ContentResolver, so the caller (e.g.
// cmd/streampackd, or a host application embedding this package) supplies
// the resolution strategy; ContentSink itself only sequences Open/Write/
// Close/Release against whatever the opener returns.
type ContentOpener func(ctx context.Context, descriptor media.MediaDescriptor) (io.WriteCloser, error)

// ContentSink writes muxed packets to an opaque content-URI output stream
// (spec §4.4 "content-URI output stream"), analogous to FileSink but with
// the destination resolved externally.
type ContentSink struct {
	baseState
	open ContentOpener
	w    io.WriteCloser
}

// NewContentSink returns an unopened ContentSink using opener to resolve
// descriptors to writable streams.
func NewContentSink(opener ContentOpener) *ContentSink {
	return &ContentSink{baseState: newBaseState(), open: opener}
}

func (s *ContentSink) Open(ctx context.Context, descriptor media.MediaDescriptor) error {
	if s.open == nil {
		return streamerrors.New(streamerrors.KindNotConfigured, "sink.ContentSink", "Open", nil)
	}
	w, err := s.open(ctx, descriptor)
	if err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.ContentSink", "Open", err)
	}
	s.w = w
	s.isOpen.Set(true)
	return nil
}

func (s *ContentSink) Write(packet media.Packet) error {
	if s.w == nil {
		return streamerrors.New(streamerrors.KindNotConfigured, "sink.ContentSink", "Write", nil)
	}
	if _, err := s.w.Write(packet.Payload); err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.ContentSink", "Write", err)
	}
	return nil
}

func (s *ContentSink) Close(_ context.Context) error {
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	s.isOpen.Set(false)
	if err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.ContentSink", "Close", err)
	}
	return nil
}

func (s *ContentSink) Release() error { return s.Close(context.Background()) }
