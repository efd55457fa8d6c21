package sink

import (
	"context"
	"net/url"

	"github.com/datarhei/gosrt"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

// SRTSink dials an SRT caller connection via datarhei/gosrt, carrying the
// streamid/passphrase query parameters an srt:// descriptor's custom data
// holds (spec §6 "srt://host:port?streamid=...&passphrase=...").
type SRTSink struct {
	baseState
	conn srt.Conn
}

func NewSRTSink() *SRTSink {
	return &SRTSink{baseState: newBaseState()}
}

func (s *SRTSink) Open(ctx context.Context, descriptor media.MediaDescriptor) error {
	u, err := url.Parse(descriptor.URI)
	if err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.SRTSink", "Open", err)
	}

	cfg := srt.DefaultConfig()
	cfg.StreamId = descriptor.CustomData["streamid"]
	cfg.Passphrase = descriptor.CustomData["passphrase"]

	conn, err := srt.Dial("srt", u.Host, cfg)
	if err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.SRTSink", "Open", err)
	}
	s.conn = conn
	s.isOpen.Set(true)
	return nil
}

func (s *SRTSink) Write(packet media.Packet) error {
	if s.conn == nil {
		return streamerrors.New(streamerrors.KindNotConfigured, "sink.SRTSink", "Write", nil)
	}
	if _, err := s.conn.Write(packet.Payload); err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.SRTSink", "Write", err)
	}
	return nil
}

func (s *SRTSink) Close(_ context.Context) error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.isOpen.Set(false)
	if err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.SRTSink", "Close", err)
	}
	return nil
}

func (s *SRTSink) Release() error { return s.Close(context.Background()) }
