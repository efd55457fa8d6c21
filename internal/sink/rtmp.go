package sink

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

const defaultRTMPPort = "1935"

// RTMPSink is a contract-level stub: it dials the destination and moves
// bytes, but does not perform the RTMP handshake or chunk-stream framing
// an interoperable client would need (spec §1 excludes wire-protocol
// implementations — "only their sink contract"). Pairing this with
// internal/mux/flv gives byte-identical FLV tags to what a real RTMP
// publisher would chunk and send; wiring an actual handshake is future
// work this stub deliberately does not attempt.
type RTMPSink struct {
	baseState
	conn net.Conn
}

func NewRTMPSink() *RTMPSink {
	return &RTMPSink{baseState: newBaseState()}
}

func (s *RTMPSink) Open(ctx context.Context, descriptor media.MediaDescriptor) error {
	u, err := url.Parse(descriptor.URI)
	if err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.RTMPSink", "Open", err)
	}
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), defaultRTMPPort)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.RTMPSink", "Open", err)
	}
	s.conn = conn
	s.isOpen.Set(true)
	return nil
}

func (s *RTMPSink) Write(packet media.Packet) error {
	if s.conn == nil {
		return streamerrors.New(streamerrors.KindNotConfigured, "sink.RTMPSink", "Write", nil)
	}
	if _, err := s.conn.Write(packet.Payload); err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.RTMPSink", "Write", err)
	}
	return nil
}

func (s *RTMPSink) Close(_ context.Context) error {
	if s.conn == nil {
		return nil
	}
	_ = s.conn.SetDeadline(time.Now())
	err := s.conn.Close()
	s.conn = nil
	s.isOpen.Set(false)
	if err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.RTMPSink", "Close", err)
	}
	return nil
}

func (s *RTMPSink) Release() error { return s.Close(context.Background()) }
