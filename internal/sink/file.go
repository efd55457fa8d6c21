package sink

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/ThibaultBee/streampack/internal/media"
	"github.com/ThibaultBee/streampack/internal/streamerrors"
)

// FileSink writes muxed packets to a regular file, grounded on the
// teacher's internal/storage.Sandbox file-open conventions (0640 mode).
// Missing parent directories are not created; Open fails instead.
type FileSink struct {
	baseState
	f *os.File
}

// NewFileSink returns an unopened FileSink.
func NewFileSink() *FileSink {
	return &FileSink{baseState: newBaseState()}
}

func (s *FileSink) Open(_ context.Context, descriptor media.MediaDescriptor) error {
	path := filePathFromURI(descriptor.URI)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.FileSink", "Open", err)
	}
	s.f = f
	s.isOpen.Set(true)
	return nil
}

func (s *FileSink) Write(packet media.Packet) error {
	if s.f == nil {
		return streamerrors.New(streamerrors.KindNotConfigured, "sink.FileSink", "Write", nil)
	}
	if _, err := s.f.Write(packet.Payload); err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.FileSink", "Write", err)
	}
	return nil
}

func (s *FileSink) Close(_ context.Context) error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.isOpen.Set(false)
	if err != nil {
		return streamerrors.New(streamerrors.KindIOError, "sink.FileSink", "Close", err)
	}
	return nil
}

func (s *FileSink) Release() error { return s.Close(context.Background()) }

// filePathFromURI accepts both "file:///abs/path" and a bare filesystem
// path, matching media.ParseMediaDescriptor's lenient file: handling.
func filePathFromURI(uri string) string {
	if !strings.Contains(uri, "://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	return u.Path
}
