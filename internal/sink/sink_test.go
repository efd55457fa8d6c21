package sink

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThibaultBee/streampack/internal/media"
)

type nopWriteCloser struct{ *bytes.Buffer }

func (nopWriteCloser) Close() error { return nil }

func TestFileSinkWritesAndReportsOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.ts")

	s := NewFileSink()
	assert.False(t, s.IsOpen().Get())

	require.NoError(t, s.Open(context.Background(), media.MediaDescriptor{URI: path}))
	assert.True(t, s.IsOpen().Get())

	require.NoError(t, s.Write(media.Packet{Payload: []byte{1, 2, 3}}))
	require.NoError(t, s.Close(context.Background()))
	assert.False(t, s.IsOpen().Get())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestFileSinkWriteBeforeOpenFails(t *testing.T) {
	s := NewFileSink()
	err := s.Write(media.Packet{Payload: []byte{1}})
	assert.Error(t, err)
}

func TestContentSinkDelegatesToOpener(t *testing.T) {
	var buf bytes.Buffer
	s := NewContentSink(func(ctx context.Context, d media.MediaDescriptor) (io.WriteCloser, error) {
		return nopWriteCloser{&buf}, nil
	})

	require.NoError(t, s.Open(context.Background(), media.MediaDescriptor{URI: "content://test"}))
	assert.True(t, s.IsOpen().Get())
	require.NoError(t, s.Write(media.Packet{Payload: []byte("hello")}))
	assert.Equal(t, "hello", buf.String())
	require.NoError(t, s.Close(context.Background()))
	assert.False(t, s.IsOpen().Get())
}

func TestContentSinkWithoutOpenerFails(t *testing.T) {
	s := NewContentSink(nil)
	err := s.Open(context.Background(), media.MediaDescriptor{URI: "content://test"})
	assert.Error(t, err)
}
