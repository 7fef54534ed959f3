package batch

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	bytes.Buffer
	closed bool
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

// shortSink accepts at most three bytes per call.
type shortSink struct {
	bytes.Buffer
}

func (s *shortSink) Write(p []byte) (int, error) {
	if len(p) > 3 {
		n, _ := s.Buffer.Write(p[:3])
		return n, io.ErrShortWrite
	}
	return s.Buffer.Write(p)
}

func (s *shortSink) Close() error { return nil }

type failingSink struct{}

func (failingSink) Write(p []byte) (int, error) { return 0, errors.New("backend rejected write") }
func (failingSink) Close() error                { return nil }

func TestSidecarWriterMirrorsWrites(t *testing.T) {
	sink := &recordingSink{}
	w := NewSidecarWriter(sink)

	for _, chunk := range []string{"validation ", "packet ", "bytes"} {
		n, err := io.WriteString(w, chunk)
		require.NoError(t, err)
		assert.Equal(t, len(chunk), n)
	}

	assert.Equal(t, "validation packet bytes", string(w.Bytes()))
	assert.Equal(t, "validation packet bytes", sink.String())

	require.NoError(t, w.Close())
	assert.True(t, sink.closed)
	assert.Equal(t, "validation packet bytes", string(w.Bytes()), "accumulated bytes survive Close")
}

func TestSidecarWriterShortWriteStaysInSync(t *testing.T) {
	sink := &shortSink{}
	w := NewSidecarWriter(sink)

	n, err := w.Write([]byte("abcdef"))
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, io.ErrShortWrite)

	assert.Equal(t, sink.String(), string(w.Bytes()), "mirror matches what reached the destination")
	assert.Equal(t, "abc", string(w.Bytes()))
}

func TestSidecarWriterFailedWriteMirrorsNothing(t *testing.T) {
	w := NewSidecarWriter(failingSink{})

	_, err := w.Write([]byte("doomed"))
	require.Error(t, err)
	assert.Empty(t, w.Bytes())
}
