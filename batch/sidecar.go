package batch

import (
	"bytes"
	"io"
)

// SidecarWriter forwards every write unchanged to the wrapped stream
// while appending a copy to an in-memory buffer, so a signature over the
// complete output can be computed without re-reading it from storage.
type SidecarWriter struct {
	w   io.WriteCloser
	buf bytes.Buffer
}

// NewSidecarWriter wraps w. The destination may be append-only or
// remote; nothing is ever read back from it.
func NewSidecarWriter(w io.WriteCloser) *SidecarWriter {
	return &SidecarWriter{w: w}
}

// Write forwards p to the destination and mirrors the bytes that were
// accepted. On a short write the mirror stays in sync with what actually
// reached the destination.
func (s *SidecarWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if n > 0 {
		s.buf.Write(p[:n])
	}
	return n, err
}

// Bytes returns everything written so far. The slice is only valid until
// the next Write.
func (s *SidecarWriter) Bytes() []byte {
	return s.buf.Bytes()
}

// Close closes the destination stream. The accumulated bytes remain
// available afterwards.
func (s *SidecarWriter) Close() error {
	return s.w.Close()
}
