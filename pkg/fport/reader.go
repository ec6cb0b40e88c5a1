package fport

import (
	"bufio"
	"io"
)

// ByteSource returns r as an io.ByteReader, buffering it if needed.
func ByteSource(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return bufio.NewReader(r)
}

// FrameReader reads successive frames from a byte source.
// It is not safe for concurrent use.
type FrameReader struct {
	src    io.ByteReader
	parser Parser
}

// NewFrameReader creates a FrameReader. src is borrowed and never closed.
func NewFrameReader(src io.ByteReader) *FrameReader {
	return &FrameReader{src: src}
}

// State gets the state of the underlying parser.
func (r *FrameReader) State() ParseState {
	return r.parser.State()
}

// Pending returns the number of bytes of the partial frame.
func (r *FrameReader) Pending() int {
	return r.parser.Pending()
}

// NextFrame blocks until a complete frame is received. The returned
// frame is never empty. Failures of the byte source are returned as
// *StreamError; a partial frame is kept, so NextFrame can be called
// again if the source recovers.
func (r *FrameReader) NextFrame() (Frame, error) {
	for {
		b, err := r.src.ReadByte()
		if err != nil {
			return nil, &StreamError{Err: err}
		}
		if f := r.parser.Parse(b); f != nil {
			return f, nil
		}
	}
}

// NextControlFrame skips frames until a control frame is received.
func (r *FrameReader) NextControlFrame() (Frame, error) {
	for {
		f, err := r.NextFrame()
		if err != nil {
			return nil, err
		}
		if f.IsControl() {
			return f, nil
		}
	}
}
