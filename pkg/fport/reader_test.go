package fport

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// flakySource fails once at the specified position.
type flakySource struct {
	data   []byte
	pos    int
	failAt int
	failed bool
}

var errFlaky = errors.New("flaky")

func (s *flakySource) ReadByte() (byte, error) {
	if s.pos == s.failAt && !s.failed {
		s.failed = true
		return 0, errFlaky
	}
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

func randomPayload(rnd *rand.Rand, size int, allowReserved bool) []byte {
	data := make([]byte, size)
	for n := range data {
		for {
			data[n] = byte(rnd.Intn(256))
			if allowReserved || (data[n] != FrameMarker && data[n] != EscapeChar) {
				break
			}
		}
	}
	return data
}

func TestFrameReaderPlainPayload(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		payload := randomPayload(rnd, 1+rnd.Intn(40), false)
		stream := append([]byte{FrameMarker}, payload...)
		stream = append(stream, FrameMarker)
		f, err := NewFrameReader(bytes.NewReader(stream)).NextFrame()
		require.NoError(t, err)
		require.Equal(t, payload, []byte(f))
	}
}

func TestFrameReaderStuffedRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		payload := randomPayload(rnd, 1+rnd.Intn(40), true)
		payload[rnd.Intn(len(payload))] = FrameMarker
		payload[rnd.Intn(len(payload))] = EscapeChar
		f, err := NewFrameReader(bytes.NewReader(Frame(payload).Bytes())).NextFrame()
		require.NoError(t, err)
		require.Equal(t, payload, []byte(f))
	}
}

func TestFrameReaderSuccessiveFrames(t *testing.T) {
	var stream []byte
	var frames []Frame
	rnd := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		f := NewFrame(FrameType(rnd.Intn(2)), randomPayload(rnd, rnd.Intn(30), true))
		frames = append(frames, f)
		stream = append(stream, f.Bytes()...)
	}
	r := NewFrameReader(bytes.NewReader(stream))
	for n, expect := range frames {
		f, err := r.NextFrame()
		require.NoErrorf(t, err, "frame[%d]", n)
		require.Equalf(t, expect, f, "frame[%d]", n)
	}
	_, err := r.NextFrame()
	require.Error(t, err)
}

func TestFrameReaderNeverEmpty(t *testing.T) {
	r := NewFrameReader(bytes.NewReader([]byte{
		FrameMarker, FrameMarker, FrameMarker, 0x01, FrameMarker, FrameMarker,
	}))
	f, err := r.NextFrame()
	require.NoError(t, err)
	require.Equal(t, Frame{0x01}, f)
	f, err = r.NextFrame()
	require.Nil(t, f)
	var streamErr *StreamError
	require.True(t, errors.As(err, &streamErr))
	require.Equal(t, io.EOF, streamErr.Err)
	require.True(t, errors.Is(err, io.EOF))
}

func TestFrameReaderControlFrame(t *testing.T) {
	data := make([]byte, ChannelDataLen)
	for n := range data {
		data[n] = byte(n + 1)
	}
	// leading marker begins nothing as no byte has been accumulated.
	stream := append([]byte{FrameMarker}, NewFrame(FrameTypeControl, data).Bytes()...)
	f, err := NewFrameReader(bytes.NewReader(stream)).NextFrame()
	require.NoError(t, err)
	require.Len(t, f, 1+ControlBodyLen+1)
	require.Equal(t, byte(0x00), f[1])
	require.Equal(t, data, []byte(f[2:2+ChannelDataLen]))
}

func TestFrameReaderEscapedMarker(t *testing.T) {
	stream := []byte{FrameMarker, 0x05, EscapeChar, 0x5e, 0x06, FrameMarker}
	f, err := NewFrameReader(bytes.NewReader(stream)).NextFrame()
	require.NoError(t, err)
	require.Equal(t, Frame{0x05, FrameMarker, 0x06}, f)
}

func TestFrameReaderResync(t *testing.T) {
	// a frame loses its tail, the next marker terminates the partial frame.
	stream := []byte{
		0x42, 0x43,
		FrameMarker, 0x19, 0x00, 0x01, 0x02,
		FrameMarker, 0x03, 0x04, FrameMarker,
	}
	r := NewFrameReader(bytes.NewReader(stream))
	f, err := r.NextFrame()
	require.NoError(t, err)
	require.Equal(t, Frame{0x19, 0x00, 0x01, 0x02}, f)
	f, err = r.NextFrame()
	require.NoError(t, err)
	require.Equal(t, Frame{0x03, 0x04}, f)
}

func TestFrameReaderNextControlFrame(t *testing.T) {
	var stream []byte
	stream = append(stream, NewFrame(FrameTypeDownlink, []byte{1, 2, 3}).Bytes()...)
	stream = append(stream, FrameMarker, 0x01, FrameMarker)
	ctl := NewFrame(FrameTypeControl, make([]byte, ControlLength-1))
	stream = append(stream, ctl.Bytes()...)
	f, err := NewFrameReader(bytes.NewReader(stream)).NextControlFrame()
	require.NoError(t, err)
	require.Equal(t, ctl, f)
}

func TestFrameReaderRestartable(t *testing.T) {
	src := &flakySource{
		data:   []byte{FrameMarker, 1, 2, 3, FrameMarker},
		failAt: 2,
	}
	r := NewFrameReader(src)
	require.Equal(t, StateIdle, r.State())
	_, err := r.NextFrame()
	require.True(t, errors.Is(err, errFlaky))
	require.Equal(t, StateCollecting, r.State())
	require.Equal(t, 1, r.Pending())
	f, err := r.NextFrame()
	require.NoError(t, err)
	require.Equal(t, Frame{1, 2, 3}, f)
}

func TestByteSource(t *testing.T) {
	br := bytes.NewReader([]byte{1})
	require.Equal(t, br, ByteSource(br))
	pr, pw := io.Pipe()
	go func() {
		pw.Write([]byte{7})
		pw.Close()
	}()
	b, err := ByteSource(pr).ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(7), b)
}
