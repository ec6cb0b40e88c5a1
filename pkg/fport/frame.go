package fport

import (
	"fmt"
	"io"
)

// Framing bytes.
const (
	FrameMarker byte = 0x7e
	EscapeChar  byte = 0x7d
	EscapeMask  byte = 0x20
)

// FrameType is the discriminator following the length byte.
type FrameType byte

// Frame types.
const (
	FrameTypeControl  FrameType = 0x00
	FrameTypeDownlink FrameType = 0x01
	FrameTypeUplink   FrameType = 0x81
)

// String implements fmt.Stringer.
func (t FrameType) String() string {
	switch t {
	case FrameTypeControl:
		return "control"
	case FrameTypeDownlink:
		return "downlink"
	case FrameTypeUplink:
		return "uplink"
	}
	return fmt.Sprintf("0x%02x", byte(t))
}

// Frame is the de-stuffed content between two markers:
// LEN TYPE DATA... CRC.
type Frame []byte

// NewFrame builds a frame with length and checksum filled.
func NewFrame(typ FrameType, data []byte) Frame {
	f := make(Frame, len(data)+3)
	f[0], f[1] = byte(len(data)+1), byte(typ)
	copy(f[2:], data)
	f[len(f)-1] = Checksum(f[:len(f)-1])
	return f
}

// Length returns the length byte.
func (f Frame) Length() byte {
	if len(f) == 0 {
		return 0
	}
	return f[0]
}

// Type returns the frame type if present.
func (f Frame) Type() (FrameType, bool) {
	if len(f) < 2 {
		return 0, false
	}
	return FrameType(f[1]), true
}

// IsControl tells if this is a control frame.
func (f Frame) IsControl() bool {
	typ, ok := f.Type()
	return ok && typ == FrameTypeControl
}

// Body strips the length byte.
func (f Frame) Body() []byte {
	if len(f) < 2 {
		return nil
	}
	return f[1:]
}

// ValidChecksum verifies the trailing checksum byte.
func (f Frame) ValidChecksum() bool {
	return len(f) > 1 && foldedSum(f) == 0xff
}

// Bytes returns the stuffed wire encoding including both markers.
func (f Frame) Bytes() []byte {
	b := make([]byte, 0, len(f)+4)
	b = append(b, FrameMarker)
	b = append(b, Stuff(f)...)
	return append(b, FrameMarker)
}

// WriteTo writes the stuffed wire encoding.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// Stuff escapes marker and escape bytes in data.
func Stuff(data []byte) []byte {
	b := make([]byte, 0, len(data))
	for _, c := range data {
		if c == FrameMarker || c == EscapeChar {
			b = append(b, EscapeChar, c^EscapeMask)
		} else {
			b = append(b, c)
		}
	}
	return b
}

// Checksum calculates the checksum byte to be appended after data
// (starting from the length byte).
func Checksum(data []byte) byte {
	return 0xff - foldedSum(data)
}

func foldedSum(data []byte) byte {
	var sum uint16
	for _, c := range data {
		sum += uint16(c)
		sum += sum >> 8
		sum &= 0xff
	}
	return byte(sum)
}
