package fport

import (
	"fmt"
	"strings"
)

// Control frame layout.
const (
	NumChannels    = 16
	ChannelBits    = 11
	ChannelMask    = 0x07ff
	ChannelDataLen = NumChannels * ChannelBits / 8

	// ControlBodyLen is the minimum length of a control frame body:
	// type byte and packed channels.
	ControlBodyLen = 1 + ChannelDataLen
	// ControlLength is the length byte of a control frame carrying
	// flags and RSSI.
	ControlLength = ControlBodyLen + 2
)

// Scaling of raw channel values.
const (
	ChannelRawMax   = ChannelMask
	ChannelOffset   = 880
	ChannelScaleMul = 5
	ChannelScaleDiv = 8
	ChannelCenter   = 1500
)

// ChannelSet holds the values of all channels, indexed by protocol slot.
type ChannelSet [NumChannels]uint16

// String formats channels as the monitor prints them.
func (c ChannelSet) String() string {
	strs := make([]string, len(c))
	for n, val := range c {
		strs[n] = fmt.Sprintf("%04d", val)
	}
	return strings.Join(strs, " ")
}

// Scaled maps raw values to the pulse-width range.
func (c ChannelSet) Scaled() (s ChannelSet) {
	for n, val := range c {
		s[n] = ScaleChannel(val)
	}
	return
}

// ScaleChannel maps a raw 11-bit value to [880, 2159], 992 being 1500.
func ScaleChannel(raw uint16) uint16 {
	return uint16(ChannelScaleMul*uint32(raw)/ChannelScaleDiv + ChannelOffset)
}

// UnpackChannels extracts 11-bit little-endian fields from the packed
// channel data. data must hold at least ChannelDataLen bytes.
func UnpackChannels(data []byte) (c ChannelSet) {
	data = data[:ChannelDataLen]
	var bitsMerged uint
	var value uint32
	var index int
	for n := range c {
		for bitsMerged < ChannelBits {
			value |= uint32(data[index]) << bitsMerged
			index++
			bitsMerged += 8
		}
		c[n] = uint16(value & ChannelMask)
		value >>= ChannelBits
		bitsMerged -= ChannelBits
	}
	return
}

// ControlFlags is the status byte following the channel data.
type ControlFlags byte

// Flags
const (
	FlagFrameLost ControlFlags = 0x04
	FlagFailsafe  ControlFlags = 0x08
)

// FrameLost indicates the receiver missed a frame from the transmitter.
func (f ControlFlags) FrameLost() bool {
	return f&FlagFrameLost != 0
}

// Failsafe indicates the receiver is in failsafe.
func (f ControlFlags) Failsafe() bool {
	return f&FlagFailsafe != 0
}

// Control is a decoded control frame.
type Control struct {
	Channels ChannelSet
	// Raw is set when Channels are not scaled.
	Raw bool
	// HasStatus is set when Flags and RSSI are present in the frame.
	HasStatus bool
	Flags     ControlFlags
	RSSI      byte
}

// Decoder decodes control frames. The zero value scales channels.
type Decoder struct {
	// Raw disables scaling.
	Raw bool
}

// DecodeControlFrame decodes the body (length byte stripped) of a
// control frame.
func (d Decoder) DecodeControlFrame(body []byte) (ChannelSet, error) {
	if len(body) < ControlBodyLen {
		return ChannelSet{}, ErrFrameTooShort
	}
	if FrameType(body[0]) != FrameTypeControl {
		return ChannelSet{}, ErrInvalidFrameType
	}
	c := UnpackChannels(body[1:ControlBodyLen])
	if !d.Raw {
		c = c.Scaled()
	}
	return c, nil
}

// DecodeControl decodes a complete frame, including the status fields
// when the length byte covers them.
func (d Decoder) DecodeControl(f Frame) (*Control, error) {
	channels, err := d.DecodeControlFrame(f.Body())
	if err != nil {
		return nil, err
	}
	ctl := &Control{Channels: channels, Raw: d.Raw}
	if body := f.Body(); f.Length() >= ControlLength && len(body) >= ControlLength {
		ctl.HasStatus = true
		ctl.Flags = ControlFlags(body[ControlBodyLen])
		ctl.RSSI = body[ControlBodyLen+1]
	}
	return ctl, nil
}

// DecodeControlFrame decodes the body of a control frame with scaling.
func DecodeControlFrame(body []byte) (ChannelSet, error) {
	return Decoder{}.DecodeControlFrame(body)
}
