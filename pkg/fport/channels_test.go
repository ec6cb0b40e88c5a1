package fport

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// unpackChannelAt extracts a channel by bit position, combining up to
// 3 bytes spanned by the field.
func unpackChannelAt(data []byte, n int) uint16 {
	pos := n * ChannelBits
	index, shift := pos/8, uint(pos%8)
	var raw uint32
	for i := 0; i < 3 && index+i < ChannelDataLen; i++ {
		raw |= uint32(data[index+i]) << (8 * uint(i))
	}
	return uint16((raw >> shift) & ChannelMask)
}

func packChannels(c ChannelSet) []byte {
	data := make([]byte, ChannelDataLen)
	for n, val := range c {
		for bit := 0; bit < ChannelBits; bit++ {
			if val&(1<<uint(bit)) != 0 {
				pos := n*ChannelBits + bit
				data[pos/8] |= 1 << uint(pos%8)
			}
		}
	}
	return data
}

func controlBody(data []byte) []byte {
	return append([]byte{byte(FrameTypeControl)}, data...)
}

func TestUnpackChannels(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	for i := 0; i < 200; i++ {
		data := randomPayload(rnd, ChannelDataLen, true)
		c := UnpackChannels(data)
		for n := range c {
			require.Equalf(t, unpackChannelAt(data, n), c[n], "channel %d of % x", n, data)
			require.True(t, c[n] <= ChannelRawMax)
		}
	}
}

func TestUnpackChannelsPacked(t *testing.T) {
	var c ChannelSet
	for n := range c {
		c[n] = uint16(n*131) & ChannelMask
	}
	c[0], c[15] = 0, ChannelRawMax
	require.Equal(t, c, UnpackChannels(packChannels(c)))

	// all bits set.
	data := make([]byte, ChannelDataLen)
	for n := range data {
		data[n] = 0xff
	}
	for _, val := range UnpackChannels(data) {
		require.Equal(t, uint16(ChannelRawMax), val)
	}
}

func TestScaleChannel(t *testing.T) {
	require.Equal(t, uint16(880), ScaleChannel(0))
	require.Equal(t, uint16(ChannelCenter), ScaleChannel(992))
	require.Equal(t, uint16(2159), ScaleChannel(ChannelRawMax))
	for raw := uint16(1); raw <= ChannelRawMax; raw++ {
		require.True(t, ScaleChannel(raw-1) <= ScaleChannel(raw))
	}
}

func TestDecodeControlFrame(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		data := randomPayload(rnd, ChannelDataLen, true)
		raw, err := Decoder{Raw: true}.DecodeControlFrame(controlBody(data))
		require.NoError(t, err)
		require.Equal(t, UnpackChannels(data), raw)
		scaled, err := DecodeControlFrame(controlBody(data))
		require.NoError(t, err)
		require.Len(t, scaled, NumChannels)
		for n, val := range scaled {
			require.True(t, val >= 880 && val <= 2159)
			require.Equal(t, ScaleChannel(raw[n]), val)
		}
	}
}

func TestDecodeControlFrameCenter(t *testing.T) {
	var c ChannelSet
	for n := range c {
		c[n] = 992
	}
	scaled, err := DecodeControlFrame(controlBody(packChannels(c)))
	require.NoError(t, err)
	for _, val := range scaled {
		require.Equal(t, uint16(1500), val)
	}
}

func TestDecodeControlFrameMalformed(t *testing.T) {
	full := controlBody(make([]byte, ChannelDataLen))
	for l := 0; l < ControlBodyLen; l++ {
		_, err := DecodeControlFrame(full[:l])
		require.Equalf(t, ErrFrameTooShort, err, "len %d", l)
	}
	body := append([]byte(nil), full...)
	body[0] = byte(FrameTypeDownlink)
	_, err := DecodeControlFrame(body)
	require.Equal(t, ErrInvalidFrameType, err)
	require.True(t, IsMalformed(err))
	require.False(t, IsMalformed(ErrBadChecksum))
}

func TestDecodeControl(t *testing.T) {
	var c ChannelSet
	c[2] = 1811
	data := append(packChannels(c), byte(FlagFailsafe|FlagFrameLost), 0x64)
	f := NewFrame(FrameTypeControl, data)
	require.Equal(t, byte(ControlLength), f.Length())

	ctl, err := Decoder{Raw: true}.DecodeControl(f)
	require.NoError(t, err)
	require.True(t, ctl.Raw)
	require.Equal(t, c, ctl.Channels)
	require.True(t, ctl.HasStatus)
	require.True(t, ctl.Flags.Failsafe())
	require.True(t, ctl.Flags.FrameLost())
	require.Equal(t, byte(0x64), ctl.RSSI)

	// without status the byte after channels is the checksum.
	f = NewFrame(FrameTypeControl, packChannels(c))
	ctl, err = Decoder{}.DecodeControl(f)
	require.NoError(t, err)
	require.False(t, ctl.Raw)
	require.False(t, ctl.HasStatus)
	require.Equal(t, c.Scaled(), ctl.Channels)

	_, err = Decoder{}.DecodeControl(f[:10])
	require.Equal(t, ErrFrameTooShort, err)
}

func TestChannelSetString(t *testing.T) {
	var c ChannelSet
	for n := range c {
		c[n] = uint16(n * 100)
	}
	require.Equal(t,
		"0000 0100 0200 0300 0400 0500 0600 0700 0800 0900 1000 1100 1200 1300 1400 1500",
		c.String())
}
