package monitor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/fport.go/pkg/fport"
)

func TestFormat(t *testing.T) {
	data := []byte{0x7e, 0x19, 0x00, 0x05}
	require.Equal(t, "7e 19 00 05", FormatHex(data))
	require.Equal(t, "01111110 00011001 00000000 00000101", FormatBinary(data))
	require.Empty(t, FormatHex(nil))
}

func TestPrinter(t *testing.T) {
	var out bytes.Buffer
	p := &Printer{Out: &out}
	require.NoError(t, p.Print(State{}))
	require.Empty(t, out.String())

	ctl := &fport.Control{}
	ctl.Channels[0] = 880
	require.NoError(t, p.Print(State{Control: ctl}))
	require.NoError(t, p.Print(State{Control: ctl}))
	ctl.Channels[0] = 2159
	require.NoError(t, p.Print(State{Control: ctl}))
	require.Equal(t,
		"\r0880 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000"+
			"\r2159 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000 0000",
		out.String())
}
