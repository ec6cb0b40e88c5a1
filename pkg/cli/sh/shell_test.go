package sh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/fport.go/pkg/fport"
)

func TestParseOnOff(t *testing.T) {
	for _, arg := range []string{"on", "true", "1"} {
		val, err := ParseOnOff(arg)
		require.NoError(t, err)
		require.True(t, val)
	}
	for _, arg := range []string{"off", "false", "0"} {
		val, err := ParseOnOff(arg)
		require.NoError(t, err)
		require.False(t, val)
	}
	_, err := ParseOnOff("maybe")
	require.Error(t, err)
}

func TestFormatControl(t *testing.T) {
	ctl := &fport.Control{
		Raw:       true,
		HasStatus: true,
		Flags:     fport.FlagFrameLost | fport.FlagFailsafe,
		RSSI:      80,
	}
	require.Equal(t,
		ctl.Channels.String()+" (raw)\nrssi=80 frame-lost failsafe",
		FormatControl(ctl, time.Time{}))
	require.Equal(t, ctl.Channels.String(), FormatControl(&fport.Control{}, time.Time{}))
}

func TestFormatStats(t *testing.T) {
	require.Equal(t,
		"frames=5 control=2 skipped=1 malformed=1 checksum-errors=1",
		FormatStats(fport.Stats{Frames: 5, ControlFrames: 2, SkippedFrames: 1, MalformedFrames: 1, ChecksumErrors: 1}))
}
