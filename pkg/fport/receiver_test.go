package fport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type receiverTestEnv struct {
	frames   []Frame
	controls []*Control
	errs     []error
}

func newReceiverTestEnv(r *Receiver) *receiverTestEnv {
	env := &receiverTestEnv{}
	r.FrameHandler = HandleFrameFunc(func(ctx context.Context, f Frame) {
		env.frames = append(env.frames, f)
	})
	r.ControlHandler = HandleControlFunc(func(ctx context.Context, ctl *Control) {
		env.controls = append(env.controls, ctl)
	})
	r.ErrorHandler = HandleErrorFunc(func(ctx context.Context, err error) {
		env.errs = append(env.errs, err)
	})
	return env
}

func TestReceiver(t *testing.T) {
	var c ChannelSet
	for n := range c {
		c[n] = uint16(n * 100)
	}
	good := NewFrame(FrameTypeControl, append(packChannels(c), 0, 0x50))
	badCRC := append(Frame(nil), good...)
	badCRC[len(badCRC)-1] ^= 0x01

	var stream bytes.Buffer
	NewFrame(FrameTypeDownlink, []byte{1, 2, 3}).WriteTo(&stream)
	good.WriteTo(&stream)
	NewFrame(FrameTypeControl, []byte{1, 2, 3}).WriteTo(&stream)
	badCRC.WriteTo(&stream)
	stream.Write([]byte{FrameMarker, 0x01, FrameMarker})

	testCases := []struct {
		name     string
		verify   bool
		controls int
		stats    Stats
	}{
		{
			name:     "no checksum verification",
			controls: 2,
			stats:    Stats{Frames: 5, ControlFrames: 2, SkippedFrames: 1, MalformedFrames: 2},
		},
		{
			name:     "verify checksum",
			verify:   true,
			controls: 1,
			stats:    Stats{Frames: 5, ControlFrames: 1, SkippedFrames: 1, MalformedFrames: 2, ChecksumErrors: 1},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReceiver(bytes.NewReader(stream.Bytes()))
			r.VerifyChecksum = tc.verify
			r.Decoder.Raw = true
			env := newReceiverTestEnv(r)
			err := r.Run(context.Background())
			require.True(t, errors.Is(err, io.EOF))
			var streamErr *StreamError
			require.True(t, errors.As(err, &streamErr))

			require.Len(t, env.frames, 5)
			require.Len(t, env.controls, tc.controls)
			require.Equal(t, c, env.controls[0].Channels)
			require.Equal(t, byte(0x50), env.controls[0].RSSI)
			require.Len(t, env.errs, len(env.frames)-tc.controls-1)
			for _, err := range env.errs {
				var frameErr *FrameError
				require.True(t, errors.As(err, &frameErr))
			}
			require.Equal(t, tc.stats, r.Stats())
			r.ResetStats()
			require.Equal(t, Stats{}, r.Stats())
			require.Equal(t, tc.stats, r.Totals())
		})
	}
}

func TestReceiverCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewReceiver(pr)
	ctlCh := make(chan *Control, 1)
	r.ControlHandler = HandleControlFunc(func(ctx context.Context, ctl *Control) {
		ctlCh <- ctl
	})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	go NewFrame(FrameTypeControl, make([]byte, ChannelDataLen)).WriteTo(pw)
	select {
	case ctl := <-ctlCh:
		require.Equal(t, uint16(ChannelOffset), ctl.Channels[0])
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}

	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestReceiverResetStats(t *testing.T) {
	var stream bytes.Buffer
	for n := 0; n < 3; n++ {
		NewFrame(FrameTypeDownlink, []byte{byte(n)}).WriteTo(&stream)
	}
	r := NewReceiver(&stream)
	resetDone := false
	r.FrameHandler = HandleFrameFunc(func(ctx context.Context, f Frame) {
		if !resetDone {
			resetDone = true
			r.ResetStats()
		}
	})
	require.True(t, errors.Is(r.Run(context.Background()), io.EOF))
	// the first frame is counted before the handler resets.
	require.Equal(t, Stats{Frames: 2, SkippedFrames: 3}, r.Stats())
	require.Equal(t, Stats{Frames: 3, SkippedFrames: 3}, r.Totals())
}
