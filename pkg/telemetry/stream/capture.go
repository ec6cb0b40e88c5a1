package stream

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/fport.go/pkg/fport"
)

// Recorder writes every received frame into a capture stream.
type Recorder struct {
	W PacketWriter

	lock   sync.Mutex
	frames int
	err    error
}

// NewRecorder creates a Recorder.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{W: NewWriter(w)}
}

// HandleFrame implements fport.FrameHandler.
// Recording stops at the first write error.
func (r *Recorder) HandleFrame(ctx context.Context, frame fport.Frame) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.err != nil {
		return
	}
	if r.err = r.W.WritePacket(frame); r.err != nil {
		glog.Errorf("record frame error: %v", r.err)
		return
	}
	r.frames++
}

// Frames returns the number of frames recorded.
func (r *Recorder) Frames() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.frames
}

// Err returns the write error which stopped recording.
func (r *Recorder) Err() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.err
}

// Replayer reads a capture stream and yields the wire encoding of the
// recorded frames, suitable as input of fport.Receiver.
type Replayer struct {
	R PacketReader

	buf bytes.Buffer
	err error
}

// NewReplayer creates a Replayer.
func NewReplayer(r io.Reader) *Replayer {
	return &Replayer{R: NewReader(r)}
}

// Read implements io.Reader.
func (r *Replayer) Read(p []byte) (int, error) {
	for r.buf.Len() == 0 {
		if r.err != nil {
			return 0, r.err
		}
		pkt, err := r.R.ReadPacket()
		if err != nil {
			r.err = err
			continue
		}
		if len(pkt) == 0 {
			continue
		}
		r.buf.Write(fport.Frame(pkt).Bytes())
	}
	return r.buf.Read(p)
}
