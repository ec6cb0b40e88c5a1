package fport

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"
)

// FrameHandler is called for every frame received.
type FrameHandler interface {
	HandleFrame(context.Context, Frame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(context.Context, Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame Frame) {
	f(ctx, frame)
}

// ControlHandler is called when a control frame is decoded.
type ControlHandler interface {
	HandleControl(context.Context, *Control)
}

// HandleControlFunc is func type of ControlHandler.
type HandleControlFunc func(context.Context, *Control)

// HandleControl implements ControlHandler.
func (f HandleControlFunc) HandleControl(ctx context.Context, ctl *Control) {
	f(ctx, ctl)
}

// ErrorHandler is called when a frame is rejected. The error is
// always a *FrameError.
type ErrorHandler interface {
	HandleError(context.Context, error)
}

// HandleErrorFunc is func type of ErrorHandler.
type HandleErrorFunc func(context.Context, error)

// HandleError implements ErrorHandler.
func (f HandleErrorFunc) HandleError(ctx context.Context, err error) {
	f(ctx, err)
}

// Stats counts frames processed by a Receiver.
type Stats struct {
	Frames          uint64
	ControlFrames   uint64
	SkippedFrames   uint64
	MalformedFrames uint64
	ChecksumErrors  uint64
}

// Sub returns the counters increased since base.
func (s Stats) Sub(base Stats) Stats {
	return Stats{
		Frames:          s.Frames - base.Frames,
		ControlFrames:   s.ControlFrames - base.ControlFrames,
		SkippedFrames:   s.SkippedFrames - base.SkippedFrames,
		MalformedFrames: s.MalformedFrames - base.MalformedFrames,
		ChecksumErrors:  s.ChecksumErrors - base.ChecksumErrors,
	}
}

// Receiver reads frames from a byte stream and dispatches decoded
// control frames. Malformed frames are reported and skipped.
type Receiver struct {
	Reader         io.Reader
	Decoder        Decoder
	VerifyChecksum bool

	FrameHandler   FrameHandler
	ControlHandler ControlHandler
	ErrorHandler   ErrorHandler

	total Stats
	base  Stats
	lock  sync.RWMutex
}

// NewReceiver creates a Receiver.
func NewReceiver(r io.Reader) *Receiver {
	return &Receiver{Reader: r}
}

// Stats gets a snapshot of the counters since the last ResetStats.
func (r *Receiver) Stats() Stats {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.total.Sub(r.base)
}

// Totals gets a snapshot of the counters since the Receiver was
// created. They are never reset.
func (r *Receiver) Totals() Stats {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.total
}

// ResetStats clears the counters returned by Stats.
func (r *Receiver) ResetStats() {
	r.lock.Lock()
	r.base = r.total
	r.lock.Unlock()
}

// Run receives frames until the stream fails or ctx is done.
// Stream failures are returned as *StreamError.
// Run returns on cancellation while the read goroutine may still be
// blocked on Reader; the caller must close Reader to release it.
func (r *Receiver) Run(ctx context.Context) error {
	frameCh, errCh := make(chan Frame), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.readLoop(subCtx, frameCh, errCh)
	for {
		select {
		case f := <-frameCh:
			r.process(ctx, f)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Receiver) readLoop(ctx context.Context, frameCh chan Frame, errCh chan error) {
	reader := NewFrameReader(ByteSource(r.Reader))
	for {
		f, err := reader.NextFrame()
		if err != nil {
			glog.V(2).Infof("stream failed in %s state with %d bytes pending", reader.State(), reader.Pending())
			errCh <- err
			return
		}
		select {
		case frameCh <- f:
		case <-ctx.Done():
			return
		}
	}
}

func (r *Receiver) process(ctx context.Context, f Frame) {
	r.count(func(s *Stats) { s.Frames++ })
	if h := r.FrameHandler; h != nil {
		h.HandleFrame(ctx, f)
	}
	typ, ok := f.Type()
	if !ok {
		r.reject(ctx, f, ErrFrameTooShort)
		return
	}
	if typ != FrameTypeControl {
		glog.V(4).Infof("skip %s frame", typ)
		r.count(func(s *Stats) { s.SkippedFrames++ })
		return
	}
	if r.VerifyChecksum && !f.ValidChecksum() {
		r.reject(ctx, f, ErrBadChecksum)
		return
	}
	ctl, err := r.Decoder.DecodeControl(f)
	if err != nil {
		r.reject(ctx, f, err)
		return
	}
	r.count(func(s *Stats) { s.ControlFrames++ })
	if h := r.ControlHandler; h != nil {
		h.HandleControl(ctx, ctl)
	}
}

func (r *Receiver) reject(ctx context.Context, f Frame, err error) {
	r.count(func(s *Stats) {
		if err == ErrBadChecksum {
			s.ChecksumErrors++
		} else {
			s.MalformedFrames++
		}
	})
	ferr := &FrameError{Frame: f, Err: err}
	glog.V(2).Infof("frame rejected: %v", ferr)
	if h := r.ErrorHandler; h != nil {
		h.HandleError(ctx, ferr)
	}
}

func (r *Receiver) count(fn func(*Stats)) {
	r.lock.Lock()
	fn(&r.total)
	r.lock.Unlock()
}
