package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/fport.go/pkg/fport"
	fx "github.com/robotalks/fport.go/pkg/framework"
	"github.com/robotalks/fport.go/pkg/telemetry/mqtt"
	"github.com/robotalks/fport.go/pkg/telemetry/msgs"
	"github.com/robotalks/fport.go/pkg/telemetry/stream"
	"github.com/robotalks/fport.go/pkg/telemetry/websocket"
)

// StatsInterval is the minimum period between published stats events.
var StatsInterval = time.Second

// State is a snapshot of what has been received.
type State struct {
	Frame     fport.Frame
	FrameAt   time.Time
	Control   *fport.Control
	ControlAt time.Time
	Stats     fport.Stats
}

// Monitor receives frames and refreshes the console and the sinks
// periodically.
type Monitor struct {
	Config   *Config
	Receiver *fport.Receiver
	Loop     *fx.Loop

	// Optional sinks, nil when disabled.
	Printer   *Printer
	Metrics   *Metrics
	Publisher *mqtt.Publisher
	WebSocket *websocket.Server
	Recorder  *stream.Recorder

	source      io.Closer
	closers     []io.Closer
	lock        sync.RWMutex
	raw         bool
	state       State
	statsSentAt time.Time
}

// New creates a Monitor from config, opening the source and all
// configured sinks.
func New(conf *Config) (*Monitor, error) {
	src, err := conf.OpenSource()
	if err != nil {
		return nil, err
	}
	var r io.Reader = src
	if conf.ReplayFile != "" {
		r = stream.NewReplayer(src)
	}
	m := NewWithReader(conf, r)
	m.source = &onceCloser{Closer: src}
	m.closers = append(m.closers, m.source)

	if conf.RecordFile != "" {
		f, err := os.Create(conf.RecordFile)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("create record file: %v", err)
		}
		m.closers = append(m.closers, f)
		m.Recorder = stream.NewRecorder(f)
	}
	if conf.MQTTBrokerURL != "" {
		info := mqtt.ReceiverInfo{
			ID: conf.ReceiverID(),
			Meta: mqtt.ReceiverMeta{
				Raw: conf.Raw,
			},
		}
		if conf.ReplayFile == "" && conf.Serial != nil {
			info.Meta.Port, info.Meta.BaudRate = conf.Serial.Port, conf.Serial.BaudRate
		}
		if m.Publisher, err = mqtt.NewPublisher(conf.MQTTBrokerURL, info); err != nil {
			m.Close()
			return nil, fmt.Errorf("create MQTT publisher error: %v", err)
		}
	}
	if conf.HTTPAddr != "" {
		m.WebSocket = websocket.NewServer()
		m.Metrics = NewMetrics()
	}
	return m, nil
}

// NewWithReader creates a Monitor receiving from r without sinks.
func NewWithReader(conf *Config, r io.Reader) *Monitor {
	m := &Monitor{
		Config:   conf,
		Receiver: fport.NewReceiver(r),
		Loop:     fx.NewLoop(),
		raw:      conf.Raw,
	}
	if conf.Interval > 0 {
		m.Loop.Interval = conf.Interval
	}
	// channels are scaled by the monitor so raw can be switched at runtime.
	m.Receiver.Decoder.Raw = true
	m.Receiver.VerifyChecksum = conf.VerifyChecksum
	m.Receiver.FrameHandler = fport.HandleFrameFunc(m.handleFrame)
	m.Receiver.ControlHandler = fport.HandleControlFunc(m.handleControl)
	m.Loop.AddController(fx.ControlFunc(m.refresh))
	m.Loop.AddRunnable(fx.NamedRun("receiver", fx.RunFunc(m.receive)))
	return m
}

// WithPrinter prints to the console.
func (m *Monitor) WithPrinter(out io.Writer) *Monitor {
	m.Printer = &Printer{Out: out, Hex: m.Config.Hex}
	return m
}

// State returns a snapshot of the latest received data.
func (m *Monitor) State() State {
	m.lock.RLock()
	s := m.state
	m.lock.RUnlock()
	s.Stats = m.Receiver.Stats()
	return s
}

// Raw tells whether channel values are unscaled.
func (m *Monitor) Raw() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.raw
}

// SetRaw switches between raw and scaled channel values.
func (m *Monitor) SetRaw(raw bool) {
	m.lock.Lock()
	m.raw = raw
	m.lock.Unlock()
}

// ResetStats clears the receiver counters. Metrics keep counting.
func (m *Monitor) ResetStats() {
	m.Receiver.ResetStats()
}

// Run implements framework.Runnable. It returns nil when the source
// ends normally, e.g. at the end of a replay.
func (m *Monitor) Run(ctx context.Context) error {
	if m.Publisher != nil {
		m.Loop.Add(m.Publisher)
	}
	if m.WebSocket != nil {
		m.Loop.Add(m.WebSocket)
	}
	if m.Config.HTTPAddr != "" {
		m.Loop.AddRunnable(fx.NamedRun("http", fx.RunFunc(m.serveHTTP)))
	}
	err := m.Loop.Run(ctx)
	if m.Printer != nil {
		m.Printer.Print(m.State())
		fmt.Fprintln(m.Printer.Out)
	}
	var errs fx.AggregatedError
	errs.Add(err, m.Close())
	return errs.Aggregate()
}

// Close releases the source and the record file.
func (m *Monitor) Close() error {
	var errs fx.AggregatedError
	for _, c := range m.closers {
		errs.Add(c.Close())
	}
	m.closers = nil
	return errs.Aggregate()
}

// HTTPHandler serves the websocket and metrics endpoints.
func (m *Monitor) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	if m.WebSocket != nil {
		mux.Handle(websocket.DefaultPath, m.WebSocket.Handler())
	}
	if m.Metrics != nil {
		mux.Handle("/metrics", m.Metrics.Handler())
	}
	return mux
}

func (m *Monitor) serveHTTP(ctx context.Context) error {
	server := &http.Server{Addr: m.Config.HTTPAddr, Handler: m.HTTPHandler()}
	glog.Infof("serving on %s", m.Config.HTTPAddr)
	return fx.RunWithContextCancel(ctx, func() {
		server.Close()
	}, server.ListenAndServe)
}

func (m *Monitor) receive(ctx context.Context) error {
	var err error
	if m.source != nil {
		// closing the source unblocks a pending read.
		err = fx.RunWithContextCloser(ctx, m.source, func() error {
			return m.Receiver.Run(ctx)
		})
	} else {
		err = m.Receiver.Run(ctx)
	}
	var serr *fport.StreamError
	if errors.As(err, &serr) {
		if errors.Is(serr, io.EOF) {
			glog.Info("end of stream")
			return nil
		}
		glog.Errorf("receive error: %v", serr)
	}
	return err
}

func (m *Monitor) handleFrame(ctx context.Context, f fport.Frame) {
	m.lock.Lock()
	m.state.Frame, m.state.FrameAt = f, time.Now()
	m.lock.Unlock()
	if m.Recorder != nil {
		m.Recorder.HandleFrame(ctx, f)
	}
}

func (m *Monitor) handleControl(ctx context.Context, ctl *fport.Control) {
	now := time.Now()
	m.lock.Lock()
	if !m.raw {
		ctl.Channels, ctl.Raw = ctl.Channels.Scaled(), false
	}
	m.state.Control, m.state.ControlAt = ctl, now
	m.lock.Unlock()
	fx.LoopCtlFrom(ctx).PostMessage(msgs.ChannelsEventFrom(ctl, now))
}

func (m *Monitor) refresh(cc fx.ControlContext) error {
	s := m.State()
	if m.Metrics != nil {
		m.Metrics.UpdateStats(m.Receiver.Totals())
		if s.Control != nil {
			m.Metrics.UpdateChannels(s.Control.Channels)
		}
	}
	if cc.Time().Sub(m.statsSentAt) >= StatsInterval {
		m.statsSentAt = cc.Time()
		cc.PostMessage(msgs.StatsEventFrom(s.Stats))
	}
	if m.Printer != nil {
		return m.Printer.Print(s)
	}
	return nil
}

type onceCloser struct {
	io.Closer
	once sync.Once
	err  error
}

func (c *onceCloser) Close() error {
	c.once.Do(func() { c.err = c.Closer.Close() })
	return c.err
}
