package monitor

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/fport.go/pkg/fport"
)

// Metrics exports receiver counters and channel values to Prometheus.
type Metrics struct {
	Frames          prometheus.Counter
	ControlFrames   prometheus.Counter
	SkippedFrames   prometheus.Counter
	MalformedFrames prometheus.Counter
	ChecksumErrors  prometheus.Counter
	ChannelValue    *prometheus.GaugeVec

	registry *prometheus.Registry
	lock     sync.Mutex
	last     fport.Stats
}

// NewMetrics creates Metrics in a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fport_frames_total",
			Help: "Total number of frames received",
		}),
		ControlFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fport_control_frames_total",
			Help: "Total number of control frames decoded",
		}),
		SkippedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fport_skipped_frames_total",
			Help: "Total number of non-control frames skipped",
		}),
		MalformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fport_malformed_frames_total",
			Help: "Total number of malformed control frames",
		}),
		ChecksumErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fport_checksum_errors_total",
			Help: "Total number of frames with bad checksum",
		}),
		ChannelValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fport_channel_value",
			Help: "Latest value of each channel",
		}, []string{"channel"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.Frames,
		m.ControlFrames,
		m.SkippedFrames,
		m.MalformedFrames,
		m.ChecksumErrors,
		m.ChannelValue,
	)
	return m
}

// Handler serves the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// UpdateStats adds the increase since last update to the counters.
// s must be monotonic, e.g. Receiver.Totals.
func (m *Metrics) UpdateStats(s fport.Stats) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.Frames.Add(delta(s.Frames, m.last.Frames))
	m.ControlFrames.Add(delta(s.ControlFrames, m.last.ControlFrames))
	m.SkippedFrames.Add(delta(s.SkippedFrames, m.last.SkippedFrames))
	m.MalformedFrames.Add(delta(s.MalformedFrames, m.last.MalformedFrames))
	m.ChecksumErrors.Add(delta(s.ChecksumErrors, m.last.ChecksumErrors))
	m.last = s
}

// UpdateChannels sets the channel gauges.
func (m *Metrics) UpdateChannels(c fport.ChannelSet) {
	for n, val := range c {
		m.ChannelValue.WithLabelValues(strconv.Itoa(n + 1)).Set(float64(val))
	}
}

func delta(cur, last uint64) float64 {
	if cur < last {
		return 0
	}
	return float64(cur - last)
}
