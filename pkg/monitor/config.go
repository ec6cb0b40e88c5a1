// Package monitor wires an F.Port receiver to the console and
// telemetry sinks.
package monitor

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/fport.go/pkg/serialport"
)

// Config defines the monitor options.
type Config struct {
	Serial *serialport.Config

	// Raw keeps channel values unscaled.
	Raw bool
	// VerifyChecksum drops frames with a bad checksum.
	VerifyChecksum bool
	// Hex prints the last frame as hex instead of the channels.
	Hex bool
	// Interval is the refresh period of the console and sinks.
	Interval time.Duration

	// ID identifies the receiver on MQTT, default to machine ID.
	ID string
	// MQTTBrokerURL enables publishing to MQTT,
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// HTTPAddr enables the websocket and metrics endpoints.
	HTTPAddr string

	// RecordFile captures all frames into the file.
	RecordFile string
	// ReplayFile reads frames from a capture instead of the serial port.
	ReplayFile string
}

var defaultConfig = Config{
	Interval: 100 * time.Millisecond,
}

func init() {
	if val := os.Getenv("FPORT_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("FPORT_ID"); val != "" {
		defaultConfig.ID = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	serialport.SetupFlags()
	flag.BoolVar(&defaultConfig.Raw, "raw", defaultConfig.Raw, "Print raw 11-bit channel values.")
	flag.BoolVar(&defaultConfig.VerifyChecksum, "verify-crc", defaultConfig.VerifyChecksum, "Drop frames with bad checksum.")
	flag.BoolVar(&defaultConfig.Hex, "hex", defaultConfig.Hex, "Print frames in hex.")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Refresh interval.")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Receiver ID, default to machine ID.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.HTTPAddr, "http", defaultConfig.HTTPAddr, "Listen address for websocket and metrics.")
	flag.StringVar(&defaultConfig.RecordFile, "record", defaultConfig.RecordFile, "Record frames into file.")
	flag.StringVar(&defaultConfig.ReplayFile, "replay", defaultConfig.ReplayFile, "Replay frames from file.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Serial = serialport.NewConfig()
	return &conf
}

// ReceiverID returns the configured ID or the machine ID.
func (c *Config) ReceiverID() string {
	if c.ID != "" {
		return c.ID
	}
	id, err := machineid.ProtectedID("fport")
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return "fport"
	}
	return id
}

// OpenSource opens the capture file when replaying, otherwise the serial port.
func (c *Config) OpenSource() (io.ReadCloser, error) {
	if c.ReplayFile != "" {
		f, err := os.Open(c.ReplayFile)
		if err != nil {
			return nil, fmt.Errorf("open replay file: %v", err)
		}
		return f, nil
	}
	if c.Serial == nil {
		return nil, fmt.Errorf("serial port must be specified")
	}
	return c.Serial.Open()
}

// MustNew creates a Monitor and fails on error.
func (c *Config) MustNew() *Monitor {
	m, err := New(c)
	if err != nil {
		log.Fatalln(err)
	}
	return m
}
