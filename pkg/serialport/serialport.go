// Package serialport opens the UART an F.Port receiver is attached to.
package serialport

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jacobsa/go-serial/serial"
)

// DefaultBaudRate is the F.Port baud rate.
const DefaultBaudRate = 115200

// Config defines the serial port options.
type Config struct {
	Port     string
	BaudRate uint
	// InterCharacterTimeout in milliseconds, 0 to block until a byte arrives.
	InterCharacterTimeout uint
}

var defaultConfig = Config{
	BaudRate: DefaultBaudRate,
}

func init() {
	if val := os.Getenv("FPORT_PORT"); val != "" {
		defaultConfig.Port = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port of the F.Port receiver.")
	flag.UintVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Baud rate.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// OpenOptions converts the config into options for serial.Open.
func (c *Config) OpenOptions() serial.OpenOptions {
	opts := serial.OpenOptions{
		PortName:              c.Port,
		BaudRate:              c.BaudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: c.InterCharacterTimeout,
	}
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.InterCharacterTimeout == 0 {
		opts.MinimumReadSize = 1
	}
	return opts
}

// Open opens the serial port.
func (c *Config) Open() (io.ReadWriteCloser, error) {
	if c.Port == "" {
		return nil, fmt.Errorf("serial port must be specified")
	}
	port, err := serial.Open(c.OpenOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", c.Port, err)
	}
	return port, nil
}
