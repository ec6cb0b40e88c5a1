package monitor

import (
	"bytes"
	"fmt"
	"io"
)

// FormatHex formats bytes as space separated hex.
func FormatHex(data []byte) string {
	var w bytes.Buffer
	for n, b := range data {
		if n > 0 {
			w.WriteByte(' ')
		}
		fmt.Fprintf(&w, "%02x", b)
	}
	return w.String()
}

// FormatBinary formats bytes as space separated binary.
func FormatBinary(data []byte) string {
	var w bytes.Buffer
	for n, b := range data {
		if n > 0 {
			w.WriteByte(' ')
		}
		fmt.Fprintf(&w, "%08b", b)
	}
	return w.String()
}

// Printer refreshes a single console line.
type Printer struct {
	Out io.Writer
	Hex bool

	last string
}

// Print writes the line when the content changed.
func (p *Printer) Print(s State) error {
	var line string
	if p.Hex {
		if s.Frame == nil {
			return nil
		}
		line = FormatHex(s.Frame)
	} else {
		if s.Control == nil {
			return nil
		}
		line = s.Control.Channels.String()
	}
	if line == p.last {
		return nil
	}
	p.last = line
	_, err := fmt.Fprint(p.Out, "\r"+line)
	return err
}
