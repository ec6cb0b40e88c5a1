package fport

// ParseState is the state of the deframer.
type ParseState int

const (
	// StateIdle means no marker has been seen, bytes are dropped.
	StateIdle ParseState = iota
	// StateCollecting means bytes are appended to the current frame.
	StateCollecting
	// StateEscapePending means the next byte is unmasked before appending.
	StateEscapePending
)

// String implements fmt.Stringer.
func (s ParseState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateEscapePending:
		return "escape-pending"
	}
	return "unknown"
}

// Parser recovers frames from bytes received one at a time.
// The zero value is ready to use.
type Parser struct {
	state ParseState
	buf   []byte
}

// State gets the current parse state.
func (p *Parser) State() ParseState {
	return p.state
}

// Pending returns the number of bytes collected for the current frame.
func (p *Parser) Pending() int {
	return len(p.buf)
}

// Parse consumes one byte. It returns the frame completed by this byte,
// or nil.
func (p *Parser) Parse(b byte) Frame {
	if b == FrameMarker {
		// a marker ends the current frame and starts the next one.
		p.state = StateCollecting
		if len(p.buf) == 0 {
			return nil
		}
		f := Frame(p.buf)
		p.buf = nil
		return f
	}
	switch p.state {
	case StateCollecting:
		if b == EscapeChar {
			p.state = StateEscapePending
			return nil
		}
		p.buf = append(p.buf, b)
	case StateEscapePending:
		p.buf = append(p.buf, b^EscapeMask)
		p.state = StateCollecting
	}
	return nil
}
