// Package sh provides an interactive shell over a running monitor.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/fport.go/pkg/fport"
	"github.com/robotalks/fport.go/pkg/monitor"
	"github.com/robotalks/fport.go/pkg/telemetry/msgs"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell   *ishell.Shell
	Config  *monitor.Config
	Monitor *monitor.Monitor

	cancel func()
	doneCh chan error
}

const (
	shellKey = "$shell"
	prompt   = "fport > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ChannelsCmd,
		&RawCmd,
		&FrameCmd,
		&StatsCmd,
		&ResetStatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *monitor.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeRunning wraps command func requires a running monitor.
func MustBeRunning(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Monitor == nil {
			c.Err(fmt.Errorf("monitor not running"))
			return
		}
		select {
		case err := <-s.doneCh:
			s.Monitor, s.doneCh = nil, nil
			if err == nil {
				err = fmt.Errorf("monitor stopped")
			}
			c.Err(err)
			return
		default:
		}
		fn(c)
	}
}

// Start opens the receiver and runs the monitor in background.
func (s *Shell) Start() error {
	m, err := monitor.New(s.Config)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.Monitor, s.cancel, s.doneCh = m, cancel, make(chan error, 1)
	go func() {
		s.doneCh <- m.Run(ctx)
	}()
	return nil
}

// Stop stops the monitor.
func (s *Shell) Stop() {
	if s.Monitor != nil {
		s.cancel()
		if s.doneCh != nil {
			<-s.doneCh
		}
		s.Monitor, s.doneCh = nil, nil
	}
}

// Print writes v in JSON if requested, otherwise as text.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Start(); err != nil {
		log.Fatalln(err)
	}
	defer s.Stop()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// FormatControl prints a decoded control frame for display.
func FormatControl(ctl *fport.Control, at time.Time) string {
	var w bytes.Buffer
	w.WriteString(ctl.Channels.String())
	if ctl.Raw {
		w.WriteString(" (raw)")
	}
	if ctl.HasStatus {
		fmt.Fprintf(&w, "\nrssi=%d", ctl.RSSI)
		if ctl.Flags.FrameLost() {
			w.WriteString(" frame-lost")
		}
		if ctl.Flags.Failsafe() {
			w.WriteString(" failsafe")
		}
	}
	if !at.IsZero() {
		fmt.Fprintf(&w, "\n%s ago", time.Since(at).Truncate(time.Millisecond))
	}
	return w.String()
}

// FormatStats prints counters for display.
func FormatStats(st fport.Stats) string {
	return fmt.Sprintf("frames=%d control=%d skipped=%d malformed=%d checksum-errors=%d",
		st.Frames, st.ControlFrames, st.SkippedFrames, st.MalformedFrames, st.ChecksumErrors)
}

// ParseOnOff parses a switch argument.
func ParseOnOff(arg string) (bool, error) {
	switch arg {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid switch %q, expect on or off", arg)
}

var (
	// ChannelsCmd prints the latest channel values.
	ChannelsCmd = ishell.Cmd{
		Name:    "channels",
		Aliases: []string{"ch"},
		Help:    "",
		Func: MustBeRunning(func(c *ishell.Context) {
			s := ShellFrom(c)
			st := s.Monitor.State()
			if st.Control == nil {
				c.Err(fmt.Errorf("no control frame received"))
				return
			}
			s.Print(c, msgs.ChannelsEventFrom(st.Control, st.ControlAt),
				FormatControl(st.Control, st.ControlAt))
		}),
	}

	// RawCmd switches raw channel values.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "[on|off]",
		Func: MustBeRunning(func(c *ishell.Context) {
			m := ShellFrom(c).Monitor
			if len(c.Args) > 0 {
				raw, err := ParseOnOff(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				m.SetRaw(raw)
			}
			if m.Raw() {
				c.Println("raw on")
			} else {
				c.Println("raw off")
			}
		}),
	}

	// FrameCmd dumps the last frame.
	FrameCmd = ishell.Cmd{
		Name:    "frame",
		Aliases: []string{"f"},
		Help:    "",
		Func: MustBeRunning(func(c *ishell.Context) {
			st := ShellFrom(c).Monitor.State()
			if st.Frame == nil {
				c.Err(fmt.Errorf("no frame received"))
				return
			}
			c.Println(monitor.FormatHex(st.Frame))
			c.Println(monitor.FormatBinary(st.Frame))
		}),
	}

	// StatsCmd prints the receiver counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: MustBeRunning(func(c *ishell.Context) {
			s := ShellFrom(c)
			st := s.Monitor.State().Stats
			s.Print(c, msgs.StatsEventFrom(st), FormatStats(st))
		}),
	}

	// ResetStatsCmd clears the receiver counters.
	ResetStatsCmd = ishell.Cmd{
		Name: "reset-stats",
		Help: "",
		Func: MustBeRunning(func(c *ishell.Context) {
			ShellFrom(c).Monitor.ResetStats()
			c.Println("OK")
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	monitor.SetupFlags()
	flag.Parse()
	New(monitor.NewConfig()).Run(flag.Args()...)
}
