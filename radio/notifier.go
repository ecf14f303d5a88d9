package radio

import (
	"fmt"
	"io"
	"os"
)

// Notifier emits the line-oriented human output described by the external
// interfaces section: Program/Text/Date/stereo/traffic/switching lines.
// It is deliberately separate from the charmbracelet/log diagnostics used
// elsewhere in this repo, since these lines are the program's actual
// output contract, not a debugging aid.
type Notifier struct {
	w io.Writer
}

// NewNotifier wraps w. A nil w defaults to os.Stdout.
func NewNotifier(w io.Writer) *Notifier {
	if w == nil {
		w = os.Stdout
	}
	return &Notifier{w: w}
}

func (n *Notifier) line(format string, v ...interface{}) {
	fmt.Fprintf(n.w, format+"\n", v...)
}

func (n *Notifier) Program(name string)        { n.line("Program: %s", name) }
func (n *Notifier) Text(text string)            { n.line("Text: %s", text) }
func (n *Notifier) Date(s string)               { n.line("Date: %s", s) }
func (n *Notifier) ProgramType(name string)     { n.line("Program type: %s", name) }
func (n *Notifier) FrequencyTuned(mhz float64)  { n.line("Frequency tuned to %.2f", mhz) }
func (n *Notifier) SwitchingTo(name string, mhz float64) {
	n.line("Switching to %s (%.2f)", name, mhz)
}
func (n *Notifier) NoOtherStations() { n.line("No other stations known") }

func (n *Notifier) Stereo(isStereo bool) {
	if isStereo {
		n.line("Program is stereo")
		return
	}
	n.line("Program is mono")
}

func (n *Notifier) TrafficAnnouncement(on bool) {
	if on {
		n.line("Traffic announcement on")
		return
	}
	n.line("Traffic announcement off")
}

func (n *Notifier) TMC(duration, extent, event, location int) {
	n.line("TMC: duration=%s extent=%d event=%d location=%d", tmcDurationLabels[duration], extent, event, location)
}

func (n *Notifier) Verbosef(format string, v ...interface{}) {
	n.line(format, v...)
}
