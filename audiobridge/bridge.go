package audiobridge

import (
	"sync/atomic"

	"gobot.io/x/gobot"
)

// ServerPort is the process-callback contract the bridge drives: once
// per server period it is asked for exactly n frames of float32 PCM per
// channel. A real binding would be a JACK (or similar) client library;
// none is present in this repo's dependency set, so Bridge takes any
// implementation satisfying this interface (see DESIGN.md).
type ServerPort interface {
	// Channels reports how many output ports are registered.
	Channels() int
	// Deliver publishes one period of already-resampled audio, one
	// slice per channel, each exactly n samples long.
	Deliver(frames [][]float32) error
}

// captureStream is the subset of Capture's behavior Bridge depends on. It
// exists so a test can drive Cycle against a fake sound card instead of
// an open portaudio stream.
type captureStream interface {
	Read() error
	AvailableFrames() int
	Peek(n int) [][]float64
	Consume(n int)
	Take(n int) [][]float64
	Rewind(n int) int
	Close() error
}

// Config holds the bridge's tuning knobs.
type Config struct {
	Capture    CaptureConfig
	Server     ServerPort
	ServerRate float64 // the audio server's clock, e.g. 48000

	// TargetDelay is the number of captured frames the bridge tries to
	// keep buffered ahead of the server callback.
	TargetDelay int
	// MaxDiff is the allowable deviation from TargetDelay before a
	// correction (consume or rewind) fires.
	MaxDiff int
	// PeriodFrames is N, the frame count the server requests per cycle.
	PeriodFrames int
}

// Bridge is the synchronous resampling bridge: it owns the capture
// stream, one Controller, and one Resampler per channel, and drives
// ServerPort.Deliver once per cycle. It satisfies gobot.Device so it can
// be started and halted alongside the Tuner in the same Robot.
type Bridge struct {
	cfg        Config
	capture    captureStream
	controller *Controller
	resamplers []*Resampler

	name string
	quit int32
}

// NewBridge wires a Bridge from an already-open Capture.
func NewBridge(cfg Config, capture *Capture) *Bridge {
	return newBridgeWithCapture(cfg, capture)
}

// newBridgeWithCapture takes the captureStream seam directly, letting
// tests substitute a fake sound card in place of an open portaudio
// stream.
func newBridgeWithCapture(cfg Config, capture captureStream) *Bridge {
	resamplers := make([]*Resampler, cfg.Capture.Channels)
	for i := range resamplers {
		resamplers[i] = NewResampler()
	}

	return &Bridge{
		cfg:        cfg,
		capture:    capture,
		controller: NewController(cfg.ServerRate / cfg.Capture.SampleRate),
		resamplers: resamplers,
		name:       gobot.DefaultName("AudioBridge"),
	}
}

func (b *Bridge) Name() string     { return b.name }
func (b *Bridge) SetName(n string) { b.name = n }

// Start begins the realtime loop on its own goroutine; the loop itself
// runs until Halt sets the quit flag or a cycle returns a KindConfig
// error, checking the flag between cycles rather than
// blocking on an external server (no real-time JACK client is wired in
// this repo, see DESIGN.md).
func (b *Bridge) Start() error {
	go b.run()
	return nil
}

// Halt requests the loop stop and closes the capture stream.
func (b *Bridge) Halt() error {
	atomic.StoreInt32(&b.quit, 1)
	return b.capture.Close()
}

func (b *Bridge) run() {
	for atomic.LoadInt32(&b.quit) == 0 {
		if err := b.Cycle(); err != nil {
			if e, ok := err.(*Error); ok && e.Kind == KindConfig {
				return
			}
		}
	}
}

// Cycle runs exactly one server-callback period: it queries the
// captured-frame delay, corrects it if it has drifted past MaxDiff,
// computes the next resample factor, converts one period of audio per
// channel, and delivers it to the server.
func (b *Bridge) Cycle() error {
	if err := b.capture.Read(); err != nil {
		if e, ok := err.(*Error); ok && e.Kind == KindXrun {
			// The capture stream keeps running after an overflow; reset
			// the controller so the integral doesn't fight the jump in
			// buffer state.
			b.controller.ResetFor(b.controller.Static)
		} else {
			return err
		}
	}

	delay := b.capture.AvailableFrames()
	target := b.cfg.TargetDelay
	diff := delay - target

	if diff > b.cfg.MaxDiff {
		b.capture.Take(diff)
		b.controller.ResetFor(b.controller.Static)
	} else if diff < -b.cfg.MaxDiff {
		b.capture.Rewind(-diff)
		b.controller.ResetFor(b.controller.Static)
	}

	factor := b.controller.Step(float64(diff))

	n := b.cfg.PeriodFrames
	wantIn := int(float64(n)/factor) + 2
	channelsIn := b.capture.Peek(wantIn)

	out := make([][]float32, len(b.resamplers))
	consumed := 0
	for ch, r := range b.resamplers {
		converted := make([]float64, n)
		consumed = r.Process(channelsIn[ch], factor, n, converted)
		out[ch] = make([]float32, n)
		for i, v := range converted {
			out[ch][i] = float32(v)
		}
	}
	b.capture.Consume(consumed)

	return b.cfg.Server.Deliver(out)
}
