package audiobridge

import (
	"github.com/gordonklaus/portaudio"
)

// CaptureConfig describes the sound-card side of the bridge: 16-bit
// signed interleaved capture at a fixed source rate, matching the sound
// card external interface.
type CaptureConfig struct {
	Device     string // not consulted: OpenCapture always uses the host default input device
	SampleRate float64
	Channels   int
	Period     int // frames per period
	Periods    int
}

// maxHistoryFrames bounds how many consumed frames Capture keeps around
// for Rewind, so a long run without an underflow correction doesn't grow
// history without limit.
const maxHistoryFrames = 8192

// Capture wraps a portaudio input-only stream, reading interleaved
// int16 frames and exposing a rewind for the bridge's drift correction.
type Capture struct {
	cfg    CaptureConfig
	stream *portaudio.Stream
	buf    []int16

	pending []int16 // frames read but not yet consumed by a cycle
	history []int16 // most recently consumed frames, kept for Rewind
}

// OpenCapture opens the host default input device at cfg's channel count,
// sample rate and period; cfg.Device is not used to pick another device.
// portaudio.Initialize must already have been called by the caller (once
// per process).
func OpenCapture(cfg CaptureConfig) (*Capture, error) {
	c := &Capture{cfg: cfg, buf: make([]int16, cfg.Period*cfg.Channels)}

	stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, cfg.SampleRate, cfg.Period, c.buf)
	if err != nil {
		return nil, newError(KindConfig, "open-capture", err)
	}
	c.stream = stream

	if err := stream.Start(); err != nil {
		return nil, newError(KindConfig, "start-capture", err)
	}
	return c, nil
}

// Close stops and closes the underlying stream.
func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return err
	}
	return c.stream.Close()
}

// AvailableFrames reports how many frames are buffered ahead of what a
// cycle has already consumed. Capture.pending grows by a period's worth
// every successful Read.
func (c *Capture) AvailableFrames() int {
	return len(c.pending) / c.cfg.Channels
}

// Read pulls one more period from the sound card into the pending
// buffer. An input overflow is returned as a KindXrun error and that
// period is not added to pending; the stream is left running, not
// restarted. Any other read failure is returned as KindConfig.
func (c *Capture) Read() error {
	if err := c.stream.Read(); err != nil {
		if err == portaudio.InputOverflowed {
			return newError(KindXrun, "read", err)
		}
		return newError(KindConfig, "read", err)
	}
	c.pending = append(c.pending, c.buf...)
	return nil
}

// Peek returns up to n frames from the front of the pending buffer,
// deinterleaved into one float64 slice per channel in [-1, 1], without
// removing them. Pair with Consume once the caller knows how many
// frames it actually used.
func (c *Capture) Peek(n int) [][]float64 {
	channels := c.cfg.Channels
	avail := c.AvailableFrames()
	if n > avail {
		n = avail
	}

	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, n)
	}
	for frame := 0; frame < n; frame++ {
		for ch := 0; ch < channels; ch++ {
			out[ch][frame] = float64(c.pending[frame*channels+ch]) / 32767.0
		}
	}
	return out
}

// Consume removes n frames worth of samples from the front of the
// pending buffer, for the portion of a prior Peek that was actually
// used by the resampler. The removed samples are kept in history so a
// later underflow correction can Rewind back into them.
func (c *Capture) Consume(n int) {
	channels := c.cfg.Channels
	drop := n * channels
	if drop > len(c.pending) {
		drop = len(c.pending)
	}
	c.history = append(c.history, c.pending[:drop]...)
	if max := maxHistoryFrames * channels; len(c.history) > max {
		c.history = c.history[len(c.history)-max:]
	}
	c.pending = c.pending[drop:]
}

// Rewind restores up to n frames most recently removed by Consume to the
// front of the pending buffer, for the bridge's underflow correction. It
// reports how many frames were actually restored, fewer than n once
// history runs out (e.g. early in a run, before enough frames have been
// consumed to rewind into).
func (c *Capture) Rewind(n int) int {
	channels := c.cfg.Channels
	want := n * channels
	if want > len(c.history) {
		want = len(c.history)
	}
	if want <= 0 {
		return 0
	}

	restored := make([]int16, want)
	copy(restored, c.history[len(c.history)-want:])
	c.pending = append(restored, c.pending...)
	c.history = c.history[:len(c.history)-want]
	return want / channels
}

// Take removes and returns n frames (n*channels samples) from the front
// of the pending buffer, deinterleaved into one float64 slice per
// channel in [-1, 1]. It is Peek immediately followed by Consume, for
// callers (like the target-delay correction) that have no use for the
// discarded samples.
func (c *Capture) Take(n int) [][]float64 {
	out := c.Peek(n)
	if len(out) > 0 {
		c.Consume(len(out[0]))
	}
	return out
}
