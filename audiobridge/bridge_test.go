package audiobridge

import "testing"

// fakeCapture is a captureStream double driven entirely by test-set
// counters, so Cycle's correction branches can be exercised without a
// portaudio stream.
type fakeCapture struct {
	channels int

	available int
	readErr   error

	takeCalls   []int
	rewindCalls []int
}

func (f *fakeCapture) Read() error {
	err := f.readErr
	f.readErr = nil
	return err
}

func (f *fakeCapture) AvailableFrames() int { return f.available }

func (f *fakeCapture) Peek(n int) [][]float64 {
	if n > f.available {
		n = f.available
	}
	out := make([][]float64, f.channels)
	for ch := range out {
		out[ch] = make([]float64, n)
	}
	return out
}

func (f *fakeCapture) Consume(n int) {
	if n > f.available {
		n = f.available
	}
	f.available -= n
}

func (f *fakeCapture) Take(n int) [][]float64 {
	f.takeCalls = append(f.takeCalls, n)
	out := f.Peek(n)
	if len(out) > 0 {
		f.Consume(len(out[0]))
	}
	return out
}

func (f *fakeCapture) Rewind(n int) int {
	f.rewindCalls = append(f.rewindCalls, n)
	f.available += n
	return n
}

func (f *fakeCapture) Close() error { return nil }

// fakeServerPort records every delivered period without touching it.
type fakeServerPort struct {
	channels  int
	delivered [][][]float32
}

func (s *fakeServerPort) Channels() int { return s.channels }

func (s *fakeServerPort) Deliver(frames [][]float32) error {
	s.delivered = append(s.delivered, frames)
	return nil
}

func newTestBridge(capture *fakeCapture, server *fakeServerPort) *Bridge {
	return newBridgeWithCapture(Config{
		Capture:      CaptureConfig{SampleRate: 48000, Channels: capture.channels},
		Server:       server,
		ServerRate:   48000,
		TargetDelay:  1000,
		MaxDiff:      100,
		PeriodFrames: 64,
	}, capture)
}

func TestCycleOverflowConsumesExactlyTheDelayOverTarget(t *testing.T) {
	capture := &fakeCapture{channels: 1, available: 1300}
	server := &fakeServerPort{channels: 1}
	b := newTestBridge(capture, server)

	if err := b.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	if len(capture.takeCalls) != 1 {
		t.Fatalf("Take calls = %v, want exactly one call", capture.takeCalls)
	}
	if got, want := capture.takeCalls[0], 300; got != want {
		t.Errorf("overflow consume = %d, want %d (delay-target, not delay-target-maxDiff)", got, want)
	}
}

func TestCycleUnderflowRewindsExactlyTheTargetOverDelay(t *testing.T) {
	capture := &fakeCapture{channels: 1, available: 700}
	server := &fakeServerPort{channels: 1}
	b := newTestBridge(capture, server)

	if err := b.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	if len(capture.rewindCalls) != 1 {
		t.Fatalf("Rewind calls = %v, want exactly one call", capture.rewindCalls)
	}
	if got, want := capture.rewindCalls[0], 300; got != want {
		t.Errorf("underflow rewind = %d, want %d (target-delay)", got, want)
	}
}

func TestCycleWithinMaxDiffNeitherConsumesNorRewinds(t *testing.T) {
	capture := &fakeCapture{channels: 1, available: 1050}
	server := &fakeServerPort{channels: 1}
	b := newTestBridge(capture, server)

	if err := b.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	if len(capture.takeCalls) != 0 {
		t.Errorf("Take calls = %v, want none within maxDiff", capture.takeCalls)
	}
	if len(capture.rewindCalls) != 0 {
		t.Errorf("Rewind calls = %v, want none within maxDiff", capture.rewindCalls)
	}
}

func TestCycleXrunRecoveryResetsControllerAndStillDelivers(t *testing.T) {
	capture := &fakeCapture{channels: 2, available: 1000, readErr: newError(KindXrun, "read", nil)}
	server := &fakeServerPort{channels: 2}
	b := newTestBridge(capture, server)

	if err := b.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if len(server.delivered) != 1 {
		t.Fatalf("delivered periods = %d, want 1", len(server.delivered))
	}
	if got := len(server.delivered[0]); got != 2 {
		t.Errorf("delivered channel count = %d, want 2", got)
	}
}

func TestCycleConfigErrorPropagatesWithoutDelivering(t *testing.T) {
	capture := &fakeCapture{channels: 1, available: 1000, readErr: newError(KindConfig, "read", nil)}
	server := &fakeServerPort{channels: 1}
	b := newTestBridge(capture, server)

	err := b.Cycle()
	if err == nil {
		t.Fatal("Cycle: want error, got nil")
	}
	if len(server.delivered) != 0 {
		t.Errorf("delivered periods = %d, want 0 on a config error", len(server.delivered))
	}
}
