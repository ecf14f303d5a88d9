package radio

import (
	"errors"
	"testing"
)

var errMissingVolumeControl = errors.New("fake: device has no separate volume control")

// fakeRadioDevice is a radioDevice double: every ioctl call is recorded and
// answered from fields the test sets up directly, so Tuner's facade logic
// (divider selection, range checks, volume mapping) runs without a V4L2
// character device.
type fakeRadioDevice struct {
	caps     uint32
	tunerCap uint32

	freqRaw     uint32
	setFreqErr  error
	seekErr     error
	seekLandRaw uint32

	volMin, volMax int32
	volRangeErr    error

	lastSetFreq uint32
	lastSeekUp  bool
	lastMuted   bool
	lastVolume  int32
	closed      bool
}

func (f *fakeRadioDevice) queryCapability() (uint32, error) { return f.caps, nil }
func (f *fakeRadioDevice) queryTuner() (v4l2Tuner, error) {
	return v4l2Tuner{Capability: f.tunerCap}, nil
}
func (f *fakeRadioDevice) getFrequency() (uint32, error) { return f.freqRaw, nil }
func (f *fakeRadioDevice) setFrequency(raw uint32) error {
	f.lastSetFreq = raw
	f.freqRaw = raw
	return f.setFreqErr
}
func (f *fakeRadioDevice) seek(upward, wrap bool) error {
	f.lastSeekUp = upward
	f.freqRaw = f.seekLandRaw
	return f.seekErr
}
func (f *fakeRadioDevice) setAudioMode(muted bool) error { f.lastMuted = muted; return nil }
func (f *fakeRadioDevice) volumeRange() (int32, int32, error) {
	return f.volMin, f.volMax, f.volRangeErr
}
func (f *fakeRadioDevice) setVolume(raw int32) error { f.lastVolume = raw; return nil }
func (f *fakeRadioDevice) Close() error              { f.closed = true; return nil }

func newTestTuner(t *testing.T, dev *fakeRadioDevice, cfg TunerConfig) *Tuner {
	t.Helper()
	tuner, err := newTunerWithDevice(cfg, dev)
	if err != nil {
		t.Fatalf("newTunerWithDevice: %v", err)
	}
	return tuner
}

func TestTunerSelectsWideRangeDividerByDefault(t *testing.T) {
	dev := &fakeRadioDevice{freqRaw: uint32(98.5 * wideRangeDivider)}
	tuner := newTestTuner(t, dev, TunerConfig{})

	mhz, err := tuner.Frequency()
	if err != nil {
		t.Fatalf("Frequency: %v", err)
	}
	if mhz != 98.5 {
		t.Errorf("Frequency() = %v, want 98.5 (wide-range divider)", mhz)
	}
}

func TestTunerSelectsLowRangeDividerWhenAdvertised(t *testing.T) {
	dev := &fakeRadioDevice{tunerCap: v4l2TunerCapLow}
	dev.freqRaw = uint32(98.5 * lowRangeDivider)
	tuner := newTestTuner(t, dev, TunerConfig{})

	mhz, err := tuner.Frequency()
	if err != nil {
		t.Fatalf("Frequency: %v", err)
	}
	if mhz != 98.5 {
		t.Errorf("Frequency() = %v, want 98.5 (low-range divider)", mhz)
	}
}

func TestTunerSetFrequencyWritesRawValueAtDivider(t *testing.T) {
	dev := &fakeRadioDevice{}
	tuner := newTestTuner(t, dev, TunerConfig{})

	if err := tuner.SetFrequency(98.5); err != nil {
		t.Fatalf("SetFrequency: %v", err)
	}
	if want := uint32(98.5 * wideRangeDivider); dev.lastSetFreq != want {
		t.Errorf("device raw frequency = %d, want %d", dev.lastSetFreq, want)
	}
}

func TestTunerSetFrequencyRejectsOutOfRange(t *testing.T) {
	dev := &fakeRadioDevice{}
	tuner := newTestTuner(t, dev, TunerConfig{MinMHz: 87.5, MaxMHz: 108.0})

	if err := tuner.SetFrequency(87.5); err == nil {
		t.Error("SetFrequency(min) should be rejected, bound is exclusive")
	}
	if err := tuner.SetFrequency(108.0); err == nil {
		t.Error("SetFrequency(max) should be rejected, bound is exclusive")
	}
	if dev.lastSetFreq != 0 {
		t.Errorf("device should not have been written on a rejected frequency, got raw=%d", dev.lastSetFreq)
	}
}

func TestTunerSeekReturnsLandedFrequency(t *testing.T) {
	dev := &fakeRadioDevice{seekLandRaw: uint32(99.25 * wideRangeDivider)}
	tuner := newTestTuner(t, dev, TunerConfig{})

	mhz, err := tuner.Seek(true)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if mhz != 99.25 {
		t.Errorf("Seek() landed at %v, want 99.25", mhz)
	}
	if !dev.lastSeekUp {
		t.Error("seek direction not passed through as upward")
	}
}

func TestTunerSetVolumeMapsLinearlyIntoDeviceRange(t *testing.T) {
	dev := &fakeRadioDevice{volMin: 0, volMax: 100}
	tuner := newTestTuner(t, dev, TunerConfig{})

	if err := tuner.SetVolume(50); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if dev.lastMuted {
		t.Error("SetVolume(50) should not mute")
	}
	if dev.lastVolume != 50 {
		t.Errorf("device volume = %d, want 50", dev.lastVolume)
	}
}

func TestTunerSetVolumeZeroMutes(t *testing.T) {
	dev := &fakeRadioDevice{volMin: 0, volMax: 100}
	tuner := newTestTuner(t, dev, TunerConfig{})

	if err := tuner.SetVolume(0); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if !dev.lastMuted {
		t.Error("SetVolume(0) should mute")
	}
}

func TestTunerSetVolumeWithoutVolumeControlStaysMuteOnly(t *testing.T) {
	dev := &fakeRadioDevice{volRangeErr: errMissingVolumeControl}
	tuner := newTestTuner(t, dev, TunerConfig{})

	if err := tuner.SetVolume(75); err != nil {
		t.Fatalf("SetVolume should tolerate a missing volume control, got %v", err)
	}
	if dev.lastVolume != 0 {
		t.Errorf("device volume should not have been written, got %d", dev.lastVolume)
	}
}

func TestTunerHaltClosesTheDevice(t *testing.T) {
	dev := &fakeRadioDevice{}
	tuner := newTestTuner(t, dev, TunerConfig{})

	if err := tuner.Halt(); err != nil {
		t.Fatalf("Halt: %v", err)
	}
	if !dev.closed {
		t.Error("Halt did not close the underlying device")
	}
}

func TestTunerConfigValidateAppliesDefaults(t *testing.T) {
	cfg := TunerConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Device != "/dev/radio0" {
		t.Errorf("Device = %q, want /dev/radio0", cfg.Device)
	}
	if cfg.MinMHz != 87.5 || cfg.MaxMHz != 108.0 {
		t.Errorf("MinMHz/MaxMHz = %v/%v, want 87.5/108.0", cfg.MinMHz, cfg.MaxMHz)
	}
	if cfg.Log == nil {
		t.Error("Log should default to a non-nil no-op")
	}
}

func TestTunerConfigValidateRejectsInvertedRange(t *testing.T) {
	cfg := TunerConfig{MinMHz: 108.0, MaxMHz: 87.5}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for min >= max")
	}
}

func TestTunerConfigValidateKeepsExplicitValues(t *testing.T) {
	cfg := TunerConfig{Device: "/dev/radio1", MinMHz: 76.0, MaxMHz: 90.0}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Device != "/dev/radio1" || cfg.MinMHz != 76.0 || cfg.MaxMHz != 90.0 {
		t.Errorf("Validate() overwrote explicit config: %+v", cfg)
	}
}
