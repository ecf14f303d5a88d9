package radio

import (
	"fmt"
	"math"
	"os"

	"gobot.io/x/gobot"
)

// lowRangeDivider and wideRangeDivider are the two raw-frequency divisors a
// V4L2 radio tuner can report via its capability flags.
const (
	lowRangeDivider  = 16000
	wideRangeDivider = 16
)

// TunerConfig holds the tuning bounds and diagnostics hooks for a Tuner.
// It mirrors the ambient Si4713Config pattern: a single struct embedded
// into the driver, validated by NewTuner and again by newTunerWithDevice.
type TunerConfig struct {
	// Log receives non-fatal diagnostics, one line per call, no trailing
	// newline required.
	Log func(format string, v ...interface{})

	// Device is the path to the V4L2 radio character device, e.g.
	// "/dev/radio0".
	Device string

	// MinMHz and MaxMHz bound every set-frequency and seek-derived value.
	MinMHz float64
	MaxMHz float64
}

// Validate applies defaults and rejects an unusable configuration.
func (c *TunerConfig) Validate() error {
	if c.Log == nil {
		c.Log = func(string, ...interface{}) {}
	}
	if c.Device == "" {
		c.Device = "/dev/radio0"
	}
	if c.MinMHz == 0 {
		c.MinMHz = 87.5
	}
	if c.MaxMHz == 0 {
		c.MaxMHz = 108.0
	}
	if c.MinMHz >= c.MaxMHz {
		return fmt.Errorf("radio: tuner min frequency %.2f must be below max %.2f", c.MinMHz, c.MaxMHz)
	}
	return nil
}

// radioDevice is the V4L2 ioctl surface a Tuner depends on. fileDevice is
// the only production implementation; tests substitute a fake so the
// facade's logic (divider selection, range checks, volume mapping) can be
// exercised without a real character device.
type radioDevice interface {
	queryCapability() (uint32, error)
	queryTuner() (v4l2Tuner, error)
	getFrequency() (uint32, error)
	setFrequency(raw uint32) error
	seek(upward, wrap bool) error
	setAudioMode(muted bool) error
	volumeRange() (min, max int32, err error)
	setVolume(raw int32) error
	Close() error
}

// fileDevice is the radioDevice backed by an opened V4L2 character device,
// delegating every call to this file's raw ioctl helper functions.
type fileDevice struct {
	file *os.File
}

func (d *fileDevice) fd() int { return int(d.file.Fd()) }

func (d *fileDevice) queryCapability() (uint32, error)   { return queryCapability(d.fd()) }
func (d *fileDevice) queryTuner() (v4l2Tuner, error)     { return queryTuner(d.fd()) }
func (d *fileDevice) getFrequency() (uint32, error)      { return getFrequencyRaw(d.fd()) }
func (d *fileDevice) setFrequency(raw uint32) error      { return setFrequencyRaw(d.fd(), raw) }
func (d *fileDevice) seek(upward, wrap bool) error       { return hwSeek(d.fd(), upward, wrap) }
func (d *fileDevice) setAudioMode(muted bool) error      { return setAudioMode(d.fd(), muted) }
func (d *fileDevice) volumeRange() (int32, int32, error) { return volumeRange(d.fd()) }
func (d *fileDevice) setVolume(raw int32) error          { return setVolumeRaw(d.fd(), raw) }
func (d *fileDevice) Close() error                       { return d.file.Close() }

// Tuner is the facade described by the tuner-facade component: read
// frequency, tune, seek, and volume/mute, all synchronous and backed by one
// already-opened V4L2 radio device handle. It satisfies gobot.Device so it
// can be registered alongside the audio bridge in the same Robot.
type Tuner struct {
	TunerConfig

	name    string
	device  radioDevice
	divider int
}

// NewTuner opens dev and queries its capability flags to select the
// frequency divider, but does not tune or unmute anything.
func NewTuner(cfg TunerConfig) (*Tuner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(cfg.Device, os.O_RDONLY, 0)
	if err != nil {
		return nil, newError(KindDevice, "open", err)
	}

	return newTunerWithDevice(cfg, &fileDevice{file: f})
}

// newTunerWithDevice takes the radioDevice seam directly, letting tests
// substitute a fake character device in place of a real one. cfg is
// validated here too, so a caller that skips NewTuner still gets its
// defaults applied.
func newTunerWithDevice(cfg TunerConfig, dev radioDevice) (*Tuner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	caps, err := dev.queryCapability()
	if err != nil {
		dev.Close()
		return nil, newError(KindDevice, "query-capability", err)
	}
	if caps&v4l2CapRDSCapture == 0 {
		cfg.Log("warning: device %s does not advertise RDS capture support\n", cfg.Device)
	}

	t, err := dev.queryTuner()
	if err != nil {
		dev.Close()
		return nil, newError(KindDevice, "query-tuner", err)
	}

	divider := wideRangeDivider
	if t.Capability&v4l2TunerCapLow != 0 {
		divider = lowRangeDivider
	}

	return &Tuner{
		TunerConfig: cfg,
		name:        gobot.DefaultName("Tuner"),
		device:      dev,
		divider:     divider,
	}, nil
}

// Name of this device.
func (t *Tuner) Name() string { return t.name }

// SetName sets the name of this device.
func (t *Tuner) SetName(name string) { t.name = name }

// Start satisfies gobot.Device. The handle is already open by the time a
// Tuner exists, so Start is a no-op beyond the interface contract.
func (t *Tuner) Start() error { return nil }

// Halt closes the device handle.
func (t *Tuner) Halt() error {
	if t.device == nil {
		return nil
	}
	return t.device.Close()
}

// Frequency reads the device's current frequency register and returns MHz.
func (t *Tuner) Frequency() (float64, error) {
	raw, err := t.device.getFrequency()
	if err != nil {
		return 0, newError(KindDevice, "get-frequency", err)
	}
	return float64(raw) / float64(t.divider), nil
}

// SetFrequency tunes to mhz, failing with KindOutOfRange if mhz is not
// strictly between the configured min and max.
func (t *Tuner) SetFrequency(mhz float64) error {
	if mhz <= t.MinMHz || mhz >= t.MaxMHz {
		return newError(KindOutOfRange, "set-frequency", fmt.Errorf("%.2f MHz outside (%.2f, %.2f)", mhz, t.MinMHz, t.MaxMHz))
	}
	raw := uint32(math.Round(mhz * float64(t.divider)))
	if err := t.device.setFrequency(raw); err != nil {
		return newError(KindDevice, "set-frequency", err)
	}
	return nil
}

// Seek issues a hardware seek with wrap-around enabled and returns the
// frequency the device landed on. A landing outside [MinMHz, MaxMHz] is
// returned together with a KindOutOfRange error.
func (t *Tuner) Seek(upward bool) (float64, error) {
	if err := t.device.seek(upward, true); err != nil {
		return 0, newError(KindDevice, "seek", err)
	}
	mhz, err := t.Frequency()
	if err != nil {
		return 0, err
	}
	if mhz < t.MinMHz || mhz > t.MaxMHz {
		return mhz, newError(KindOutOfRange, "seek", fmt.Errorf("landed at %.2f MHz outside [%.2f, %.2f]", mhz, t.MinMHz, t.MaxMHz))
	}
	return mhz, nil
}

// SetVolume unmutes when volume > 0 and mutes at volume = 0, then writes
// volume linearly mapped into the device's advertised [min, max] control
// range. Values above 100 clamp to 100.
func (t *Tuner) SetVolume(volume int) error {
	if volume > 100 {
		volume = 100
	}
	if volume < 0 {
		volume = 0
	}
	if err := t.device.setAudioMode(volume == 0); err != nil {
		return newError(KindDevice, "set-volume", err)
	}

	min, max, err := t.device.volumeRange()
	if err != nil {
		// Not every tuner exposes a separate volume control; mute state
		// alone still satisfies the facade's contract.
		return nil
	}
	raw := min + int32(math.Round(float64(volume)/100*float64(max-min)))
	if err := t.device.setVolume(raw); err != nil {
		return newError(KindDevice, "set-volume", err)
	}
	return nil
}
